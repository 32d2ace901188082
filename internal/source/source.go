package source

import (
	"errors"
	"fmt"

	"github.com/nhle/helpdesk-sync/internal/model"
)

// AuthError indicates that authentication has failed or expired for a
// source. It is returned by source clients when a 401 response is
// received.
type AuthError struct {
	SourceType model.SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// MissingCredentialError indicates that a required credential is absent
// or invalid. It is raised before any network request is made and is
// terminal: the operator must fix the configuration.
type MissingCredentialError struct {
	SourceType model.SourceType
	Field      string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf(
		"missing or invalid credential %q for %s source",
		e.Field, e.SourceType,
	)
}

// IsMissingCredential reports whether err (or any error in its chain)
// is a MissingCredentialError.
func IsMissingCredential(err error) bool {
	var credErr *MissingCredentialError
	return errors.As(err, &credErr)
}
