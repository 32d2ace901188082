package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/helpdesk-sync/internal/credential"
	"github.com/nhle/helpdesk-sync/internal/source/intercom"
)

// credentialKey is the keyring entry holding the Intercom access token.
const credentialKey = "intercom-api-token"

// newSetupCmd builds the interactive setup command. It collects the
// API token, verifies it against the live API, stores it in the system
// keyring, and records the discovered workspace ID in the config file.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Configure Intercom credentials and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			baseURL := cfg.Intercom.BaseURL
			token := ""

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("API Base URL").
						Description("Intercom REST API root").
						Value(&baseURL).
						Validate(validateURL),
					huh.NewInput().
						Title("Access Token").
						Description("Intercom access token for Bearer authentication").
						EchoMode(huh.EchoModePassword).
						Value(&token).
						Validate(validateRequired("Access Token")),
				),
			)

			if err := form.Run(); err != nil {
				return fmt.Errorf("running setup form: %w", err)
			}

			// Verify the token before persisting anything.
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client := intercom.NewClient(baseURL, token)
			me, err := client.Me(ctx)
			if err != nil {
				return fmt.Errorf("verifying credentials: %w", err)
			}

			if err := credential.Set(credentialKey, token); err != nil {
				return err
			}

			cfg.Intercom.BaseURL = strings.TrimRight(baseURL, "/")
			cfg.Intercom.WorkspaceID = me.App.IDCode
			if err := saveConfig(cfg); err != nil {
				return err
			}

			fmt.Printf(
				"Connected as %s, workspace %s (%s).\n",
				me.Name, me.App.Name, me.App.IDCode,
			)
			fmt.Println("Token stored in the system keyring.")
			return nil
		},
	}
}

// validateRequired returns a validator that rejects empty input.
func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// validateURL rejects input that does not parse as an absolute URL.
func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be a valid URL (e.g., https://api.intercom.io)")
	}
	return nil
}
