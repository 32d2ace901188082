package intercom

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/helpdesk-sync/internal/fetch"
	"github.com/nhle/helpdesk-sync/internal/model"
	"github.com/nhle/helpdesk-sync/internal/source"
)

// CredentialTokenKey is the credential-mapping key holding the
// Intercom access token.
const CredentialTokenKey = "intercom_api_token"

// idPrefix namespaces document IDs produced by this connector.
const idPrefix = "intercom_"

// Adapter exposes the Intercom conversations listing as a fetch
// page provider and maps conversations to normalized documents.
type Adapter struct {
	client      *Client
	workspaceID string
	linkBaseURL string
}

// NewAdapter creates an Intercom adapter from connector configuration
// and a credential mapping. It fails with a MissingCredentialError
// when the access token is absent, before any request is made. An
// empty workspace ID is allowed: documents are then produced without
// links.
func NewAdapter(
	cfg model.IntercomConfig,
	credentials map[string]string,
) (*Adapter, error) {
	token := credentials[CredentialTokenKey]
	if strings.TrimSpace(token) == "" {
		return nil, &source.MissingCredentialError{
			SourceType: model.SourceTypeIntercom,
			Field:      CredentialTokenKey,
		}
	}

	return &Adapter{
		client:      NewClient(cfg.BaseURL, token),
		workspaceID: cfg.WorkspaceID,
		linkBaseURL: strings.TrimRight(cfg.LinkBaseURL, "/"),
	}, nil
}

// Type returns the source type identifier for Intercom.
func (a *Adapter) Type() model.SourceType {
	return model.SourceTypeIntercom
}

// ValidateConnection verifies credentials by calling GET /me.
// Returns the admin's name and workspace on success.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	me, err := a.client.Me(ctx)
	if err != nil {
		return "", fmt.Errorf("validating Intercom connection: %w", err)
	}
	return fmt.Sprintf("%s (%s)", me.Name, me.App.Name), nil
}

// FetchPage implements fetch.PageProvider over GET /conversations.
func (a *Adapter) FetchPage(
	ctx context.Context,
	cursor string,
) (*fetch.Page, error) {
	page, err := a.client.ListConversations(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	items := make([]fetch.Item, 0, len(page.Conversations))
	for _, conv := range page.Conversations {
		items = append(items, conversationItem{conv: conv, adapter: a})
	}

	next := ""
	if page.Pages != nil && page.Pages.Next != nil {
		next = page.Pages.Next.StartingAfter
	}

	return &fetch.Page{Items: items, NextCursor: next}, nil
}

// LoadAll walks the entire conversations listing from the beginning
// and emits every conversation as a document.
func (a *Adapter) LoadAll(
	ctx context.Context,
	batchSize int,
	emit fetch.EmitFunc,
) error {
	_, err := fetch.Run(ctx, a, fetch.Options{BatchSize: batchSize}, emit)
	return err
}

// Poll walks the listing but skips conversations not updated since the
// given time. The whole listing is still traversed; the filter is
// client-side.
func (a *Adapter) Poll(
	ctx context.Context,
	since time.Time,
	batchSize int,
	emit fetch.EmitFunc,
) error {
	_, err := fetch.Run(ctx, a, fetch.Options{
		BatchSize: batchSize,
		Since:     &since,
	}, emit)
	return err
}

// ResumeLoad continues a full walk from the given cursor, persisting
// each page transition through cp. It returns the cursor reached when
// the walk stopped.
func (a *Adapter) ResumeLoad(
	ctx context.Context,
	cursor string,
	cp fetch.Checkpointer,
	batchSize int,
	emit fetch.EmitFunc,
) (string, error) {
	return fetch.Run(ctx, a, fetch.Options{
		BatchSize:  batchSize,
		Resume:     cursor,
		Checkpoint: cp,
	}, emit)
}

// conversationItem adapts a raw Conversation to the fetch.Item
// contract so the fetch loop can read its update time without
// transforming it.
type conversationItem struct {
	conv    Conversation
	adapter *Adapter
}

func (i conversationItem) UpdateTime() time.Time {
	return time.Unix(i.conv.UpdatedAt, 0).UTC()
}

func (i conversationItem) Document() model.Document {
	return i.adapter.conversationToDocument(i.conv)
}

// conversationToDocument converts an Intercom conversation to a
// normalized document.
func (a *Adapter) conversationToDocument(conv Conversation) model.Document {
	title := conv.Title
	if title == "" {
		title = "Conversation " + conv.ID
	}

	link := a.conversationLink(conv.ID)

	// The opening message comes first, then replies in their
	// original order. Parts without a body (assignments, state
	// changes) carry no text and are skipped.
	sections := []model.Section{{
		Text: stripHTML(conv.Source.Body),
		Link: link,
	}}
	for _, part := range conv.ConversationParts.Parts {
		if part.Body == "" {
			continue
		}
		sections = append(sections, model.Section{
			Text: stripHTML(part.Body),
			Link: link,
		})
	}

	var owners []model.Owner
	if author := conv.Source.Author; author != nil && author.Email != "" {
		owners = append(owners, model.Owner{
			Name:  author.Name,
			Email: author.Email,
		})
	}

	return model.Document{
		ID:        idPrefix + conv.ID,
		Source:    model.SourceTypeIntercom,
		Title:     title,
		Link:      link,
		Sections:  sections,
		Owners:    owners,
		Metadata:  conversationMetadata(conv),
		CreatedAt: time.Unix(conv.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(conv.UpdatedAt, 0).UTC(),
		FetchedAt: time.Now().UTC(),
	}
}

// conversationLink builds the inbox URL for a conversation. Without a
// workspace ID no link can be constructed and the document carries
// none.
func (a *Adapter) conversationLink(id string) string {
	if a.workspaceID == "" || a.linkBaseURL == "" {
		return ""
	}
	return fmt.Sprintf(
		"%s/%s/conversation/%s", a.linkBaseURL, a.workspaceID, id,
	)
}

// conversationMetadata builds the document metadata map. Every value
// is a string and empty values are never inserted. Numeric assignee
// identifiers are coerced to strings; leaving them as numbers breaks
// the downstream document schema.
func conversationMetadata(conv Conversation) map[string]string {
	metadata := make(map[string]string)

	if conv.State != "" {
		metadata["state"] = conv.State
	}
	if conv.Priority != "" {
		metadata["priority"] = conv.Priority
	}
	if conv.AdminAssigneeID != nil {
		metadata["assignee_id"] = strconv.FormatInt(*conv.AdminAssigneeID, 10)
	}
	if conv.TeamAssigneeID != nil {
		metadata["team_assignee_id"] = strconv.FormatInt(*conv.TeamAssigneeID, 10)
	}

	if len(conv.Tags.Tags) > 0 {
		names := make([]string, 0, len(conv.Tags.Tags))
		for _, tag := range conv.Tags.Tags {
			if tag.Name != "" {
				names = append(names, tag.Name)
			}
		}
		if len(names) > 0 {
			metadata["tags"] = strings.Join(names, ", ")
		}
	}

	return metadata
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and collapses whitespace,
// providing a plain-text rendering of Intercom message bodies.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	// Replace common block-level tags with newlines.
	result := html
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>"} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	// Strip all remaining HTML tags.
	result = htmlTagPattern.ReplaceAllString(result, "")

	// Decode common HTML entities.
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	// Collapse multiple consecutive blank lines.
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
