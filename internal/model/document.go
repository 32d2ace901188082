package model

import "time"

// SourceType identifies the origin system of a document.
type SourceType string

const (
	SourceTypeIntercom SourceType = "intercom"
)

// Section is one ordered block of text within a document. For a
// helpdesk conversation the first section is the opening message and
// the rest are replies in their original order.
type Section struct {
	// Text is the plain-text content of the section.
	Text string `json:"text"`

	// Link is a direct URL to this section in the source system,
	// empty when the source cannot address individual sections.
	Link string `json:"link,omitempty"`
}

// Owner identifies a person associated with a document. An owner is
// only recorded when the source author carries an email address.
type Owner struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Document is the normalized representation of a source item handed
// to the indexing pipeline.
type Document struct {
	// ID is the stable identifier, namespaced by a source-specific
	// prefix (e.g., "intercom_123").
	ID string `json:"id"`

	// Source identifies which integration produced this document.
	Source SourceType `json:"source"`

	// Title is the display title. Sources without a title get a
	// synthesized one (e.g., "Conversation 123").
	Title string `json:"title"`

	// Link is a direct URL back to the item in its source system.
	Link string `json:"link,omitempty"`

	// Sections holds the document body in discovery order.
	Sections []Section `json:"sections"`

	// Owners holds zero or one entries; present only when the item's
	// author has an email address.
	Owners []Owner `json:"owners,omitempty"`

	// Metadata holds source attributes. All values are strings;
	// empty values are dropped before the document is emitted.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the item was created in the source system.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the item was last modified in the source
	// system. The incremental poll filter compares against this.
	UpdatedAt time.Time `json:"updated_at"`

	// FetchedAt is when this document was retrieved from the source.
	FetchedAt time.Time `json:"fetched_at"`
}
