package intercom

// ConversationPage is a paginated response from GET /conversations.
type ConversationPage struct {
	Type          string         `json:"type"`
	Conversations []Conversation `json:"conversations"`
	TotalCount    int            `json:"total_count"`
	Pages         *Pages         `json:"pages,omitempty"`
}

// Pages holds the cursor-based pagination block of a list response.
type Pages struct {
	Type       string      `json:"type"`
	Next       *PageCursor `json:"next,omitempty"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
}

// PageCursor carries the opaque token for the next page.
type PageCursor struct {
	Page          int    `json:"page"`
	StartingAfter string `json:"starting_after"`
}

// Conversation represents an Intercom conversation ("ticket").
type Conversation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	State string `json:"state"` // open, closed, snoozed

	// Priority is "priority" or "not_priority".
	Priority string `json:"priority"`

	// AdminAssigneeID and TeamAssigneeID arrive as JSON numbers or
	// null. They must be stringified before entering document
	// metadata.
	AdminAssigneeID *int64 `json:"admin_assignee_id"`
	TeamAssigneeID  *int64 `json:"team_assignee_id"`

	Open bool `json:"open"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`

	Source            ConversationSource `json:"source"`
	Tags              TagList            `json:"tags"`
	ConversationParts PartList           `json:"conversation_parts"`
}

// ConversationSource is the initiating message of a conversation.
type ConversationSource struct {
	Type        string  `json:"type"`
	ID          string  `json:"id"`
	DeliveredAs string  `json:"delivered_as"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body"`
	Author      *Author `json:"author,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// Author is the sender of a message or part (user, lead, or admin).
type Author struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TagList wraps the tags attached to a conversation.
type TagList struct {
	Type string `json:"type"`
	Tags []Tag  `json:"tags"`
}

// Tag is a label attached to a conversation.
type Tag struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PartList wraps the follow-up messages of a conversation.
type PartList struct {
	Type       string             `json:"type"`
	Parts      []ConversationPart `json:"conversation_parts"`
	TotalCount int                `json:"total_count"`
}

// ConversationPart is a single follow-up message, note, or state
// change within a conversation.
type ConversationPart struct {
	Type      string  `json:"type"`
	ID        string  `json:"id"`
	PartType  string  `json:"part_type"`
	Body      string  `json:"body"`
	Author    *Author `json:"author,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// Me is the response from GET /me, identifying the authenticated
// admin and their workspace.
type Me struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	App   App    `json:"app"`
}

// App identifies an Intercom workspace.
type App struct {
	Type   string `json:"type"`
	IDCode string `json:"id_code"`
	Name   string `json:"name"`
}

// ErrorResponse is the Intercom API error format.
type ErrorResponse struct {
	Type   string         `json:"type"`
	Errors []ErrorMessage `json:"errors"`
}

// ErrorMessage is a single error entry within an error response.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
