package chat

import "time"

// Conversation is a named, ordered thread of messages between the user and
// one or more models. The name is derived from the first user message and is
// never changed afterwards.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationPage is one page of a cursor-paginated conversation listing.
// Cursor is nil when there are no further pages.
type ConversationPage struct {
	Conversations []Conversation `json:"conversations"`
	Cursor        *string        `json:"cursor"`
}
