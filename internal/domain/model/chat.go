// Package model contains domain entities for the quill chat application.
package model

import "time"

// Chat is a conversation owned by a single user.
type Chat struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn within a chat.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Vote records an up/down rating a user gave a message.
type Vote struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	IsUpvoted bool   `json:"is_upvoted"`
}

// Document is a user-authored artifact; versions share an ID and differ by CreatedAt.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Suggestion is a proposed edit attached to a document version.
type Suggestion struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	UserID        string    `json:"user_id"`
	OriginalText  string    `json:"original_text"`
	SuggestedText string    `json:"suggested_text"`
	Description   string    `json:"description"`
	IsResolved    bool      `json:"is_resolved"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatWithMessages bundles a chat and its messages for single-read page loads.
type ChatWithMessages struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}
