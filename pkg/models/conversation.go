package models

type Conversation struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// Title is mutable; when empty it is derived from the first user
	// message of the conversation.
	Title string `json:"title,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	// Updated timestamp (ns) - last time metadata or activity changed
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}
