package models

// Message roles as sent to the completion service. The developer message is
// always the first message of a conversation and carries the assistant
// instructions.
const (
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	Role         string `json:"role"`
	Content      string `json:"content,omitempty"`
	// ToolCallID links a tool message to the invocation it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Invocations holds the tool calls an assistant turn requested; empty
	// for final assistant replies.
	Invocations []ToolInvocation `json:"invocations,omitempty"`
	// TS is the creation timestamp (ns). Messages within a conversation
	// are strictly ordered by TS plus an append sequence.
	TS int64 `json:"ts"`
}

// ValidRole reports whether r is one of the four transcript roles.
func ValidRole(r string) bool {
	switch r {
	case RoleDeveloper, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}
