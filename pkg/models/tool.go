package models

import "encoding/json"

// ToolInvocation is a single tool call requested by the completion service
// inside one assistant turn. Invocations are transient; only their
// observable effect (the tool message) is persisted.
type ToolInvocation struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolSchema declares one callable tool to the completion service. The
// parameter shape is a JSON schema object with additionalProperties:false
// and an explicit required list; the completion service is expected to
// only ever supply the declared fields.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}
