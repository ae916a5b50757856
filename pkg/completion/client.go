// Package completion abstracts the language-model completion service. The
// orchestration engine only sees transcripts going in and either text or
// tool invocations coming out.
package completion

import (
	"context"

	"esupchat/pkg/models"
)

// Turn is one completion round's outcome. Exactly one of Text and
// Invocations is populated.
type Turn struct {
	Text        string
	Invocations []models.ToolInvocation
}

// Client sends a transcript plus the declared tool schemas to a completion
// service and returns the model's turn.
type Client interface {
	Complete(ctx context.Context, transcript []models.Message, tools []models.ToolSchema) (Turn, error)
}
