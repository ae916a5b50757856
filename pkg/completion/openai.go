package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"esupchat/pkg/logger"
	"esupchat/pkg/models"
)

// OpenAIClient implements Client against the OpenAI chat completions API
// with function calling enabled (tool_choice auto).
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient builds a client that bounds every completion call with
// timeout. Extra request options (base URL, retry policy) are passed
// through to the underlying SDK client.
func NewOpenAIClient(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) *OpenAIClient {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClient{
		client:  openai.NewClient(all...),
		model:   model,
		timeout: timeout,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, transcript []models.Message, tools []models.ToolSchema) (Turn, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: toWireMessages(transcript),
		Tools:    toWireTools(tools),
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Turn{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Turn{}, fmt.Errorf("chat completion: empty choices")
	}
	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		invs := make([]models.ToolInvocation, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			invs = append(invs, models.ToolInvocation{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
		logger.Debug("completion_tool_calls", "count", len(invs))
		return Turn{Invocations: invs}, nil
	}
	return Turn{Text: msg.Content}, nil
}

// toWireMessages converts the persisted transcript into the chat API
// message union. Assistant turns that requested tools carry their tool
// calls so the follow-up tool messages stay well-formed.
func toWireMessages(transcript []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript))
	for _, m := range transcript {
		switch m.Role {
		case models.RoleDeveloper:
			out = append(out, openai.DeveloperMessage(m.Content))
		case models.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case models.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case models.RoleAssistant:
			if len(m.Invocations) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, inv := range m.Invocations {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: inv.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      inv.Name,
						Arguments: string(inv.Arguments),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func toWireTools(tools []models.ToolSchema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		fn := openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
		}
		if len(t.Parameters) > 0 {
			var params map[string]interface{}
			if err := json.Unmarshal(t.Parameters, &params); err == nil {
				fn.Parameters = openai.FunctionParameters(params)
				fn.Strict = openai.Bool(true)
			}
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out
}
