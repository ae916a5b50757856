package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"esupchat/pkg/campus"
	"esupchat/pkg/completion"
	"esupchat/pkg/logger"
	"esupchat/pkg/models"
	"esupchat/pkg/telemetry"
	"esupchat/pkg/tools"
)

// Store is the persistence surface the engine depends on.
type Store interface {
	GetUser(id string) (models.User, bool, error)
	GetConversation(id, userID string) (models.Conversation, bool, error)
	CreateConversation(userID, title string) (models.Conversation, error)
	GetMessages(conversationID, userID string) ([]models.Message, error)
	AppendMessage(conversationID string, m models.Message) (models.Message, error)
	UpdateTitle(conversationID, title string) (models.Conversation, error)
}

// Dispatcher executes one tool invocation and always yields a payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv models.ToolInvocation, dctx tools.DispatchContext) tools.Result
}

// Result is everything one user turn produced, in transcript order.
type Result struct {
	Conversation models.Conversation
	UserMessage  models.Message
	// Steps holds the intermediate assistant tool-request messages and the
	// tool result messages, in the order they entered the transcript.
	Steps []models.Message
	Reply models.Message
}

// Engine drives one user turn through the completion/tool loop. Turns on
// the same conversation are serialized; distinct conversations proceed
// concurrently.
type Engine struct {
	store      Store
	llm        completion.Client
	dispatcher Dispatcher
	schemas    []models.ToolSchema
	maxRounds  int

	mu    sync.Mutex
	locks map[string]*convLock

	now func() time.Time
}

// convLock is refcounted so entries for idle conversations are evicted
// instead of accumulating for the life of the process.
type convLock struct {
	mu   sync.Mutex
	refs int
}

func New(store Store, llm completion.Client, dispatcher Dispatcher, maxRounds int) *Engine {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	return &Engine{
		store:      store,
		llm:        llm,
		dispatcher: dispatcher,
		schemas:    tools.Schemas(),
		maxRounds:  maxRounds,
		locks:      make(map[string]*convLock),
		now:        time.Now,
	}
}

func (e *Engine) lockConversation(id string) *convLock {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &convLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return l
}

func (e *Engine) unlockConversation(id string, l *convLock) {
	l.mu.Unlock()
	e.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(e.locks, id)
	}
	e.mu.Unlock()
}

// HandleUserMessage runs one full turn: append the user message, loop the
// completion service and the tool dispatcher until a plain text reply
// arrives, and persist everything as it happens.
//
// conversationID may be empty, in which case a new conversation is created
// for the user. On ErrExhausted and ErrPersistence the Result is still
// populated with a usable reply.
func (e *Engine) HandleUserMessage(ctx context.Context, userID, conversationID, text string) (Result, error) {
	var res Result

	if strings.TrimSpace(text) == "" {
		return res, ErrEmptyMessage
	}

	user, ok, err := e.store.GetUser(userID)
	if err != nil {
		return res, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return res, ErrUnauthorized
	}

	conv, created, err := e.resolveConversation(userID, conversationID, text)
	if err != nil {
		return res, err
	}
	res.Conversation = conv

	lk := e.lockConversation(conv.ID)
	defer e.unlockConversation(conv.ID, lk)

	// Failures up to and including the user-message write are hard errors,
	// not ErrPersistence: no reply exists yet and the caller must not be
	// told the turn succeeded.
	transcript, err := e.store.GetMessages(conv.ID, userID)
	if err != nil {
		return res, fmt.Errorf("load transcript: %w", err)
	}

	if len(transcript) == 0 {
		seed := models.Message{Role: models.RoleDeveloper, Content: seedPrompt(user, e.now())}
		stored, err := e.store.AppendMessage(conv.ID, seed)
		if err != nil {
			return res, fmt.Errorf("seed message: %w", err)
		}
		transcript = append(transcript, stored)
	}

	// The user message is durable before the first model round, so a crash
	// mid-orchestration never loses what the user typed.
	userMsg, err := e.store.AppendMessage(conv.ID, models.Message{Role: models.RoleUser, Content: text})
	if err != nil {
		return res, fmt.Errorf("user message: %w", err)
	}
	res.UserMessage = userMsg
	transcript = append(transcript, userMsg)

	if !created && conv.Title == "" {
		if updated, err := e.store.UpdateTitle(conv.ID, deriveTitle(text)); err == nil {
			res.Conversation = updated
		}
	}

	dctx := tools.DispatchContext{
		Account: campus.Account{
			UserID:   user.ID,
			Username: user.CampusUsername,
			Password: user.CampusPassword,
		},
		PreferredRestaurant: user.PreferredRestaurant,
	}

	var persistErr error
	record := func(m models.Message) models.Message {
		stored, err := e.store.AppendMessage(conv.ID, m)
		if err != nil {
			// keep orchestrating on the in-memory copy; the turn is worth
			// more to the user than the write
			persistErr = err
			telemetry.PersistenceFailures.Inc()
			logger.Error("message_persist_failed", "conversation", conv.ID, "role", m.Role, "error", err)
			return m
		}
		return stored
	}

	for round := 1; round <= e.maxRounds; round++ {
		start := time.Now()
		turn, err := e.llm.Complete(ctx, transcript, e.schemas)
		telemetry.CompletionLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			logger.Error("completion_failed", "conversation", conv.ID, "round", round, "error", err)
			return res, fmt.Errorf("%w: %v", ErrCompletion, err)
		}

		if len(turn.Invocations) == 0 {
			reply := record(models.Message{Role: models.RoleAssistant, Content: turn.Text})
			res.Reply = reply
			telemetry.OrchestrationRounds.Observe(float64(round))
			if persistErr != nil {
				return res, fmt.Errorf("%w: %v", ErrPersistence, persistErr)
			}
			return res, nil
		}

		asst := record(models.Message{
			Role:        models.RoleAssistant,
			Content:     turn.Text,
			Invocations: turn.Invocations,
		})
		res.Steps = append(res.Steps, asst)
		transcript = append(transcript, asst)

		for _, inv := range turn.Invocations {
			out := e.dispatcher.Dispatch(ctx, inv, dctx)
			toolMsg := record(models.Message{
				Role:       models.RoleTool,
				Content:    out.Content,
				ToolCallID: out.CallID,
			})
			res.Steps = append(res.Steps, toolMsg)
			transcript = append(transcript, toolMsg)
		}
	}

	logger.Warn("orchestration_exhausted", "conversation", conv.ID, "rounds", e.maxRounds)
	telemetry.OrchestrationRounds.Observe(float64(e.maxRounds))
	res.Reply = record(models.Message{Role: models.RoleAssistant, Content: apologyText(user.PreferredLanguage)})
	return res, ErrExhausted
}

// resolveConversation loads the addressed conversation or creates a fresh
// one titled after the first message.
func (e *Engine) resolveConversation(userID, conversationID, text string) (models.Conversation, bool, error) {
	if conversationID == "" {
		conv, err := e.store.CreateConversation(userID, deriveTitle(text))
		if err != nil {
			return models.Conversation{}, false, fmt.Errorf("create conversation: %w", err)
		}
		return conv, true, nil
	}
	conv, ok, err := e.store.GetConversation(conversationID, userID)
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("load conversation: %w", err)
	}
	if !ok {
		return models.Conversation{}, false, ErrUnauthorized
	}
	return conv, false, nil
}
