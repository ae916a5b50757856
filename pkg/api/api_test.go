package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"esupchat/pkg/auth"
	"esupchat/pkg/completion"
	"esupchat/pkg/config"
	"esupchat/pkg/models"
	"esupchat/pkg/orchestrator"
	"esupchat/pkg/store"
	"esupchat/pkg/tools"
)

type cannedLLM struct {
	text string
}

func (c *cannedLLM) Complete(context.Context, []models.Message, []models.ToolSchema) (completion.Turn, error) {
	return completion.Turn{Text: c.text}, nil
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(_ context.Context, inv models.ToolInvocation, _ tools.DispatchContext) tools.Result {
	return tools.Result{CallID: inv.ID, Content: `{"ok":true}`}
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := store.Open(t.TempDir() + "/db"); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	config.SetRuntime(&config.RuntimeConfig{
		SigningKeys:       map[string]struct{}{"test-signing-key": {}},
		PrimarySigningKey: "test-signing-key",
	})
	t.Cleanup(func() { config.SetRuntime(nil) })

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Auth.SigningKeys = []string{"test-signing-key"}

	eng := orchestrator.New(store.DB{}, &cannedLLM{text: "Bonjour !"}, noopDispatcher{}, cfg.Chat.MaxRounds)
	srv := httptest.NewServer(Handler(eng, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	out := map[string]json.RawMessage{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func register(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	res, out := doJSON(t, http.MethodPost, srv.URL+"/api/register", "", map[string]string{
		"username": username,
		"password": "long-enough-pw",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d (%v)", res.StatusCode, out)
	}
	var token string
	_ = json.Unmarshal(out["token"], &token)
	if token == "" {
		t.Fatalf("register: empty token")
	}
	return token
}

func TestRegisterLoginAndMe(t *testing.T) {
	srv := setupServer(t)
	register(t, srv, "alice")

	// duplicate username
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/register", "", map[string]string{
		"username": "alice", "password": "long-enough-pw",
	})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", res.StatusCode)
	}

	// login and inspect the account
	res, out := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"username": "alice", "password": "long-enough-pw",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", res.StatusCode)
	}
	var token string
	_ = json.Unmarshal(out["token"], &token)

	res, out = doJSON(t, http.MethodGet, srv.URL+"/api/me", token, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me: status %d", res.StatusCode)
	}
	var username string
	_ = json.Unmarshal(out["username"], &username)
	if username != "alice" {
		t.Fatalf("me: username %q", username)
	}

	// wrong password
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"username": "alice", "password": "wrong-password",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d", res.StatusCode)
	}
}

func TestChatTurnEndToEnd(t *testing.T) {
	srv := setupServer(t)
	token := register(t, srv, "bob")

	res, out := doJSON(t, http.MethodPost, srv.URL+"/api/chat", token, map[string]string{
		"message": "Salut !",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat: status %d (%v)", res.StatusCode, out)
	}
	var exchange []models.Message
	_ = json.Unmarshal(out["messages"], &exchange)
	if len(exchange) != 2 {
		t.Fatalf("exchange length %d, want 2", len(exchange))
	}
	if exchange[0].Role != models.RoleUser || exchange[0].Content != "Salut !" {
		t.Fatalf("user message = %+v", exchange[0])
	}
	if exchange[1].Role != models.RoleAssistant || exchange[1].Content != "Bonjour !" {
		t.Fatalf("reply = %+v", exchange[1])
	}
	var conv models.Conversation
	_ = json.Unmarshal(out["conversation"], &conv)
	if conv.ID == "" || conv.Title != "Salut !" {
		t.Fatalf("conversation = %+v", conv)
	}

	// transcript holds seed, user message and reply
	res, out = doJSON(t, http.MethodGet, srv.URL+"/api/conversations/"+conv.ID+"/messages", token, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("messages: status %d", res.StatusCode)
	}
	var msgs []models.Message
	_ = json.Unmarshal(out["messages"], &msgs)
	if len(msgs) != 3 {
		t.Fatalf("transcript length %d, want 3", len(msgs))
	}
	if msgs[0].Role != models.RoleDeveloper || msgs[1].Role != models.RoleUser || msgs[2].Role != models.RoleAssistant {
		t.Fatalf("transcript roles: %s, %s, %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}

	// a second turn reuses the conversation
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/chat", token, map[string]string{
		"conversation": conv.ID, "message": "Encore ?",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second chat: status %d", res.StatusCode)
	}

	// empty message is rejected before the engine runs
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/chat", token, map[string]string{"message": "  "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty message: status %d", res.StatusCode)
	}
}

func TestConversationCRUDAndIsolation(t *testing.T) {
	srv := setupServer(t)
	alice := register(t, srv, "alice")
	mallory := register(t, srv, "mallory")

	res, out := doJSON(t, http.MethodPost, srv.URL+"/api/conversations", alice, map[string]string{"title": "Menus"})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create conversation: status %d", res.StatusCode)
	}
	var conv models.Conversation
	raw, _ := json.Marshal(out)
	_ = json.Unmarshal(raw, &conv)
	if conv.ID == "" {
		t.Fatalf("conversation = %v", out)
	}

	// another user cannot see, rename, or delete it
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/conversations/"+conv.ID+"/messages", mallory, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign messages: status %d", res.StatusCode)
	}
	res, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/conversations/"+conv.ID, mallory, map[string]string{"title": "stolen"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign rename: status %d", res.StatusCode)
	}
	res, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/conversations/"+conv.ID, mallory, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign delete: status %d", res.StatusCode)
	}

	// the owner can
	res, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/conversations/"+conv.ID, alice, map[string]string{"title": "Menus RU"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("rename: status %d", res.StatusCode)
	}
	res, out = doJSON(t, http.MethodGet, srv.URL+"/api/conversations", alice, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d", res.StatusCode)
	}
	var convs []models.Conversation
	_ = json.Unmarshal(out["conversations"], &convs)
	if len(convs) != 1 || convs[0].Title != "Menus RU" {
		t.Fatalf("conversations = %+v", convs)
	}
	res, out = doJSON(t, http.MethodDelete, srv.URL+"/api/conversations/"+conv.ID, alice, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", res.StatusCode)
	}
	var deleted string
	_ = json.Unmarshal(out["deleted"], &deleted)
	if deleted != conv.ID {
		t.Fatalf("delete response = %v", out)
	}
}

// brokenStore accepts reads but fails every write.
type brokenStore struct{}

func (brokenStore) GetUser(id string) (models.User, bool, error) {
	return models.User{ID: id, Username: "alice"}, true, nil
}

func (brokenStore) GetConversation(id, userID string) (models.Conversation, bool, error) {
	return models.Conversation{ID: id, UserID: userID}, true, nil
}

func (brokenStore) CreateConversation(userID, title string) (models.Conversation, error) {
	return models.Conversation{ID: "c_1", UserID: userID, Title: title}, nil
}

func (brokenStore) GetMessages(conversationID, userID string) ([]models.Message, error) {
	return nil, nil
}

func (brokenStore) AppendMessage(conversationID string, m models.Message) (models.Message, error) {
	return models.Message{}, fmt.Errorf("disk full")
}

func (brokenStore) UpdateTitle(conversationID, title string) (models.Conversation, error) {
	return models.Conversation{}, fmt.Errorf("disk full")
}

func TestChatFailsWhenUserMessageCannotBeStored(t *testing.T) {
	config.SetRuntime(&config.RuntimeConfig{
		SigningKeys:       map[string]struct{}{"test-signing-key": {}},
		PrimarySigningKey: "test-signing-key",
	})
	t.Cleanup(func() { config.SetRuntime(nil) })

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	eng := orchestrator.New(brokenStore{}, &cannedLLM{text: "unreachable"}, noopDispatcher{}, cfg.Chat.MaxRounds)
	srv := httptest.NewServer(Handler(eng, cfg))
	t.Cleanup(srv.Close)

	token, err := auth.MintSession("u_1", time.Hour)
	if err != nil {
		t.Fatalf("MintSession: %v", err)
	}

	res, out := doJSON(t, http.MethodPost, srv.URL+"/api/chat", token, map[string]string{
		"message": "Salut !",
	})
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500 when the user message is not stored (%v)", res.StatusCode, out)
	}
	if _, ok := out["messages"]; ok {
		t.Fatalf("failure response carries a messages array: %v", out)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := setupServer(t)

	for _, p := range []string{"/api/me", "/api/conversations"} {
		res, err := http.Get(srv.URL + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: status %d, want 401", p, res.StatusCode)
		}
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := setupServer(t)
	register(t, srv, "carol")

	// burn through the burst with bad credentials from one client
	var last int
	for i := 0; i < 10; i++ {
		res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
			"username": "carol", "password": fmt.Sprintf("wrong-%d", i),
		})
		last = res.StatusCode
		if last == http.StatusTooManyRequests {
			break
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("login never throttled; last status %d", last)
	}
}
