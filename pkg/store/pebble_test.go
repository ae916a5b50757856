package store

import (
	"fmt"
	"sync"
	"testing"

	"esupchat/pkg/models"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir() + "/db"); err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestCreateUserRoundTripKeepsCredentials(t *testing.T) {
	openTestStore(t)

	u, err := CreateUser(models.User{
		Username:            "alice",
		PasswordHash:        "$2a$10$fakehash",
		CampusUsername:      "alice@uphf",
		CampusPassword:      "campus-secret",
		PreferredLanguage:   "French",
		PreferredRestaurant: "1184",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected generated user id")
	}

	got, ok, err := GetUser(u.ID)
	if err != nil || !ok {
		t.Fatalf("GetUser: ok=%v err=%v", ok, err)
	}
	// json:"-" fields on the API model must still round-trip in storage
	if got.PasswordHash != "$2a$10$fakehash" {
		t.Fatalf("password hash lost in storage: %q", got.PasswordHash)
	}
	if got.CampusPassword != "campus-secret" {
		t.Fatalf("campus password lost in storage: %q", got.CampusPassword)
	}
	if got.PreferredRestaurant != "1184" {
		t.Fatalf("preferred restaurant lost: %q", got.PreferredRestaurant)
	}

	byName, ok, err := GetUserByName("alice")
	if err != nil || !ok {
		t.Fatalf("GetUserByName: ok=%v err=%v", ok, err)
	}
	if byName.ID != u.ID {
		t.Fatalf("username index resolves to %q, want %q", byName.ID, u.ID)
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	openTestStore(t)

	if _, err := CreateUser(models.User{Username: "bob"}); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	if _, err := CreateUser(models.User{Username: "bob"}); err == nil {
		t.Fatalf("expected duplicate username error")
	}
}

func TestMessagesAreStrictlyOrdered(t *testing.T) {
	openTestStore(t)

	u, _ := CreateUser(models.User{Username: "carol"})
	conv, err := CreateConversation(u.ID, "ordering")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	roles := []string{models.RoleDeveloper, models.RoleUser, models.RoleAssistant, models.RoleTool, models.RoleAssistant}
	for i, role := range roles {
		if _, err := AppendMessage(conv.ID, models.Message{Role: role, Content: string(rune('a' + i))}); err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
	}

	msgs, err := GetMessages(conv.ID, u.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != len(roles) {
		t.Fatalf("expected %d messages, got %d", len(roles), len(msgs))
	}
	for i := range msgs {
		if msgs[i].Role != roles[i] {
			t.Fatalf("message %d: role %q, want %q", i, msgs[i].Role, roles[i])
		}
		if i > 0 && msgs[i].TS < msgs[i-1].TS {
			t.Fatalf("message %d: ts %d before predecessor %d", i, msgs[i].TS, msgs[i-1].TS)
		}
	}
}

func TestAppendMessageRejectsUnknownRole(t *testing.T) {
	openTestStore(t)

	u, _ := CreateUser(models.User{Username: "dave"})
	conv, _ := CreateConversation(u.ID, "")
	if _, err := AppendMessage(conv.ID, models.Message{Role: "system", Content: "x"}); err == nil {
		t.Fatalf("expected invalid role error")
	}
}

func TestConversationOwnership(t *testing.T) {
	openTestStore(t)

	owner, _ := CreateUser(models.User{Username: "owner"})
	other, _ := CreateUser(models.User{Username: "other"})
	conv, _ := CreateConversation(owner.ID, "private")
	_, _ = AppendMessage(conv.ID, models.Message{Role: models.RoleUser, Content: "hello"})

	if _, ok, _ := GetConversation(conv.ID, other.ID); ok {
		t.Fatalf("conversation visible to non-owner")
	}
	msgs, err := GetMessages(conv.ID, other.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("messages visible to non-owner: %d", len(msgs))
	}
}

func TestListConversationsNewestFirst(t *testing.T) {
	openTestStore(t)

	u, _ := CreateUser(models.User{Username: "erin"})
	first, _ := CreateConversation(u.ID, "first")
	second, _ := CreateConversation(u.ID, "second")

	convs, err := ListConversations(u.ID)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != second.ID || convs[1].ID != first.ID {
		t.Fatalf("unexpected order: %s, %s", convs[0].ID, convs[1].ID)
	}
}

func TestDeleteConversationCascades(t *testing.T) {
	openTestStore(t)

	u, _ := CreateUser(models.User{Username: "frank"})
	conv, _ := CreateConversation(u.ID, "doomed")
	keep, _ := CreateConversation(u.ID, "kept")
	for i := 0; i < 3; i++ {
		_, _ = AppendMessage(conv.ID, models.Message{Role: models.RoleUser, Content: "x"})
	}
	_, _ = AppendMessage(keep.ID, models.Message{Role: models.RoleUser, Content: "y"})

	if err := DeleteConversation(conv.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, ok, _ := GetConversation(conv.ID, u.ID); ok {
		t.Fatalf("conversation still present after delete")
	}
	msgs, _ := GetMessages(conv.ID, u.ID)
	if len(msgs) != 0 {
		t.Fatalf("messages survived delete: %d", len(msgs))
	}
	// the neighbouring conversation is untouched
	kept, _ := GetMessages(keep.ID, u.ID)
	if len(kept) != 1 {
		t.Fatalf("unrelated conversation lost messages: %d", len(kept))
	}
}

func TestUpdateTitle(t *testing.T) {
	openTestStore(t)

	u, _ := CreateUser(models.User{Username: "grace"})
	conv, _ := CreateConversation(u.ID, "")
	got, err := UpdateTitle(conv.ID, "named now")
	if err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	if got.Title != "named now" {
		t.Fatalf("title = %q", got.Title)
	}
	reread, ok, _ := GetConversation(conv.ID, u.ID)
	if !ok || reread.Title != "named now" {
		t.Fatalf("title not persisted: %q", reread.Title)
	}
}

func TestTitleSurvivesConcurrentAppends(t *testing.T) {
	openTestStore(t)

	u, _ := CreateUser(models.User{Username: "heidi"})
	conv, _ := CreateConversation(u.ID, "")

	// an append's activity bump rewrites the conversation record; racing it
	// against a rename must never resurrect the old title
	for i := 0; i < 25; i++ {
		title := fmt.Sprintf("titre %d", i)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := AppendMessage(conv.ID, models.Message{Role: models.RoleUser, Content: "x"}); err != nil {
				t.Errorf("AppendMessage: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := UpdateTitle(conv.ID, title); err != nil {
				t.Errorf("UpdateTitle: %v", err)
			}
		}()
		wg.Wait()

		got, ok, err := GetConversation(conv.ID, u.ID)
		if err != nil || !ok {
			t.Fatalf("GetConversation: ok=%v err=%v", ok, err)
		}
		if got.Title != title {
			t.Fatalf("iteration %d: title = %q, want %q (clobbered by append bump)", i, got.Title, title)
		}
	}
}
