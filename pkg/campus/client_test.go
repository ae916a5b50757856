package campus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend emulates the university mobile backend: POST /auth mints a
// token, everything else requires it as a bearer.
type fakeBackend struct {
	auths   atomic.Int64
	badAuth bool
	// revoked makes the backend answer 401 once even for valid tokens
	revokeOnce atomic.Bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if f.badAuth || creds.Username == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		n := f.auths.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"authToken": "tok-" + creds.Username + "-" + time.Now().Format("150405.000000000") + "-" + string(rune('0'+n%10))})
	})
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if f.revokeOnce.CompareAndSwap(true, false) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/actualities", authed(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]NewsItem{{Title: "Rentrée 2025"}})
	}))
	mux.HandleFunc("/contacts", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "STAFF" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode([]Contact{{Name: r.URL.Query().Get("value")}})
	}))
	mux.HandleFunc("/restaurant/1184/menu", authed(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]MenuDay{{Date: "2025-03-11"}})
	}))
	mux.HandleFunc("/schedule", authed(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Schedule{Plannings: []Planning{{Label: "M1"}}})
	}))
	return mux
}

func testClient(t *testing.T, f *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, time.Hour)
}

var acct = Account{UserID: "u_1", Username: "alice", Password: "pw"}

func TestSessionIsCachedAcrossCalls(t *testing.T) {
	f := &fakeBackend{}
	c := testClient(t, f)

	if _, err := c.News(context.Background(), acct); err != nil {
		t.Fatalf("News: %v", err)
	}
	if _, err := c.Contacts(context.Background(), acct, "Dupont"); err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	if got := f.auths.Load(); got != 1 {
		t.Fatalf("authenticated %d times, want 1", got)
	}
	if c.SessionCount() != 1 {
		t.Fatalf("session count = %d", c.SessionCount())
	}
}

func TestUnauthorizedTriggersOneReauth(t *testing.T) {
	f := &fakeBackend{}
	c := testClient(t, f)

	if _, err := c.News(context.Background(), acct); err != nil {
		t.Fatalf("warmup News: %v", err)
	}
	f.revokeOnce.Store(true)
	items, err := c.News(context.Background(), acct)
	if err != nil {
		t.Fatalf("News after revocation: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Rentrée 2025" {
		t.Fatalf("items = %+v", items)
	}
	if got := f.auths.Load(); got != 2 {
		t.Fatalf("authenticated %d times, want 2 (initial + retry)", got)
	}
}

func TestAuthFailureSurfacesError(t *testing.T) {
	f := &fakeBackend{badAuth: true}
	c := testClient(t, f)

	if _, err := c.News(context.Background(), acct); err == nil {
		t.Fatalf("expected auth error")
	}
}

func TestMissingCredentialsFailFast(t *testing.T) {
	f := &fakeBackend{}
	c := testClient(t, f)

	_, err := c.Menu(context.Background(), Account{UserID: "u_2"}, "1184")
	if err == nil {
		t.Fatalf("expected error without campus credentials")
	}
	if f.auths.Load() != 0 {
		t.Fatalf("backend was contacted despite missing credentials")
	}
}

func TestMenuAndScheduleQueries(t *testing.T) {
	f := &fakeBackend{}
	c := testClient(t, f)

	days, err := c.Menu(context.Background(), acct, "1184")
	if err != nil {
		t.Fatalf("Menu: %v", err)
	}
	if len(days) != 1 || days[0].Date != "2025-03-11" {
		t.Fatalf("days = %+v", days)
	}

	sched, err := c.ScheduleRange(context.Background(), acct, "2025-03-10", "2025-03-17")
	if err != nil {
		t.Fatalf("ScheduleRange: %v", err)
	}
	if len(sched.Plannings) != 1 || sched.Plannings[0].Label != "M1" {
		t.Fatalf("schedule = %+v", sched)
	}
}

func TestSweepSessions(t *testing.T) {
	f := &fakeBackend{}
	c := testClient(t, f)

	if _, err := c.News(context.Background(), acct); err != nil {
		t.Fatalf("News: %v", err)
	}
	if n := c.SweepSessions(time.Hour); n != 0 {
		t.Fatalf("fresh session swept: %d", n)
	}
	if n := c.SweepSessions(0); n != 1 {
		t.Fatalf("idle session not swept: %d", n)
	}
	if c.SessionCount() != 0 {
		t.Fatalf("session count = %d after sweep", c.SessionCount())
	}
}
