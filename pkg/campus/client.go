package campus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"esupchat/pkg/logger"
)

// Client is an authenticated client to the university mobile backend.
// Sessions are established lazily per user and cached keyed by user id;
// they are invalidated on authentication failure and swept after sitting
// idle for the session TTL.
type Client struct {
	baseURL string
	hc      *http.Client

	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
}

type session struct {
	token    string
	created  time.Time
	lastUsed time.Time
}

func New(baseURL string, timeout, sessionTTL time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		hc:       &http.Client{Timeout: timeout},
		sessions: make(map[string]*session),
		ttl:      sessionTTL,
	}
}

// News returns the university news feed, newest first.
func (c *Client) News(ctx context.Context, acct Account) ([]NewsItem, error) {
	var out []NewsItem
	if err := c.get(ctx, acct, "/actualities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Contacts searches the directory for staff members matching query.
func (c *Client) Contacts(ctx context.Context, acct Account, query string) ([]Contact, error) {
	q := url.Values{}
	q.Set("type", "STAFF")
	q.Set("value", query)
	var out []Contact
	if err := c.get(ctx, acct, "/contacts", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Menu returns the published menu days for one restaurant.
func (c *Client) Menu(ctx context.Context, acct Account, restaurantID string) ([]MenuDay, error) {
	var out []MenuDay
	if err := c.get(ctx, acct, "/restaurant/"+url.PathEscape(restaurantID)+"/menu", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduleRange returns the user's plannings between from and to
// (inclusive, YYYY-MM-DD).
func (c *Client) ScheduleRange(ctx context.Context, acct Account, from, to string) (Schedule, error) {
	q := url.Values{}
	q.Set("startDate", from)
	q.Set("endDate", to)
	var out Schedule
	if err := c.get(ctx, acct, "/schedule", q, &out); err != nil {
		return Schedule{}, err
	}
	return out, nil
}

// InvalidateSession drops the cached session for userID, forcing a fresh
// authentication on the next call.
func (c *Client) InvalidateSession(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, userID)
}

// SweepSessions removes sessions idle longer than maxIdle and returns the
// number removed.
func (c *Client) SweepSessions(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	cutoff := time.Now().Add(-maxIdle)
	for uid, s := range c.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(c.sessions, uid)
			n++
		}
	}
	if n > 0 {
		logger.Info("campus_sessions_swept", "removed", n, "remaining", len(c.sessions))
	}
	return n
}

// SessionCount reports the number of cached sessions.
func (c *Client) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// ensureSession returns a valid token for acct, authenticating when no
// cached session exists or the cached one outlived its TTL.
func (c *Client) ensureSession(ctx context.Context, acct Account) (string, error) {
	c.mu.Lock()
	if s, ok := c.sessions[acct.UserID]; ok && time.Since(s.created) < c.ttl {
		s.lastUsed = time.Now()
		tok := s.token
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	tok, err := c.authenticate(ctx, acct)
	if err != nil {
		return "", err
	}
	now := time.Now()
	c.mu.Lock()
	c.sessions[acct.UserID] = &session{token: tok, created: now, lastUsed: now}
	c.mu.Unlock()
	logger.Info("campus_session_established", "user", acct.UserID)
	return tok, nil
}

func (c *Client) authenticate(ctx context.Context, acct Account) (string, error) {
	if acct.Username == "" {
		return "", fmt.Errorf("no campus credentials configured")
	}
	body, _ := json.Marshal(map[string]string{
		"username": acct.Username,
		"password": acct.Password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("campus auth: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("campus auth: unexpected status %d", res.StatusCode)
	}
	var payload struct {
		AuthToken string `json:"authToken"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("campus auth: decode response: %w", err)
	}
	if payload.AuthToken == "" {
		return "", fmt.Errorf("campus auth: empty token in response")
	}
	return payload.AuthToken, nil
}

// get performs an authenticated GET and decodes the JSON response into
// out. A 401 invalidates the cached session and retries once with a fresh
// one.
func (c *Client) get(ctx context.Context, acct Account, path string, q url.Values, out interface{}) error {
	retried := false
	for {
		tok, err := c.ensureSession(ctx, acct)
		if err != nil {
			return err
		}
		u := c.baseURL + path
		if len(q) > 0 {
			u += "?" + q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		res, err := c.hc.Do(req)
		if err != nil {
			return fmt.Errorf("campus request %s: %w", path, err)
		}
		if res.StatusCode == http.StatusUnauthorized && !retried {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
			c.InvalidateSession(acct.UserID)
			retried = true
			continue
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("campus request %s: unexpected status %d", path, res.StatusCode)
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("campus request %s: decode response: %w", path, err)
		}
		return nil
	}
}
