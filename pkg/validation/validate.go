package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"esupchat/pkg/tools"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 64
	MinPasswordLen = 8
	MaxTitleLen    = 120

	// DefaultMaxMessageLen bounds one chat message when config sets no limit.
	DefaultMaxMessageLen = 4000
)

// ChatMessage checks one inbound user message. maxLen <= 0 falls back to
// DefaultMaxMessageLen.
func ChatMessage(text string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLen
	}
	var errs []string
	if strings.TrimSpace(text) == "" {
		errs = append(errs, "message is required")
	}
	if n := utf8.RuneCountInString(text); n > maxLen {
		errs = append(errs, fmt.Sprintf("message too long: %d > %d", n, maxLen))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Registration checks a new account's credentials and preferences.
func Registration(username, password, restaurant string) error {
	var errs []string
	switch n := utf8.RuneCountInString(username); {
	case strings.TrimSpace(username) == "":
		errs = append(errs, "username is required")
	case n < MinUsernameLen:
		errs = append(errs, fmt.Sprintf("username too short: minimum %d characters", MinUsernameLen))
	case n > MaxUsernameLen:
		errs = append(errs, fmt.Sprintf("username too long: maximum %d characters", MaxUsernameLen))
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("password too short: minimum %d characters", MinPasswordLen))
	}
	if restaurant != "" && !knownRestaurant(restaurant) {
		errs = append(errs, fmt.Sprintf("unknown restaurant id: %s", restaurant))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Title checks a conversation title supplied by the client.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLen {
		return fmt.Errorf("title too long: %d > %d", n, MaxTitleLen)
	}
	return nil
}

func knownRestaurant(id string) bool {
	for _, r := range tools.Restaurants {
		if r.ID == id {
			return true
		}
	}
	return false
}
