package campus

import (
	"encoding/json"
	"time"
)

// Account carries the campus credentials of one user. The password is
// only ever sent to the university backend during session establishment.
type Account struct {
	UserID   string
	Username string
	Password string
}

type NewsItem struct {
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	PubDate string `json:"pubDate,omitempty"`
	Link    string `json:"link,omitempty"`
}

type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Function string `json:"function,omitempty"`
}

// MenuDay is one day of a restaurant menu. Meal is kept as raw JSON; the
// backend's meal structure varies by restaurant and is passed through to
// the completion service untouched.
type MenuDay struct {
	Date string          `json:"date"`
	Meal json.RawMessage `json:"meal,omitempty"`
}

type Schedule struct {
	Plannings []Planning `json:"plannings"`
}

type Planning struct {
	Label  string  `json:"label"`
	Events []Event `json:"events"`
}

type Event struct {
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	Course        Course    `json:"course"`
	Rooms         []Room    `json:"rooms,omitempty"`
	Teachers      []Teacher `json:"teachers,omitempty"`
	Groups        []Group   `json:"groups,omitempty"`
}

type Course struct {
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}

type Room struct {
	Label string `json:"label"`
}

type Teacher struct {
	DisplayName string `json:"displayname"`
}

type Group struct {
	Label string `json:"label"`
}
