package models

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	// PasswordHash is a bcrypt hash; never serialized.
	PasswordHash string `json:"-"`
	// Campus credentials used to open a session against the university
	// backend on the user's behalf. The password never leaves the server.
	CampusUsername string `json:"campus_username,omitempty"`
	CampusPassword string `json:"-"`
	// PreferredLanguage is the language the assistant answers in.
	PreferredLanguage string `json:"preferred_language,omitempty"`
	// PreferredRestaurant is the default restaurant id for menu lookups.
	PreferredRestaurant string `json:"preferred_restaurant,omitempty"`
	CreatedTS           int64  `json:"created_ts,omitempty"`
}
