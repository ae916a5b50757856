package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"esupchat/pkg/logger"
	"esupchat/pkg/models"
	"esupchat/pkg/utils"
)

var db *pebble.DB
var dbPath string

// seq is a small counter to keep message keys strictly ordered when
// multiple messages share the same nanosecond timestamp.
var seq uint64

// convMu serializes read-modify-write updates of conversation records,
// which otherwise last-write-wins each other under concurrency.
var convMu sync.Mutex

// Key layout:
//
//	user:<id>                      -> models.User
//	username:<username>            -> user id
//	conv:<id>                      -> models.Conversation
//	userconv:<userID>:<convID>     -> conversation id
//	msg:<convID>:<ts padded>-<seq> -> models.Message
func userKey(id string) []byte       { return []byte("user:" + id) }
func usernameKey(name string) []byte { return []byte("username:" + name) }
func convKey(id string) []byte       { return []byte("conv:" + id) }
func userConvKey(uid, cid string) []byte {
	return []byte("userconv:" + uid + ":" + cid)
}
func msgPrefix(cid string) []byte { return []byte("msg:" + cid + ":") }

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

var errNotOpen = fmt.Errorf("pebble not opened; call store.Open first")

// storedUser is the on-disk shape of a user record. The API model elides
// the password hash and campus password from JSON, so the store keeps its
// own representation that round-trips every field.
type storedUser struct {
	ID                  string `json:"id"`
	Username            string `json:"username"`
	PasswordHash        string `json:"password_hash"`
	CampusUsername      string `json:"campus_username,omitempty"`
	CampusPassword      string `json:"campus_password,omitempty"`
	PreferredLanguage   string `json:"preferred_language,omitempty"`
	PreferredRestaurant string `json:"preferred_restaurant,omitempty"`
	CreatedTS           int64  `json:"created_ts"`
}

func toStoredUser(u models.User) storedUser {
	return storedUser{
		ID:                  u.ID,
		Username:            u.Username,
		PasswordHash:        u.PasswordHash,
		CampusUsername:      u.CampusUsername,
		CampusPassword:      u.CampusPassword,
		PreferredLanguage:   u.PreferredLanguage,
		PreferredRestaurant: u.PreferredRestaurant,
		CreatedTS:           u.CreatedTS,
	}
}

func (s storedUser) model() models.User {
	return models.User{
		ID:                  s.ID,
		Username:            s.Username,
		PasswordHash:        s.PasswordHash,
		CampusUsername:      s.CampusUsername,
		CampusPassword:      s.CampusPassword,
		PreferredLanguage:   s.PreferredLanguage,
		PreferredRestaurant: s.PreferredRestaurant,
		CreatedTS:           s.CreatedTS,
	}
}

// CreateUser persists a new user. The username must be unique.
func CreateUser(u models.User) (models.User, error) {
	start := time.Now()
	if db == nil {
		return models.User{}, errNotOpen
	}
	if u.Username == "" {
		return models.User{}, fmt.Errorf("username is required")
	}
	if _, closer, err := db.Get(usernameKey(u.Username)); err == nil {
		_ = closer.Close()
		return models.User{}, observeErr("create_user", start, fmt.Errorf("username already taken: %s", u.Username))
	}
	if u.ID == "" {
		u.ID = utils.GenUserID()
	}
	if u.CreatedTS == 0 {
		u.CreatedTS = time.Now().UTC().UnixNano()
	}
	data, err := json.Marshal(toStoredUser(u))
	if err != nil {
		return models.User{}, fmt.Errorf("marshal user: %w", err)
	}
	b := db.NewBatch()
	_ = b.Set(userKey(u.ID), data, nil)
	_ = b.Set(usernameKey(u.Username), []byte(u.ID), nil)
	if err := b.Commit(pebble.Sync); err != nil {
		return models.User{}, observeErr("create_user", start, err)
	}
	logger.Info("user_created", "id", u.ID, "username", u.Username)
	observe("create_user", start)
	return u, nil
}

// GetUser returns the user with the given id.
func GetUser(id string) (models.User, bool, error) {
	if db == nil {
		return models.User{}, false, errNotOpen
	}
	v, closer, err := db.Get(userKey(id))
	if err == pebble.ErrNotFound {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	defer closer.Close()
	var s storedUser
	if err := json.Unmarshal(v, &s); err != nil {
		return models.User{}, false, fmt.Errorf("invalid user record: %w", err)
	}
	return s.model(), true, nil
}

// GetUserByName resolves a username to its user record.
func GetUserByName(username string) (models.User, bool, error) {
	if db == nil {
		return models.User{}, false, errNotOpen
	}
	v, closer, err := db.Get(usernameKey(username))
	if err == pebble.ErrNotFound {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	id := string(v)
	_ = closer.Close()
	return GetUser(id)
}

// CreateConversation creates a conversation owned by userID. Title may be
// empty; it is then derived later from the first user message.
func CreateConversation(userID, title string) (models.Conversation, error) {
	start := time.Now()
	if db == nil {
		return models.Conversation{}, errNotOpen
	}
	now := time.Now().UTC().UnixNano()
	c := models.Conversation{
		ID:        utils.GenConversationID(),
		UserID:    userID,
		Title:     title,
		CreatedTS: now,
		UpdatedTS: now,
	}
	data, err := json.Marshal(c)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("marshal conversation: %w", err)
	}
	b := db.NewBatch()
	_ = b.Set(convKey(c.ID), data, nil)
	_ = b.Set(userConvKey(userID, c.ID), []byte(c.ID), nil)
	if err := b.Commit(pebble.Sync); err != nil {
		return models.Conversation{}, observeErr("create_conversation", start, err)
	}
	logger.Info("conversation_created", "id", c.ID, "user", userID)
	observe("create_conversation", start)
	return c, nil
}

// GetConversation returns the conversation with the given id when it is
// owned by userID. The boolean is false when the conversation does not
// exist or belongs to another user.
func GetConversation(id, userID string) (models.Conversation, bool, error) {
	if db == nil {
		return models.Conversation{}, false, errNotOpen
	}
	c, ok, err := getConversationAny(id)
	if err != nil || !ok {
		return models.Conversation{}, false, err
	}
	if c.UserID != userID {
		return models.Conversation{}, false, nil
	}
	return c, true, nil
}

func getConversationAny(id string) (models.Conversation, bool, error) {
	v, closer, err := db.Get(convKey(id))
	if err == pebble.ErrNotFound {
		return models.Conversation{}, false, nil
	}
	if err != nil {
		return models.Conversation{}, false, err
	}
	defer closer.Close()
	var c models.Conversation
	if err := json.Unmarshal(v, &c); err != nil {
		return models.Conversation{}, false, fmt.Errorf("invalid conversation record: %w", err)
	}
	return c, true, nil
}

// ListConversations returns all conversations owned by userID, newest
// first.
func ListConversations(userID string) ([]models.Conversation, error) {
	start := time.Now()
	if db == nil {
		return nil, errNotOpen
	}
	prefix := []byte("userconv:" + userID + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []models.Conversation{}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		cid := string(iter.Value())
		c, ok, err := getConversationAny(cid)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedTS > out[j].CreatedTS })
	observe("list_conversations", start)
	return out, nil
}

// AppendMessage appends a message to a conversation under a sortable
// timestamp key. The persisted order is the append order: keys combine the
// creation timestamp with a process-wide sequence so two messages never
// collide or reorder.
func AppendMessage(conversationID string, m models.Message) (models.Message, error) {
	start := time.Now()
	if db == nil {
		return models.Message{}, errNotOpen
	}
	if !models.ValidRole(m.Role) {
		return models.Message{}, fmt.Errorf("invalid message role: %q", m.Role)
	}
	if m.TS == 0 {
		m.TS = time.Now().UTC().UnixNano()
	}
	if m.ID == "" {
		m.ID = utils.GenMessageID()
	}
	m.Conversation = conversationID
	s := atomic.AddUint64(&seq, 1)
	key := fmt.Sprintf("msg:%s:%020d-%06d", conversationID, m.TS, s)

	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("marshal message: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("append_message_failed", "conversation", conversationID, "key", key, "error", err)
		return models.Message{}, observeErr("append_message", start, err)
	}

	// bump conversation activity timestamp; best-effort, but under convMu
	// so a concurrent title change is not clobbered by a stale record
	convMu.Lock()
	if c, ok, err := getConversationAny(conversationID); err == nil && ok {
		c.UpdatedTS = m.TS
		if nb, err := json.Marshal(c); err == nil {
			_ = db.Set(convKey(c.ID), nb, pebble.NoSync)
		}
	}
	convMu.Unlock()
	logger.Debug("message_appended", "conversation", conversationID, "id", m.ID, "role", m.Role)
	observe("append_message", start)
	return m, nil
}

// UpdateTitle replaces the conversation title and returns the updated
// conversation.
func UpdateTitle(conversationID, title string) (models.Conversation, error) {
	start := time.Now()
	if db == nil {
		return models.Conversation{}, errNotOpen
	}
	convMu.Lock()
	defer convMu.Unlock()
	c, ok, err := getConversationAny(conversationID)
	if err != nil {
		return models.Conversation{}, err
	}
	if !ok {
		return models.Conversation{}, fmt.Errorf("conversation not found: %s", conversationID)
	}
	c.Title = title
	c.UpdatedTS = time.Now().UTC().UnixNano()
	data, err := json.Marshal(c)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("marshal conversation: %w", err)
	}
	if err := db.Set(convKey(c.ID), data, pebble.Sync); err != nil {
		return models.Conversation{}, observeErr("update_title", start, err)
	}
	observe("update_title", start)
	return c, nil
}

// DeleteConversation removes the conversation metadata, its ownership
// index entry and every message in it.
func DeleteConversation(id string) error {
	start := time.Now()
	if db == nil {
		return errNotOpen
	}
	c, ok, err := getConversationAny(id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	b := db.NewBatch()
	_ = b.Delete(convKey(id), nil)
	_ = b.Delete(userConvKey(c.UserID, id), nil)
	lo := msgPrefix(id)
	hi := append(append([]byte{}, lo...), 0xff)
	_ = b.DeleteRange(lo, hi, nil)
	if err := b.Commit(pebble.Sync); err != nil {
		return observeErr("delete_conversation", start, err)
	}
	logger.Info("conversation_deleted", "id", id, "user", c.UserID)
	observe("delete_conversation", start)
	return nil
}

// GetMessages returns the messages of a conversation in timestamp order.
// The result is empty when the conversation is not owned by userID.
func GetMessages(conversationID, userID string) ([]models.Message, error) {
	start := time.Now()
	if db == nil {
		return nil, errNotOpen
	}
	if _, ok, err := GetConversation(conversationID, userID); err != nil || !ok {
		return []models.Message{}, err
	}
	prefix := msgPrefix(conversationID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := []models.Message{}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("invalid message record: %w", err)
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	observe("get_messages", start)
	return out, nil
}
