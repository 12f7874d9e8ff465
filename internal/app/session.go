package app

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once created; sessions only ever append.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
	// ServerAssigned reports whether ID came back from the service. Chat
	// requests carry the id only once that has happened.
	ServerAssigned bool `json:"server_assigned,omitempty"`
}

const (
	defaultSessionTitle = "New Chat"
	titleLimit          = 30
)

// SessionStore owns the set of chat sessions and the active-session pointer.
// It is a pure in-memory state machine: no I/O, and accessors hand out
// copies so no caller ever holds a mutable reference into the lists. The
// list is never empty and the active index is always valid.
type SessionStore struct {
	mu       sync.Mutex
	sessions []*ChatSession
	active   int
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	s := &SessionStore{now: time.Now}
	s.sessions = []*ChatSession{{
		ID:           "default",
		Title:        defaultSessionTitle,
		LastActivity: s.now(),
	}}
	return s
}

// Create starts a fresh session, inserts it at the front of the list, and
// makes it active.
func (s *SessionStore) Create() ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &ChatSession{
		ID:           uuid.NewString(),
		Title:        defaultSessionTitle,
		LastActivity: s.now(),
	}
	s.sessions = append([]*ChatSession{session}, s.sessions...)
	s.active = 0
	return copySession(session)
}

// SwitchActive moves the active pointer and returns that session's messages
// for display.
func (s *SessionStore) SwitchActive(index int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.sessions) {
		return nil, ErrOutOfRange
	}
	s.active = index
	return copyMessages(s.sessions[index].Messages), nil
}

// Delete removes a session. The last remaining session cannot be deleted.
// Deleting the active session promotes index 0 of the remaining list;
// deleting a session before the active one shifts the active index down so
// it keeps pointing at the same logical session.
func (s *SessionStore) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.sessions) {
		return ErrOutOfRange
	}
	if len(s.sessions) == 1 {
		return ErrLastSession
	}
	s.sessions = append(s.sessions[:index], s.sessions[index+1:]...)
	switch {
	case index == s.active:
		s.active = 0
	case index < s.active:
		s.active--
	}
	return nil
}

// AppendUser is the provisional half of an exchange: the user's message is
// reflected immediately, before the network call resolves. Confirmation
// happens through CompleteExchange, failure through AppendNotice.
func (s *SessionStore) AppendUser(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := Message{Role: RoleUser, Content: content, Timestamp: s.now()}
	session := s.sessions[s.active]
	session.Messages = append(session.Messages, msg)
	return msg
}

// CompleteExchange confirms a provisional exchange with the assistant's
// reply. It adopts a server-assigned session id when one is provided,
// bumps lastActivity, and derives the title from the first user message
// exactly when this exchange brings the session to two messages.
func (s *SessionStore) CompleteExchange(reply, serverID string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessions[s.active]
	msg := Message{Role: RoleAssistant, Content: reply, Timestamp: s.now()}
	session.Messages = append(session.Messages, msg)
	session.LastActivity = msg.Timestamp
	if serverID != "" {
		if serverID != session.ID {
			session.ID = serverID
		}
		session.ServerAssigned = true
	}
	if len(session.Messages) == 2 {
		session.Title = deriveTitle(session.Messages[0].Content)
	}
	return msg
}

// AppendNotice appends a synthetic assistant-role message, used to give a
// failed turn a visible terminal message. It never touches the title, id,
// or lastActivity.
func (s *SessionStore) AppendNotice(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := Message{Role: RoleAssistant, Content: content, Timestamp: s.now()}
	session := s.sessions[s.active]
	session.Messages = append(session.Messages, msg)
	return msg
}

// AppendExchange records a user message and its reply in one step, for
// callers that already hold both halves.
func (s *SessionStore) AppendExchange(user, reply, serverID string) (Message, Message) {
	userMsg := s.AppendUser(user)
	replyMsg := s.CompleteExchange(reply, serverID)
	return userMsg, replyMsg
}

func (s *SessionStore) Active() ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.sessions[s.active])
}

func (s *SessionStore) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) Sessions() []ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatSession, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = copySession(session)
	}
	return out
}

func copySession(session *ChatSession) ChatSession {
	out := *session
	out.Messages = copyMessages(session.Messages)
	return out
}

func copyMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

func deriveTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > titleLimit {
		runes = runes[:titleLimit]
	}
	return string(runes) + "..."
}
