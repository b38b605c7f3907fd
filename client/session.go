package client

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/docline/docline/chat"
	"github.com/docline/docline/models"
)

var errNoActiveConversation = errors.New("no active conversation")

// ConnState is the session's connection lifecycle.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// Emitter sends inbound events to the hub. In production it writes to the
// websocket; tests inject a recording fake.
type Emitter interface {
	Emit(event chat.ClientEvent) error
}

// API is the durable read-side surface the session consults outside the
// live connection (page-load fetch, mark-read).
type API interface {
	ListConversations() ([]models.ConversationSummary, error)
	GetMessages(conversationID uuid.UUID) ([]models.Message, error)
	MarkRead(conversationID uuid.UUID) error
}

// LocalMessage is a message as the session renders it. Pending entries are
// locally originated sends not yet confirmed by the server.
type LocalMessage struct {
	models.Message
	Pending bool `json:"pending"`
}

// Session is the per-user-agent state machine: the locally known
// conversation list, the currently open conversation with its messages, an
// optimistic-send buffer and per-conversation unread counters. The server
// is authoritative; the session only converges toward hub-pushed state.
type Session struct {
	userID uuid.UUID
	role   models.ChatRole

	emitter Emitter
	api     API

	// OnTyping and OnNotice surface transient UI events; either may be nil.
	OnTyping func(conversationID uuid.UUID, userDisplayName string, isTyping bool)
	OnNotice func(message string)

	mu            sync.Mutex
	state         ConnState
	active        uuid.UUID
	conversations []models.ConversationSummary
	messages      []LocalMessage
	unread        map[uuid.UUID]int64
}

func NewSession(userID uuid.UUID, role models.ChatRole, emitter Emitter, api API) *Session {
	return &Session{
		userID:  userID,
		role:    role,
		emitter: emitter,
		api:     api,
		state:   StateDisconnected,
		unread:  make(map[uuid.UUID]int64),
	}
}

func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(state ConnState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Refresh replaces the conversation list with a full fetch and rebuilds the
// unread counters from the fetched summaries.
func (s *Session) Refresh() error {
	summaries, err := s.api.ListConversations()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = summaries
	s.unread = make(map[uuid.UUID]int64, len(summaries))
	for _, summary := range summaries {
		s.unread[summary.ID] = summary.UnreadCount
	}
	return nil
}

// Open makes the conversation active: leaves the previous room first (the
// hub does not auto-leave on join), fetches the full message list, zeroes
// the unread counter optimistically and issues an async mark-read to make
// the reset durable.
func (s *Session) Open(conversationID uuid.UUID) error {
	s.mu.Lock()
	previous := s.active
	s.mu.Unlock()

	if previous != uuid.Nil && previous != conversationID {
		s.emit(chat.ClientEvent{Type: chat.EventLeaveChat, ConversationID: previous})
	}
	s.emit(chat.ClientEvent{Type: chat.EventJoinChat, ConversationID: conversationID})

	messages, err := s.api.GetMessages(conversationID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.active = conversationID
	s.messages = make([]LocalMessage, 0, len(messages))
	for _, msg := range messages {
		s.messages = append(s.messages, LocalMessage{Message: msg})
	}
	s.unread[conversationID] = 0
	s.mu.Unlock()

	go func() {
		if err := s.api.MarkRead(conversationID); err != nil {
			log.Printf("mark read for conversation %s: %v", conversationID, err)
		}
	}()
	return nil
}

// CloseActive leaves the active conversation's room.
func (s *Session) CloseActive() {
	s.mu.Lock()
	conversationID := s.active
	s.active = uuid.Nil
	s.messages = nil
	s.mu.Unlock()

	if conversationID != uuid.Nil {
		s.emit(chat.ClientEvent{Type: chat.EventLeaveChat, ConversationID: conversationID})
	}
}

// Send appends a pending entry to the local view immediately, then emits
// the send event. The pending copy is replaced, never kept, once the
// authoritative broadcast arrives.
func (s *Session) Send(content string) error {
	s.mu.Lock()
	conversationID := s.active
	if conversationID != uuid.Nil {
		s.messages = append(s.messages, LocalMessage{
			Message: models.Message{
				ConversationID: conversationID,
				SenderID:       s.userID,
				SenderRole:     s.role,
				Content:        content,
			},
			Pending: true,
		})
	}
	s.mu.Unlock()

	if conversationID == uuid.Nil {
		return errNoActiveConversation
	}
	return s.emit(chat.ClientEvent{
		Type:           chat.EventSendMessage,
		ConversationID: conversationID,
		Content:        content,
	})
}

// Typing emits a best-effort typing indicator for the active conversation.
func (s *Session) Typing(isTyping bool) {
	s.mu.Lock()
	conversationID := s.active
	s.mu.Unlock()
	if conversationID == uuid.Nil {
		return
	}
	s.emit(chat.ClientEvent{Type: chat.EventTyping, ConversationID: conversationID, IsTyping: isTyping})
}

// HandleRaw dispatches one hub-pushed event. Unknown event types are
// ignored; a session never treats a bad event as fatal.
func (s *Session) HandleRaw(raw []byte) {
	var envelope chat.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("session: undecodable event: %v", err)
		return
	}

	switch envelope.Type {
	case chat.EventNewMessage:
		var event chat.NewMessageEvent
		if err := json.Unmarshal(raw, &event); err == nil {
			s.handleNewMessage(&event)
		}
	case chat.EventMessageNotification:
		var event chat.MessageNotificationEvent
		if err := json.Unmarshal(raw, &event); err == nil {
			s.handleNotification(&event)
		}
	case chat.EventUserTyping:
		var event chat.UserTypingEvent
		if err := json.Unmarshal(raw, &event); err == nil && s.OnTyping != nil {
			s.OnTyping(event.ConversationID, event.UserDisplayName, event.IsTyping)
		}
	case chat.EventError:
		var event chat.ErrorEvent
		if err := json.Unmarshal(raw, &event); err == nil && s.OnNotice != nil {
			s.OnNotice(event.Message)
		}
	}
}

// handleNewMessage reconciles a broadcast against local state. A self-sent
// message replaces *all* pending entries for the conversation — duplicate
// pendings are a real possibility under racing sends, so reconciliation is
// wholesale rather than match-by-content.
func (s *Session) handleNewMessage(event *chat.NewMessageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := event.Message
	own := msg.SenderID == s.userID && msg.SenderRole == s.role

	if event.ConversationID == s.active {
		if own {
			kept := s.messages[:0]
			for _, local := range s.messages {
				if !local.Pending {
					kept = append(kept, local)
				}
			}
			s.messages = kept
		}
		s.messages = append(s.messages, LocalMessage{Message: msg})
		return
	}

	// Not the open conversation: count it if it came from the other side.
	if !own {
		s.unread[event.ConversationID]++
	}
}

// handleNotification adopts the server-computed unread count for a
// non-active conversation, so badges update without a list refetch.
func (s *Session) handleNotification(event *chat.MessageNotificationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ConversationID == s.active {
		return
	}
	s.unread[event.ConversationID] = event.UnreadCount
}

// ActiveConversation returns the open conversation id, uuid.Nil when none.
func (s *Session) ActiveConversation() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Messages returns a copy of the active conversation's local view.
func (s *Session) Messages() []LocalMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LocalMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Unread returns the local unread counter for a conversation.
func (s *Session) Unread(conversationID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[conversationID]
}

// Conversations returns the locally known conversation list.
func (s *Session) Conversations() []models.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationSummary, len(s.conversations))
	copy(out, s.conversations)
	return out
}

func (s *Session) emit(event chat.ClientEvent) error {
	if err := s.emitter.Emit(event); err != nil {
		log.Printf("session: emit %s: %v", event.Type, err)
		return err
	}
	return nil
}
