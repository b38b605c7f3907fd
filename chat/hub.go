package chat

import (
	"log"
	"sync"

	"github.com/google/uuid"

	apiError "github.com/docline/docline/errors"
	"github.com/docline/docline/models"
)

// Store is the slice of the conversation repository the hub needs.
// db.ChatRepository satisfies it.
type Store interface {
	GetConversation(id uuid.UUID) (*models.Conversation, error)
	SaveMessage(conversationID, senderID uuid.UUID, role models.ChatRole, content string) (*models.Message, error)
	UnreadCount(conversationID uuid.UUID, forRole models.ChatRole) (int64, error)
}

// Hub owns all room membership for the process. Rooms are a many-to-many
// index from conversation id to live connections; membership is mutated
// only through Join/Leave/Disconnect. One hub per process, no cross-process
// coordination.
type Hub struct {
	store Store

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]bool

	// convMu serializes append+broadcast per conversation so every room
	// member observes one conversation's messages in append order.
	convMuMu sync.Mutex
	convMu   map[uuid.UUID]*sync.Mutex
}

func NewHub(store Store) *Hub {
	return &Hub{
		store:  store,
		rooms:  make(map[uuid.UUID]map[*Client]bool),
		convMu: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Join adds the client to the conversation's room. An unknown conversation
// and a policy denial are both silent no-ops: the denial path must be
// indistinguishable from a nonexistent conversation on the wire.
func (h *Hub) Join(c *Client, conversationID uuid.UUID) {
	conv, err := h.store.GetConversation(conversationID)
	if err != nil {
		log.Printf("join_chat: conversation %s: %v", conversationID, err)
		return
	}
	if !CanAccess(conv, c.UserID, c.Role) {
		log.Printf("join_chat: denied %s/%s on conversation %s", c.Role, c.UserID, conversationID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[conversationID] = room
	}
	room[c] = true
}

// Leave removes the client from the room. Always succeeds, including for
// rooms the client was never in.
func (h *Hub) Leave(c *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, conversationID)
}

// Disconnect removes the client from every room it is a member of. Called
// synchronously when a connection dies so no later broadcast can reference it.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conversationID := range h.rooms {
		h.removeFromRoom(c, conversationID)
	}
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(c *Client, conversationID uuid.UUID) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// Send requires current room membership, then re-checks the policy against
// the store's conversation state (membership alone is not enough: the
// active flag may have changed since join). On grant it appends and
// broadcasts the persisted message to every room member, including the
// sender, whose other sessions and optimistic-send reconciliation depend
// on receiving the authoritative copy.
func (h *Hub) Send(c *Client, conversationID uuid.UUID, content string) {
	h.mu.RLock()
	member := h.rooms[conversationID][c]
	h.mu.RUnlock()
	if !member {
		c.enqueue(errorPayload("NotAuthorizedForChat"))
		return
	}

	conv, err := h.store.GetConversation(conversationID)
	if err != nil {
		log.Printf("send_message: conversation %s: %v", conversationID, err)
		c.enqueue(errorPayload("conversation not found"))
		return
	}
	if !CanModify(conv, c.UserID, c.Role) {
		c.enqueue(errorPayload("NotAuthorizedForChat"))
		return
	}

	// Hold the per-conversation lock across append and broadcast: order of
	// delivery equals order of append for everyone in the room.
	lock := h.conversationLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := h.store.SaveMessage(conversationID, c.UserID, c.Role, content)
	if err != nil {
		switch err {
		case apiError.ErrEmptyMessage, apiError.ErrMessageTooLong, apiError.ErrChatNotFound:
			c.enqueue(errorPayload(err.Error()))
		default:
			log.Printf("send_message: save failed on conversation %s: %v", conversationID, err)
			c.enqueue(errorPayload("failed to send message"))
		}
		return
	}

	h.broadcast(conversationID, newMessagePayload(msg, c.DisplayName), nil)

	unread, err := h.store.UnreadCount(conversationID, c.Role.Other())
	if err != nil {
		log.Printf("send_message: unread count on conversation %s: %v", conversationID, err)
		return
	}
	h.broadcast(conversationID, notificationPayload(conversationID, c.DisplayName, msg.Content, unread), nil)
}

// Typing fans out a best-effort typing indicator to everyone in the room
// except the sender. Nothing is persisted and nothing is acknowledged.
func (h *Hub) Typing(c *Client, conversationID uuid.UUID, isTyping bool) {
	h.mu.RLock()
	member := h.rooms[conversationID][c]
	h.mu.RUnlock()
	if !member {
		return
	}
	h.broadcast(conversationID, typingPayload(conversationID, c.DisplayName, isTyping), c)
}

// RoomSize reports current membership; used by handlers for diagnostics.
func (h *Hub) RoomSize(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// broadcast delivers the payload to every member of the room, skipping
// except when non-nil. Slow consumers are evicted rather than blocked on.
func (h *Hub) broadcast(conversationID uuid.UUID, payload []byte, except *Client) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.rooms[conversationID] {
		if client == except {
			continue
		}
		if !client.enqueue(payload) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		log.Printf("evicting slow chat client %s/%s", client.Role, client.UserID)
		h.Disconnect(client)
		client.shutdown()
	}
}

func (h *Hub) conversationLock(conversationID uuid.UUID) *sync.Mutex {
	h.convMuMu.Lock()
	defer h.convMuMu.Unlock()
	lock, ok := h.convMu[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		h.convMu[conversationID] = lock
	}
	return lock
}
