package chat

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/docline/docline/models"
)

// Inbound event types (client -> hub).
const (
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
)

// Outbound event types (hub -> client).
const (
	EventNewMessage          = "new_message"
	EventMessageNotification = "message_notification"
	EventUserTyping          = "user_typing"
	EventError               = "error"
)

// ClientEvent is the inbound wire envelope. Every event names a
// conversation; the extra fields apply per type.
type ClientEvent struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Content        string    `json:"content,omitempty"`
	IsTyping       bool      `json:"is_typing,omitempty"`
}

// Envelope carries only the type tag, so receivers can dispatch before
// decoding the full payload.
type Envelope struct {
	Type string `json:"type"`
}

type NewMessageEvent struct {
	Type              string         `json:"type"`
	ConversationID    uuid.UUID      `json:"conversation_id"`
	Message           models.Message `json:"message"`
	SenderDisplayName string         `json:"sender_display_name"`
}

type MessageNotificationEvent struct {
	Type              string    `json:"type"`
	ConversationID    uuid.UUID `json:"conversation_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	Content           string    `json:"content"`
	UnreadCount       int64     `json:"unread_count"`
}

type UserTypingEvent struct {
	Type            string    `json:"type"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	UserDisplayName string    `json:"user_display_name"`
	IsTyping        bool      `json:"is_typing"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newMessagePayload(msg *models.Message, senderName string) []byte {
	return mustMarshal(NewMessageEvent{
		Type:              EventNewMessage,
		ConversationID:    msg.ConversationID,
		Message:           *msg,
		SenderDisplayName: senderName,
	})
}

func notificationPayload(conversationID uuid.UUID, senderName, content string, unread int64) []byte {
	return mustMarshal(MessageNotificationEvent{
		Type:              EventMessageNotification,
		ConversationID:    conversationID,
		SenderDisplayName: senderName,
		Content:           content,
		UnreadCount:       unread,
	})
}

func typingPayload(conversationID uuid.UUID, userName string, isTyping bool) []byte {
	return mustMarshal(UserTypingEvent{
		Type:            EventUserTyping,
		ConversationID:  conversationID,
		UserDisplayName: userName,
		IsTyping:        isTyping,
	})
}

func errorPayload(message string) []byte {
	return mustMarshal(ErrorEvent{Type: EventError, Message: message})
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All event structs are marshalable; this cannot fail at runtime.
		panic(err)
	}
	return data
}
