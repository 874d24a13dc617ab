package amqp

import (
	"encoding/json"
	"time"

	"ledgerview/internal/notify"
)

// NoticeMessage is the wire form of a session notice on the exchange.
type NoticeMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Kind      string    `json:"kind"`
	Code      string    `json:"code,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNoticeMessage wraps a notice, stamping the publish time.
func NewNoticeMessage(n notify.Notice) *NoticeMessage {
	return &NoticeMessage{
		ID:        n.ID,
		SessionID: n.SessionID,
		Kind:      string(n.Kind),
		Code:      n.Code,
		Operation: n.Operation,
		Message:   n.Message,
		At:        n.At,
		Timestamp: time.Now(),
	}
}

// Notice converts the message back to a notice.
func (m *NoticeMessage) Notice() notify.Notice {
	return notify.Notice{
		ID:        m.ID,
		SessionID: m.SessionID,
		Kind:      notify.Kind(m.Kind),
		Code:      m.Code,
		Operation: m.Operation,
		Message:   m.Message,
		At:        m.At,
	}
}

// ToJSON converts the message to JSON bytes
func (m *NoticeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NoticeMessageFromJSON creates a message from JSON bytes
func NoticeMessageFromJSON(data []byte) (*NoticeMessage, error) {
	var msg NoticeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
