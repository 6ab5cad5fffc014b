package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/notify"
)

var ErrInvalidMessage = errors.New("invalid change message")

// ChangeMessage is the wire form of a notify.Event. It carries only what
// changed; consumers reload the data themselves.
type ChangeMessage struct {
	Kind      notify.Kind `json:"kind"`
	UserID    string      `json:"user_id"`
	EntityID  string      `json:"entity_id,omitempty"`
	Month     string      `json:"month,omitempty"` // MM-YYYY
	Timestamp time.Time   `json:"timestamp"`
}

// NewChangeMessage converts e. A zero e.At is replaced with the current time.
func NewChangeMessage(e notify.Event) *ChangeMessage {
	msg := &ChangeMessage{
		Kind:      e.Kind,
		UserID:    e.UserID,
		EntityID:  e.EntityID,
		Timestamp: e.At,
	}
	if !e.Month.IsZero() {
		msg.Month = e.Month.String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if _, err := msg.Event(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Event converts the message back into a notify.Event.
func (m *ChangeMessage) Event() (notify.Event, error) {
	switch m.Kind {
	case notify.KindTransaction, notify.KindBudget, notify.KindRecurring, notify.KindAccount, notify.KindCategory:
	default:
		return notify.Event{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	if strings.TrimSpace(m.UserID) == "" {
		return notify.Event{}, fmt.Errorf("%w: missing user_id", ErrInvalidMessage)
	}
	e := notify.Event{Kind: m.Kind, UserID: m.UserID, EntityID: m.EntityID, At: m.Timestamp}
	if m.Month != "" {
		month, err := core.ParseMonthKey(m.Month)
		if err != nil {
			return notify.Event{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		e.Month = month
	}
	return e, nil
}
