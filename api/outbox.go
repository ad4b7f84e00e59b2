package api

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/linlinbupt123-crypto/wallet_bot/service"
)

// Message is one bot message waiting for delivery.
type Message struct {
	Ref      string `json:"ref"`
	Text     string `json:"text"`
	PromptID string `json:"prompt_id,omitempty"`
	Expects  string `json:"expects,omitempty"`
}

// Outbox is the service.Notifier behind the HTTP routes. Messages queue per
// user until the next response for that user drains them.
type Outbox struct {
	mu    sync.Mutex
	queue map[string][]Message
}

func NewOutbox() *Outbox {
	return &Outbox{queue: make(map[string][]Message)}
}

var _ service.Notifier = (*Outbox)(nil)

func (o *Outbox) Notify(_ context.Context, userID, text string) error {
	o.push(userID, Message{Ref: uuid.NewString(), Text: text})
	return nil
}

func (o *Outbox) Prompt(_ context.Context, userID string, p service.Prompt) (string, error) {
	ref := uuid.NewString()
	o.push(userID, Message{Ref: ref, Text: p.Text, PromptID: p.ID, Expects: string(p.Kind)})
	return ref, nil
}

// Drain returns and forgets the queued messages of userID, oldest first.
func (o *Outbox) Drain(userID string) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.queue[userID]
	delete(o.queue, userID)
	if msgs == nil {
		return []Message{}
	}
	return msgs
}

func (o *Outbox) push(userID string, m Message) {
	o.mu.Lock()
	o.queue[userID] = append(o.queue[userID], m)
	o.mu.Unlock()
}
