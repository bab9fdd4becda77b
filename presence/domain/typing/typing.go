package typing

import (
	"context"
	"fmt"
	"strings"

	"github.com/AzielCF/az-typing/presence/domain/conversation"
)

// Operation is the kind of typing notification.
type Operation string

const (
	OpStart Operation = "start"
	OpStop  Operation = "stop"
)

func (o Operation) Valid() bool {
	return o == OpStart || o == OpStop
}

// ParseOperation accepts "start"/"stop" in any case.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", fmt.Errorf("invalid typing operation %q", s)
	}
	return op, nil
}

// Event is an inbound typing notification: TypistID started or stopped
// composing in Conversation.
type Event struct {
	Conversation conversation.Key `json:"conversation"`
	TypistID     int64            `json:"typist_id"`
	Op           Operation        `json:"op"`
}

// Transport delivers outbound notifications. Implementations are
// fire-and-forget from the caller's point of view: errors are reported for
// logging only and are never retried.
type Transport interface {
	Notify(ctx context.Context, key conversation.Key, op Operation) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, key conversation.Key, op Operation) error

func (f TransportFunc) Notify(ctx context.Context, key conversation.Key, op Operation) error {
	return f(ctx, key, op)
}

// Update describes a change in the typist set of one conversation.
type Update struct {
	Conversation conversation.Key `json:"conversation"`
	Typists      []int64          `json:"typists"`
	Op           Operation        `json:"op"`
	TypistID     int64            `json:"typist_id"`
	Expired      bool             `json:"expired,omitempty"`
}

// Renderer is notified whenever the typist set of a conversation changes.
type Renderer interface {
	TypistsChanged(update Update)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(update Update)

func (f RendererFunc) TypistsChanged(update Update) {
	f(update)
}
