package typing

import (
	"context"

	"github.com/AzielCF/az-typing/presence/domain/conversation"
)

// TypistStore holds, per conversation, the ascending and duplicate-free set
// of user ids currently typing there.
type TypistStore interface {
	// AddTypist inserts id into the conversation's set. Adding an id twice
	// leaves a single entry.
	AddTypist(ctx context.Context, key conversation.Key, id int64) error

	// RemoveTypist removes id and reports whether it was present. An unknown
	// conversation and an absent id both report false.
	RemoveTypist(ctx context.Context, key conversation.Key, id int64) (bool, error)

	// GetGroupTypists returns the sorted set for key, empty when none.
	GetGroupTypists(ctx context.Context, key conversation.Key) ([]int64, error)

	// GetAllTypists returns the sorted union over all conversations.
	GetAllTypists(ctx context.Context) ([]int64, error)

	// Conversations lists the conversations that have at least one typist.
	Conversations(ctx context.Context) ([]conversation.Key, error)
}
