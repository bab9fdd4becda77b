package typing

import (
	"context"

	"github.com/AzielCF/az-typing/presence/domain/conversation"
)

type ITypingUsecase interface {
	Notify(ctx context.Context, request NotifyRequest) (NotifyResponse, error)
	Overview(ctx context.Context) (OverviewResponse, error)
	GetPMGroup(ctx context.Context, userIDs []int64) (TypistsResponse, error)
	GetStreamTopic(ctx context.Context, streamID int64, topic string) (TypistsResponse, error)
	GetConversation(ctx context.Context, key string) (TypistsResponse, error)
}

// NotifyRequest is the body of a typing notification. Exactly one of To or
// the StreamID+Topic pair addresses the conversation.
type NotifyRequest struct {
	Op       string  `json:"op" form:"op"`
	SenderID int64   `json:"sender_id" form:"sender_id"`
	To       []int64 `json:"to,omitempty" form:"to"`
	StreamID int64   `json:"stream_id,omitempty" form:"stream_id"`
	Topic    string  `json:"topic,omitempty" form:"topic"`
}

type NotifyResponse struct {
	Conversation conversation.Key `json:"conversation"`
	Op           string           `json:"op"`
	Typists      []int64          `json:"typists"`
}

type TypistsResponse struct {
	Conversation conversation.Key `json:"conversation"`
	Kind         string           `json:"kind"`
	Typists      []int64          `json:"typists"`
}

type OverviewResponse struct {
	Typists       []int64           `json:"typists"`
	Conversations []TypistsResponse `json:"conversations"`
}
