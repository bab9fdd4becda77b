package usecase

import (
	"context"
	"fmt"

	domainTyping "github.com/AzielCF/az-typing/domains/typing"
	pkgError "github.com/AzielCF/az-typing/pkg/error"
	"github.com/AzielCF/az-typing/presence/application"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/AzielCF/az-typing/validations"
)

type serviceTyping struct {
	tracker  *application.Tracker
	resolver conversation.Resolver
}

func NewTypingService(tracker *application.Tracker, resolver conversation.Resolver) domainTyping.ITypingUsecase {
	return &serviceTyping{
		tracker:  tracker,
		resolver: resolver,
	}
}

func (service serviceTyping) Notify(ctx context.Context, request domainTyping.NotifyRequest) (response domainTyping.NotifyResponse, err error) {
	if err = validations.ValidateTypingNotification(ctx, request); err != nil {
		return response, err
	}

	key, ok := service.resolver.Resolve(conversation.Recipient{
		UserIDs:  request.To,
		StreamID: request.StreamID,
		Topic:    request.Topic,
	})
	if !ok {
		return response, pkgError.ValidationError("Bad arguments. Should have 'to' or both 'stream_id' and 'topic'.")
	}
	// recipients see the sender as part of the group
	key = key.ForSender(request.SenderID)

	op, err := typing.ParseOperation(request.Op)
	if err != nil {
		return response, pkgError.ValidationError(err.Error())
	}

	err = service.tracker.HandleEvent(ctx, typing.Event{Conversation: key, TypistID: request.SenderID, Op: op})
	if err != nil {
		return response, pkgError.InternalServerError(err.Error())
	}

	typists, err := service.tracker.GetGroupTypists(ctx, key)
	if err != nil {
		return response, pkgError.InternalServerError(err.Error())
	}

	response.Conversation = key
	response.Op = string(op)
	response.Typists = typists
	return response, nil
}

func (service serviceTyping) Overview(ctx context.Context) (response domainTyping.OverviewResponse, err error) {
	all, err := service.tracker.GetAllTypists(ctx)
	if err != nil {
		return response, pkgError.InternalServerError(err.Error())
	}
	keys, err := service.tracker.Conversations(ctx)
	if err != nil {
		return response, pkgError.InternalServerError(err.Error())
	}

	response.Typists = all
	response.Conversations = make([]domainTyping.TypistsResponse, 0, len(keys))
	for _, key := range keys {
		item, err := service.typistsOf(ctx, key)
		if err != nil {
			return response, err
		}
		response.Conversations = append(response.Conversations, item)
	}
	return response, nil
}

func (service serviceTyping) GetPMGroup(ctx context.Context, userIDs []int64) (domainTyping.TypistsResponse, error) {
	key, ok := conversation.NewPMGroup(userIDs...)
	if !ok {
		return domainTyping.TypistsResponse{}, pkgError.ValidationError("ids: must contain at least one positive user id.")
	}
	return service.typistsOf(ctx, key)
}

func (service serviceTyping) GetStreamTopic(ctx context.Context, streamID int64, topic string) (domainTyping.TypistsResponse, error) {
	key, ok := conversation.NewStreamTopic(streamID, service.resolver.NormalizeTopic(topic))
	if !ok {
		return domainTyping.TypistsResponse{}, pkgError.ValidationError("stream_id and topic are required.")
	}
	return service.typistsOf(ctx, key)
}

func (service serviceTyping) GetConversation(ctx context.Context, raw string) (domainTyping.TypistsResponse, error) {
	key, err := conversation.ParseKey(raw)
	if err != nil {
		return domainTyping.TypistsResponse{}, pkgError.ValidationError(err.Error())
	}
	if key.Kind() == conversation.KindStreamTopic {
		key, _ = conversation.NewStreamTopic(key.StreamID(), service.resolver.NormalizeTopic(key.Topic()))
	}
	return service.typistsOf(ctx, key)
}

func (service serviceTyping) typistsOf(ctx context.Context, key conversation.Key) (domainTyping.TypistsResponse, error) {
	typists, err := service.tracker.GetGroupTypists(ctx, key)
	if err != nil {
		return domainTyping.TypistsResponse{}, pkgError.InternalServerError(fmt.Sprintf("failed to read typists: %v", err))
	}
	return domainTyping.TypistsResponse{
		Conversation: key,
		Kind:         key.Kind().String(),
		Typists:      typists,
	}, nil
}
