package validations

import (
	"context"

	domainTyping "github.com/AzielCF/az-typing/domains/typing"
	pkgError "github.com/AzielCF/az-typing/pkg/error"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	msgInsufficientArguments = "Insufficient arguments. Should have 'to' or both 'stream_id' and 'topic'."
	msgAllArguments          = "All 'to', 'stream_id', and 'topic' at once are not accepted"
	msgBadArguments          = "Bad arguments. Should have 'to' or both 'stream_id' and 'topic'."
)

func ValidateTypingNotification(ctx context.Context, request domainTyping.NotifyRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Op, validation.Required, validation.In(string(typing.OpStart), string(typing.OpStop))),
		validation.Field(&request.SenderID, validation.Required, validation.Min(int64(1))),
		validation.Field(&request.To, validation.Each(validation.Min(int64(1)))),
		validation.Field(&request.StreamID, validation.Min(int64(0))),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	hasTo := len(request.To) > 0
	hasStream := request.StreamID != 0
	hasTopic := request.Topic != ""

	switch {
	case !hasTo && !hasStream && !hasTopic:
		return pkgError.ValidationError(msgInsufficientArguments)
	case hasTo && hasStream && hasTopic:
		return pkgError.ValidationError(msgAllArguments)
	case hasTo && !hasStream && !hasTopic:
		return nil
	case !hasTo && hasStream && hasTopic:
		return nil
	}
	return pkgError.ValidationError(msgBadArguments)
}
