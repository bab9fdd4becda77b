package infrastructure

import (
	"context"

	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/sirupsen/logrus"
)

// LogTransport only logs what would have been sent.
type LogTransport struct{}

func (LogTransport) Notify(ctx context.Context, key conversation.Key, op typing.Operation) error {
	logrus.WithFields(logrus.Fields{
		"conversation": key.String(),
		"op":           op,
	}).Info("[TRANSPORT] Typing notification")
	return nil
}
