package conversation

import (
	"strings"

	"golang.org/x/text/cases"
)

// Recipient is what the compose box is addressed to: either a set of users
// or a stream and topic. Setting both makes it unresolvable.
type Recipient struct {
	UserIDs  []int64
	StreamID int64
	Topic    string
}

func (r Recipient) IsPrivate() bool {
	return len(r.UserIDs) > 0
}

// Resolver turns recipients into canonical keys.
//
// Topics are always trimmed. With FoldTopicCase set, topics are Unicode
// case-folded so "Bug" and "bug" share one key; otherwise they compare
// exactly.
type Resolver struct {
	FoldTopicCase bool
}

func (r Resolver) Resolve(rcpt Recipient) (Key, bool) {
	hasStream := rcpt.StreamID != 0 || strings.TrimSpace(rcpt.Topic) != ""
	switch {
	case rcpt.IsPrivate() && hasStream:
		return Key{}, false
	case rcpt.IsPrivate():
		return NewPMGroup(rcpt.UserIDs...)
	case hasStream:
		return NewStreamTopic(rcpt.StreamID, r.NormalizeTopic(rcpt.Topic))
	}
	return Key{}, false
}

func (r Resolver) NormalizeTopic(topic string) string {
	topic = strings.TrimSpace(topic)
	if r.FoldTopicCase {
		topic = cases.Fold().String(topic)
	}
	return topic
}
