package conversation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind distinguishes private-message groups from stream topics.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPMGroup
	KindStreamTopic
)

func (k Kind) String() string {
	switch k {
	case KindPMGroup:
		return "pm"
	case KindStreamTopic:
		return "stream"
	default:
		return "unknown"
	}
}

const (
	pmPrefix     = "pm:"
	streamPrefix = "stream:"
)

var ErrInvalidKey = errors.New("invalid conversation key")

// Key is the canonical identity of a conversation. It is comparable and can
// be used directly as a map key; two keys are equal iff their String forms
// are equal.
type Key struct {
	kind     Kind
	users    string // canonical "3,7,9" for PM groups
	streamID int64
	topic    string
}

// NewPMGroup builds a PM group key. Non-positive ids are ignored and the rest
// are deduplicated and sorted, so input order never matters.
func NewPMGroup(ids ...int64) (Key, bool) {
	clean := SortedIDs(ids)
	if len(clean) == 0 {
		return Key{}, false
	}
	parts := make([]string, len(clean))
	for i, id := range clean {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return Key{kind: KindPMGroup, users: strings.Join(parts, ",")}, true
}

// NewStreamTopic builds a stream+topic key. The topic is used as given apart
// from trimming; case policy belongs to Resolver.
func NewStreamTopic(streamID int64, topic string) (Key, bool) {
	topic = strings.TrimSpace(topic)
	if streamID <= 0 || topic == "" {
		return Key{}, false
	}
	return Key{kind: KindStreamTopic, streamID: streamID, topic: topic}, true
}

// SortedIDs returns the positive ids in ascending order without duplicates.
func SortedIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	uniq := out[:0]
	for _, id := range out {
		if len(uniq) > 0 && uniq[len(uniq)-1] == id {
			continue
		}
		uniq = append(uniq, id)
	}
	return uniq
}

func (k Key) Kind() Kind {
	return k.kind
}

func (k Key) IsZero() bool {
	return k.kind == KindUnknown
}

// UserIDs returns the members of a PM group key, ascending. It returns nil
// for stream keys.
func (k Key) UserIDs() []int64 {
	if k.kind != KindPMGroup {
		return nil
	}
	parts := strings.Split(k.users, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (k Key) StreamID() int64 {
	return k.streamID
}

func (k Key) Topic() string {
	return k.topic
}

// ForSender returns the key as seen by the recipients of a notification sent
// by sender: for PM groups the sender joins the member set, stream keys are
// unchanged.
func (k Key) ForSender(sender int64) Key {
	if k.kind != KindPMGroup || sender <= 0 {
		return k
	}
	withSender, ok := NewPMGroup(append(k.UserIDs(), sender)...)
	if !ok {
		return k
	}
	return withSender
}

// String returns the canonical form: "pm:3,7" or "stream:5:topic".
func (k Key) String() string {
	switch k.kind {
	case KindPMGroup:
		return pmPrefix + k.users
	case KindStreamTopic:
		return streamPrefix + strconv.FormatInt(k.streamID, 10) + ":" + k.topic
	default:
		return ""
	}
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	switch {
	case strings.HasPrefix(s, pmPrefix):
		raw := strings.Split(strings.TrimPrefix(s, pmPrefix), ",")
		ids := make([]int64, 0, len(raw))
		for _, r := range raw {
			id, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
			if err != nil {
				return Key{}, fmt.Errorf("%w: bad user id %q", ErrInvalidKey, r)
			}
			ids = append(ids, id)
		}
		k, ok := NewPMGroup(ids...)
		if !ok {
			return Key{}, fmt.Errorf("%w: empty pm group", ErrInvalidKey)
		}
		return k, nil

	case strings.HasPrefix(s, streamPrefix):
		rest := strings.TrimPrefix(s, streamPrefix)
		idPart, topic, found := strings.Cut(rest, ":")
		if !found {
			return Key{}, fmt.Errorf("%w: missing topic", ErrInvalidKey)
		}
		streamID, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			return Key{}, fmt.Errorf("%w: bad stream id %q", ErrInvalidKey, idPart)
		}
		k, ok := NewStreamTopic(streamID, topic)
		if !ok {
			return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return k, nil
	}
	return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
