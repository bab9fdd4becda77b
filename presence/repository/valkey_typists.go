package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AzielCF/az-typing/infrastructure/valkey"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/sirupsen/logrus"
)

var _ typing.TypistStore = (*ValkeyTypistStore)(nil)

// ValkeyTypistStore implements TypistStore with one sorted set per
// conversation (score and member are the user id), so several server
// instances share the roll-up. Every add refreshes a TTL on the set, which
// cleans up after an instance that died before its expiry timers fired.
type ValkeyTypistStore struct {
	client *valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyTypistStore creates a store whose sets expire ttl after the last add.
func NewValkeyTypistStore(client *valkey.Client, ttl time.Duration) *ValkeyTypistStore {
	if ttl < time.Second {
		ttl = time.Second
	}
	return &ValkeyTypistStore{
		client: client,
		prefix: client.Key("typists") + ":",
		ttl:    ttl,
	}
}

func (s *ValkeyTypistStore) fullKey(key conversation.Key) string {
	return s.prefix + key.String()
}

func (s *ValkeyTypistStore) AddTypist(ctx context.Context, key conversation.Key, id int64) error {
	inner := s.client.Inner()
	k := s.fullKey(key)

	results := inner.DoMulti(ctx,
		inner.B().Zadd().Key(k).ScoreMember().ScoreMember(float64(id), strconv.FormatInt(id, 10)).Build(),
		inner.B().Expire().Key(k).Seconds(int64(s.ttl/time.Second)).Build(),
	)
	for _, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("failed to add typist %d to %s: %w", id, key, err)
		}
	}
	return nil
}

func (s *ValkeyTypistStore) RemoveTypist(ctx context.Context, key conversation.Key, id int64) (bool, error) {
	inner := s.client.Inner()
	cmd := inner.B().Zrem().Key(s.fullKey(key)).Member(strconv.FormatInt(id, 10)).Build()
	n, err := inner.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to remove typist %d from %s: %w", id, key, err)
	}
	return n > 0, nil
}

func (s *ValkeyTypistStore) GetGroupTypists(ctx context.Context, key conversation.Key) ([]int64, error) {
	return s.members(ctx, s.fullKey(key))
}

func (s *ValkeyTypistStore) GetAllTypists(ctx context.Context) ([]int64, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	var all []int64
	for _, k := range keys {
		ids, err := s.members(ctx, k)
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}
	return conversation.SortedIDs(all), nil
}

func (s *ValkeyTypistStore) Conversations(ctx context.Context) ([]conversation.Key, error) {
	keys, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	convs := make([]conversation.Key, 0, len(keys))
	for _, k := range keys {
		parsed, err := conversation.ParseKey(strings.TrimPrefix(k, s.prefix))
		if err != nil {
			logrus.Debugf("[VALKEY] Skipping foreign typists key %s: %v", k, err)
			continue
		}
		convs = append(convs, parsed)
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].String() < convs[j].String() })
	return convs, nil
}

func (s *ValkeyTypistStore) members(ctx context.Context, fullKey string) ([]int64, error) {
	inner := s.client.Inner()
	cmd := inner.B().Zrange().Key(fullKey).Min("0").Max("-1").Build()
	raw, err := inner.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		if valkey.IsNil(err) {
			return []int64{}, nil
		}
		return nil, fmt.Errorf("failed to read typists of %s: %w", fullKey, err)
	}

	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ValkeyTypistStore) scan(ctx context.Context) ([]string, error) {
	inner := s.client.Inner()
	var keys []string
	var cursor uint64

	for {
		cmd := inner.B().Scan().Cursor(cursor).Match(s.prefix + "*").Count(100).Build()
		result, err := inner.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to scan typists: %w", err)
		}
		keys = append(keys, result.Elements...)

		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
