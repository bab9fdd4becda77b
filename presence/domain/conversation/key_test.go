package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPMGroup_OrderIndependent(t *testing.T) {
	a, ok := NewPMGroup(9, 3, 7)
	require.True(t, ok)
	b, ok := NewPMGroup(7, 9, 3, 3)
	require.True(t, ok)

	assert.Equal(t, a, b)
	assert.Equal(t, "pm:3,7,9", a.String())
	assert.Equal(t, []int64{3, 7, 9}, a.UserIDs())
	assert.Equal(t, KindPMGroup, a.Kind())
}

func TestNewPMGroup_RejectsEmpty(t *testing.T) {
	_, ok := NewPMGroup()
	assert.False(t, ok)

	_, ok = NewPMGroup(0, -4)
	assert.False(t, ok)
}

func TestNewStreamTopic(t *testing.T) {
	k, ok := NewStreamTopic(5, "  bug ")
	require.True(t, ok)
	assert.Equal(t, "stream:5:bug", k.String())
	assert.Equal(t, int64(5), k.StreamID())
	assert.Equal(t, "bug", k.Topic())
	assert.Nil(t, k.UserIDs())

	_, ok = NewStreamTopic(0, "bug")
	assert.False(t, ok)
	_, ok = NewStreamTopic(5, "   ")
	assert.False(t, ok)
}

func TestKey_UsableAsMapKey(t *testing.T) {
	m := map[Key]int{}
	a, _ := NewPMGroup(1, 2)
	b, _ := NewPMGroup(2, 1)
	s, _ := NewStreamTopic(1, "1,2")

	m[a]++
	m[b]++
	m[s]++

	assert.Len(t, m, 2)
	assert.Equal(t, 2, m[a])
}

func TestParseKey_RoundTrip(t *testing.T) {
	pm, _ := NewPMGroup(4, 2)
	st, _ := NewStreamTopic(12, "deploy: friday")

	for _, k := range []Key{pm, st} {
		parsed, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "dm:1", "pm:", "pm:a,b", "stream:5", "stream:x:bug", "stream:5:  "} {
		_, err := ParseKey(s)
		assert.ErrorIs(t, err, ErrInvalidKey, s)
	}
}

func TestKey_JSONUsesCanonicalString(t *testing.T) {
	k, _ := NewStreamTopic(5, "bug")
	b, err := json.Marshal(struct {
		Conversation Key `json:"conversation"`
	}{k})
	require.NoError(t, err)
	assert.JSONEq(t, `{"conversation":"stream:5:bug"}`, string(b))

	var decoded struct {
		Conversation Key `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, k, decoded.Conversation)
}

func TestKey_ForSender(t *testing.T) {
	k, _ := NewPMGroup(3)
	assert.Equal(t, "pm:3,8", k.ForSender(8).String())
	assert.Equal(t, "pm:3", k.ForSender(3).String())

	st, _ := NewStreamTopic(5, "bug")
	assert.Equal(t, st, st.ForSender(8))
}

func TestSortedIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 5}, SortedIDs([]int64{5, 1, 2, 5, 1, 0}))
	assert.Empty(t, SortedIDs(nil))
}
