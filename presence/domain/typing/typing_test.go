package typing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation(" START ")
	require.NoError(t, err)
	assert.Equal(t, OpStart, op)

	op, err = ParseOperation("stop")
	require.NoError(t, err)
	assert.Equal(t, OpStop, op)

	_, err = ParseOperation("pause")
	assert.Error(t, err)
}
