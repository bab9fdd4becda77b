package error

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenericErrors(t *testing.T) {
	cases := []struct {
		err    GenericError
		code   string
		status int
	}{
		{ValidationError("bad"), "VALIDATION_ERROR", http.StatusBadRequest},
		{NotFoundError("missing"), "NOT_FOUND_ERROR", http.StatusNotFound},
		{InternalServerError("boom"), "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.ErrCode())
		assert.Equal(t, tc.status, tc.err.StatusCode())
	}
	assert.Equal(t, "bad", ValidationError("bad").Error())
	assert.Equal(t, "API Endpoint not found: /api/nope", RouteNotFound("/api/nope").Error())
}
