package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	coreconfig "github.com/AzielCF/az-typing/core/config"
	"github.com/AzielCF/az-typing/pkg/clock"
	"github.com/AzielCF/az-typing/pkg/utils"
	"github.com/AzielCF/az-typing/presence/application"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComposeLine(t *testing.T) {
	tests := []struct {
		line   string
		action composeAction
		rcpt   conversation.Recipient
	}{
		{"hello", actionDraft, conversation.Recipient{}},
		{"/pm 3, 7", actionRecipient, conversation.Recipient{UserIDs: []int64{3, 7}}},
		{"/stream 5 bug report", actionRecipient, conversation.Recipient{StreamID: 5, Topic: "bug report"}},
		{"/send", actionSend, conversation.Recipient{}},
		{"/cancel", actionCancel, conversation.Recipient{}},
		{"/status", actionStatus, conversation.Recipient{}},
		{"/quit", actionQuit, conversation.Recipient{}},
		{"/pm a", actionInvalid, conversation.Recipient{}},
		{"/stream x bug", actionInvalid, conversation.Recipient{}},
		{"/dance", actionInvalid, conversation.Recipient{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd := parseComposeLine(tt.line)
			assert.Equal(t, tt.action, cmd.action)
			if tt.action == actionRecipient {
				assert.Equal(t, tt.rcpt, cmd.recipient)
			}
			if tt.action == actionInvalid {
				assert.Error(t, cmd.err)
			}
		})
	}
}

type opRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *opRecorder) Notify(ctx context.Context, key conversation.Key, op typing.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, string(op)+" "+key.String())
	return nil
}

func TestComposeSession(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec := &opRecorder{}
	notifier := application.NewNotifier(rec, clk, 5*time.Second, conversation.Resolver{})
	var out bytes.Buffer
	session := newComposeSession(notifier, clk, &out)
	ctx := context.Background()

	for _, line := range []string{"/stream 5 bug", "h", "he", "hel", "/pm 3,7", "/send"} {
		assert.False(t, session.handle(ctx, line))
	}
	assert.Equal(t, []string{
		"start stream:5:bug",
		"stop stream:5:bug",
		"start pm:3,7",
		"stop pm:3,7",
	}, rec.ops)

	session.handle(ctx, "again")
	clk.Advance(2 * time.Second)
	session.handle(ctx, "/status")
	assert.Contains(t, out.String(), "typing in pm:3,7 since 2 seconds ago")

	assert.True(t, session.handle(ctx, "/quit"))
	assert.Equal(t, "stop pm:3,7", rec.ops[len(rec.ops)-1])
}

func testConfig() *coreconfig.Config {
	return &coreconfig.Config{
		App: coreconfig.AppConfig{
			ServerID:           "node-test",
			BasicAuth:          []string{"admin:secret"},
			CorsAllowedOrigins: []string{"http://localhost:3000"},
		},
		Typing:     coreconfig.TypingConfig{IdleTimeoutMs: 5000, ExpiryTimeoutMs: 15000, Store: coreconfig.StoreMemory},
		WorkerPool: coreconfig.WorkerPoolConfig{Size: 1, QueueSize: 8},
	}
}

func TestNewServer_RoutesAndAuth(t *testing.T) {
	srv, err := newServer(testConfig(), nil, clock.NewFake(time.Now()))
	require.NoError(t, err)
	t.Cleanup(srv.tracker.Close)

	req := httptest.NewRequest(http.MethodGet, "/api/typing", nil)
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/typing", strings.NewReader(`{"op":"start","sender_id":4,"to":[3]}`))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("admin", "secret")
	resp, err = srv.app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, srv.tracker.PendingExpiries())

	req = httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = srv.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body utils.ResponseData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 404, body.Status)
	assert.Equal(t, "NOT_FOUND_ERROR", body.Code)
	assert.Equal(t, "API Endpoint not found: /api/nope", body.Message)
}

func TestNewServer_RejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.App.BasicAuth = []string{"nocolon"}
	_, err := newServer(cfg, nil, clock.NewFake(time.Now()))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Typing.Store = coreconfig.StoreValkey
	_, err = newServer(cfg, nil, clock.NewFake(time.Now()))
	assert.ErrorContains(t, err, "VALKEY_ENABLED")

	cfg = testConfig()
	cfg.Typing.Store = "etcd"
	_, err = newServer(cfg, nil, clock.NewFake(time.Now()))
	assert.ErrorContains(t, err, "unknown typing store")
}

func TestInitEnvConfig_ZeroTimeoutFlagsUseDefaults(t *testing.T) {
	t.Setenv("SERVER_ID", "node-flags")
	t.Setenv("APP_BASE_DIR", t.TempDir())
	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("idle-timeout-ms", "0"))
	require.NoError(t, flags.Set("expiry-timeout-ms", "0"))

	initEnvConfig()

	assert.Equal(t, coreconfig.DefaultIdleTimeoutMs, coreconfig.Global.Typing.IdleTimeoutMs)
	assert.Equal(t, coreconfig.DefaultExpiryTimeoutMs, coreconfig.Global.Typing.ExpiryTimeoutMs)
}
