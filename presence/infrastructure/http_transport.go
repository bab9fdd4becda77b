package infrastructure

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/valyala/fasthttp"
)

var _ typing.Transport = (*HTTPTransport)(nil)

// NotificationPayload is the body of POST /api/typing.
type NotificationPayload struct {
	Op       typing.Operation `json:"op"`
	SenderID int64            `json:"sender_id"`
	To       []int64          `json:"to,omitempty"`
	StreamID int64            `json:"stream_id,omitempty"`
	Topic    string           `json:"topic,omitempty"`
}

// NewNotificationPayload describes op on key as sent by sender.
func NewNotificationPayload(key conversation.Key, op typing.Operation, sender int64) NotificationPayload {
	p := NotificationPayload{Op: op, SenderID: sender}
	switch key.Kind() {
	case conversation.KindPMGroup:
		p.To = key.UserIDs()
	case conversation.KindStreamTopic:
		p.StreamID = key.StreamID()
		p.Topic = key.Topic()
	}
	return p
}

type HTTPTransportConfig struct {
	BaseURL   string
	SenderID  int64
	BasicAuth string // "user:pass", optional
	Timeout   time.Duration
}

// HTTPTransport posts notifications to a typing server.
type HTTPTransport struct {
	cfg    HTTPTransportConfig
	client *fasthttp.Client
}

func NewHTTPTransport(cfg HTTPTransportConfig, client *fasthttp.Client) *HTTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = &fasthttp.Client{
			Name:         "az-typing",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		}
	}
	return &HTTPTransport{cfg: cfg, client: client}
}

func (h *HTTPTransport) Notify(ctx context.Context, key conversation.Key, op typing.Operation) error {
	body, err := json.Marshal(NewNotificationPayload(key, op, h.cfg.SenderID))
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(h.cfg.BaseURL + "/api/typing")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if h.cfg.BasicAuth != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte(h.cfg.BasicAuth)))
	}
	req.SetBody(body)

	timeout := h.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := h.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("failed to send %s for %s: %w", op, key, err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("typing server answered %d for %s %s: %s", code, op, key, resp.Body())
	}
	return nil
}
