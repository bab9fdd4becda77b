package health

import (
	"context"
	"time"
)

type Status string

const (
	StatusOk       Status = "OK"
	StatusDegraded Status = "DEGRADED"
)

type StatusResponse struct {
	Status              Status         `json:"status"`
	ServerID            string         `json:"server_id"`
	Version             string         `json:"version"`
	Store               string         `json:"store"`
	ValkeyEnabled       bool           `json:"valkey_enabled"`
	ValkeyConnected     bool           `json:"valkey_connected"`
	ActiveConversations int            `json:"active_conversations"`
	ActiveTypists       int            `json:"active_typists"`
	PendingExpiries     int            `json:"pending_expiries"`
	StartedAt           time.Time      `json:"started_at"`
	Uptime              string         `json:"uptime"`
	Settings            map[string]any `json:"settings"`
}

type IHealthUsecase interface {
	GetStatus(ctx context.Context) (StatusResponse, error)
}
