package usecase

import (
	"context"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-typing/core/config"
	"github.com/AzielCF/az-typing/domains/health"
	"github.com/AzielCF/az-typing/infrastructure/valkey"
	pkgError "github.com/AzielCF/az-typing/pkg/error"
	"github.com/AzielCF/az-typing/presence/application"
	"github.com/dustin/go-humanize"
)

type healthService struct {
	tracker   *application.Tracker
	vk        *valkey.Client
	cfg       *coreconfig.Config
	startedAt time.Time
}

func NewHealthService(tracker *application.Tracker, vk *valkey.Client, cfg *coreconfig.Config) health.IHealthUsecase {
	return &healthService{
		tracker:   tracker,
		vk:        vk,
		cfg:       cfg,
		startedAt: time.Now(),
	}
}

func (s *healthService) GetStatus(ctx context.Context) (health.StatusResponse, error) {
	convs, err := s.tracker.Conversations(ctx)
	if err != nil {
		return health.StatusResponse{}, pkgError.InternalServerError(err.Error())
	}
	typists, err := s.tracker.GetAllTypists(ctx)
	if err != nil {
		return health.StatusResponse{}, pkgError.InternalServerError(err.Error())
	}

	res := health.StatusResponse{
		Status:              health.StatusOk,
		ActiveConversations: len(convs),
		ActiveTypists:       len(typists),
		PendingExpiries:     s.tracker.PendingExpiries(),
		StartedAt:           s.startedAt,
		Uptime:              strings.TrimSpace(humanize.RelTime(s.startedAt, time.Now(), "", "")),
		Settings:            coreconfig.GetAllSettings(),
	}
	if s.cfg != nil {
		res.ServerID = s.cfg.App.ServerID
		res.Version = s.cfg.App.Version
		res.Store = s.cfg.Typing.Store
		res.ValkeyEnabled = s.cfg.Valkey.Enabled
	}
	if s.vk != nil {
		res.ValkeyConnected = s.vk.IsConnected()
		if !res.ValkeyConnected {
			res.Status = health.StatusDegraded
		}
	} else if res.ValkeyEnabled {
		res.Status = health.StatusDegraded
	}
	return res, nil
}
