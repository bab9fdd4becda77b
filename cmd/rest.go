package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreconfig "github.com/AzielCF/az-typing/core/config"
	"github.com/AzielCF/az-typing/infrastructure/valkey"
	"github.com/AzielCF/az-typing/pkg/clock"
	pkgError "github.com/AzielCF/az-typing/pkg/error"
	"github.com/AzielCF/az-typing/pkg/msgworker"
	"github.com/AzielCF/az-typing/pkg/utils"
	"github.com/AzielCF/az-typing/presence/application"
	"github.com/AzielCF/az-typing/presence/domain/conversation"
	"github.com/AzielCF/az-typing/presence/domain/typing"
	"github.com/AzielCF/az-typing/presence/repository"
	"github.com/AzielCF/az-typing/ui/rest"
	"github.com/AzielCF/az-typing/ui/rest/middleware"
	"github.com/AzielCF/az-typing/ui/websocket"
	"github.com/AzielCF/az-typing/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Serve the typing API over http and websocket",
	Run:   restServer,
}

func init() {
	rootCmd.AddCommand(restCmd)
}

// server holds everything the rest command starts, so it can be torn down
// in reverse order.
type server struct {
	app     *fiber.App
	tracker *application.Tracker
	hub     *websocket.Hub
	pool    *msgworker.Pool
	vk      *valkey.Client
}

func newTypistStore(cfg *coreconfig.Config, vk *valkey.Client) (typing.TypistStore, error) {
	switch cfg.Typing.Store {
	case coreconfig.StoreMemory, "":
		return repository.NewMemoryTypistStore(), nil
	case coreconfig.StoreValkey:
		if vk == nil {
			return nil, fmt.Errorf("typing store %q needs VALKEY_ENABLED", cfg.Typing.Store)
		}
		// keep the keys a little longer than the in-process expiry window so
		// a crashed instance's typists eventually disappear
		return repository.NewValkeyTypistStore(vk, 2*cfg.Typing.ExpiryTimeout()), nil
	}
	return nil, fmt.Errorf("unknown typing store %q", cfg.Typing.Store)
}

func newServer(cfg *coreconfig.Config, vk *valkey.Client, clk clock.Clock) (*server, error) {
	store, err := newTypistStore(cfg, vk)
	if err != nil {
		return nil, err
	}

	resolver := conversation.Resolver{FoldTopicCase: cfg.Typing.TopicCaseFold}
	tracker := application.NewTracker(store, clk, cfg.Typing.ExpiryTimeout())
	typingUsecase := usecase.NewTypingService(tracker, resolver)
	healthUsecase := usecase.NewHealthService(tracker, vk, cfg)

	pool := msgworker.NewPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	hub := websocket.NewHub(typingUsecase, vk, cfg.App.ServerID)
	hub.SetPublishPool(pool)
	tracker.SetRenderer(hub)

	app := fiber.New(fiber.Config{
		EnableTrustedProxyCheck: len(cfg.App.TrustedProxies) > 0,
		TrustedProxies:          cfg.App.TrustedProxies,
		AppName:                 "az-typing",
		DisableStartupMessage:   true,
		ServerHeader:            "Hidden",
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.App.CorsAllowedOrigins, ", "),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())
	app.Use(limiter.New(limiter.Config{
		Max:        6000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	if cfg.App.Debug {
		app.Use(logger.New())
	}

	apiGroup := app.Group(cfg.App.BasePath + "/api")

	if len(cfg.App.BasicAuth) > 0 {
		account := make(map[string]string)
		for _, credential := range cfg.App.BasicAuth {
			user, pass, ok := splitCredential(credential)
			if !ok {
				return nil, fmt.Errorf("basic auth is not valid, please use the format <user>:<secret>")
			}
			account[user] = pass
		}
		apiGroup.Use(basicauth.New(basicauth.Config{
			Users: account,
			Next: func(c *fiber.Ctx) bool {
				// Allow CORS preflight without credentials.
				return c.Method() == fiber.MethodOptions
			},
		}))
	} else {
		logrus.Warn("[REST] APP_BASIC_AUTH is not set, the API is public")
	}

	rest.InitRestTyping(apiGroup, typingUsecase)
	rest.InitRestHealth(apiGroup, healthUsecase)
	rest.SetTransportPool(pool)
	rest.InitRestTransportPool(apiGroup)
	hub.RegisterRoutes(apiGroup)

	apiGroup.All("/*", func(c *fiber.Ctx) error {
		utils.PanicIfNeeded(pkgError.RouteNotFound(c.Path()))
		return nil
	})

	return &server{app: app, tracker: tracker, hub: hub, pool: pool, vk: vk}, nil
}

func connectValkey(cfg *coreconfig.Config) *valkey.Client {
	if !cfg.Valkey.Enabled {
		return nil
	}
	vk, err := valkey.NewClient(valkey.Config{
		Address:   cfg.Valkey.Address,
		Password:  cfg.Valkey.Password,
		DB:        cfg.Valkey.DB,
		KeyPrefix: cfg.Valkey.KeyPrefix,
	})
	if err != nil {
		logrus.Fatalf("[VALKEY] %v", err)
	}
	logrus.Infof("[VALKEY] Connected to %s", cfg.Valkey.Address)
	return vk
}

func restServer(_ *cobra.Command, _ []string) {
	cfg := coreconfig.Global
	vk := connectValkey(cfg)

	srv, err := newServer(cfg, vk, clock.Real())
	if err != nil {
		logrus.Fatalf("[REST] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv.pool.Start(ctx)
	go srv.hub.Run(ctx)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := srv.app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
	}()

	logrus.Infof("[REST] Listening on :%s (server %s)", cfg.App.Port, cfg.App.ServerID)
	if err := srv.app.Listen(":" + cfg.App.Port); err != nil {
		logrus.Errorf("[REST] Failed to start: %v", err)
	}

	srv.stop(cancel)
}

func (s *server) stop(cancel context.CancelFunc) {
	logrus.Info("[APP] Stopping application...")
	s.tracker.Close()
	cancel()
	s.pool.Stop()
	if s.vk != nil {
		s.vk.Close()
	}
	logrus.Info("[APP] Application stopped cleanly.")
}
