package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bookpassport/internal/badge"
	"bookpassport/internal/config"
	"bookpassport/internal/database"
	"bookpassport/internal/handler"
	"bookpassport/internal/queue"
	"bookpassport/internal/realtime"
	"bookpassport/internal/redis"
	"bookpassport/internal/repository"
	"bookpassport/internal/service"
	"bookpassport/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 3. Repositories
	roomRepo := repository.NewChatRoomRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	bookRepo := repository.NewBookRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)
	exchangeRepo := repository.NewExchangeRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tokenRepo := repository.NewDeviceTokenRepository(db)

	// 4. Push providers
	var fcm, expo service.PushSender
	if cfg.PushEnabled() {
		client, err := service.NewFCMClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseClientEmail, cfg.FirebasePrivateKey)
		if err != nil {
			log.Printf("[Server] FCM disabled: %v", err)
		} else {
			fcm = client
		}
	}
	if cfg.ExpoPushEnabled {
		expo = service.NewExpoPushClient()
	}
	pushService := service.NewPushService(tokenRepo, fcm, expo)

	var dispatcher worker.PushDispatcher
	if pushService.Enabled() {
		dispatcher = pushService
	}

	// 5. Realtime + badge, Redis-backed when available
	hub := realtime.NewHub()
	var broker realtime.Broker = realtime.NewLocalBroker(hub)
	var badges badge.Store = badge.NewMemoryStore()
	var redisBroker *realtime.RedisBroker
	var manager *worker.Manager
	var publisher queue.Publisher

	if cfg.RedisURL != "" {
		rc, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("[Server] Redis unavailable, running single-instance: %v", err)
		} else {
			defer rc.Close()
			redisBroker = realtime.NewRedisBroker(rc.Client, hub)
			broker = redisBroker
			badges = badge.NewFallbackStore(badge.NewRedisStore(rc.Client), badges)
			publisher = queue.NewPublisher(rc.Client)

			mcfg := worker.DefaultManagerConfig()
			mcfg.WorkerCount = cfg.PushWorkerCount
			manager = worker.NewManager(queue.NewConsumer(rc.Client), worker.NewHandler(dispatcher, badges), mcfg)
		}
	}

	// 6. Services
	profileService := service.NewProfileService(profileRepo)
	pointsService := service.NewPointsService(pointsRepo, profileRepo)

	notifService := service.NewNotificationService(notifRepo, tokenRepo, broker, badges)
	notifService.SetBackgroundHandler(worker.NewHandler(dispatcher, badges))
	if publisher != nil {
		notifService.SetPublisher(publisher)
	}

	chatService := service.NewChatService(roomRepo, msgRepo, profileService, broker, notifService)
	bookService := service.NewBookService(bookRepo, pointsService, notifService)
	wishlistService := service.NewWishlistService(wishlistRepo, bookRepo)
	exchangeService := service.NewExchangeService(exchangeRepo, bookRepo, pointsService, notifService)
	aiService := service.NewAIService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)

	var mediaService handler.MediaService
	if cfg.MediaEnabled() {
		ms, err := service.NewMediaService(ctx, cfg)
		if err != nil {
			log.Printf("[Server] Media disabled: %v", err)
		} else {
			mediaService = ms
		}
	}

	// 7. Router
	router := NewRouter(RouterConfig{
		ChatHandler:         handler.NewChatHandler(chatService, hub, cfg.AllowedOrigins),
		PushHandler:         handler.NewPushHandler(pushService),
		NotificationHandler: handler.NewNotificationHandler(notifService),
		ProfileHandler:      handler.NewProfileHandler(profileService),
		PointsHandler:       handler.NewPointsHandler(pointsService),
		BookHandler:         handler.NewBookHandler(bookService),
		WishlistHandler:     handler.NewWishlistHandler(wishlistService),
		ExchangeHandler:     handler.NewExchangeHandler(exchangeService),
		MediaHandler:        handler.NewMediaHandler(mediaService),
		AIHandler:           handler.NewAIHandler(aiService),
		Profiles:            profileService,
		JWTSecret:           cfg.JWTSecret,
		AIRatePerSec:        cfg.AIRatePerSec,
		AIRateBurst:         cfg.AIRateBurst,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. Run everything until a signal or the first failure
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Println("Shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	if redisBroker != nil {
		g.Go(func() error { return redisBroker.Run(gctx) })
	}
	if manager != nil {
		g.Go(func() error { return manager.Run(gctx) })
	}

	return g.Wait()
}
