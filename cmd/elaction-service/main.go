package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/broadcaster"
	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/chain"
	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/db"
	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/httpapi"
	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/pinner"
	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/redis"
	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/scheduler"
	"github.com/Bykamri/dev-elaction-sub000/internal/adapters/ws"
	"github.com/Bykamri/dev-elaction-sub000/internal/app"
	"github.com/Bykamri/dev-elaction-sub000/internal/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting Elaction Marketplace Service...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	log.Info().Msg("Database connection established")

	// Create repositories
	repoFactory := db.NewRepositoryFactory(dbConn)
	proposalRepo := repoFactory.GetProposalRepository()
	auctionRepo := repoFactory.GetAuctionRepository()
	bidRepo := repoFactory.GetBidRepository()
	reviewerRepo := repoFactory.GetReviewerRepository()
	cursorRepo := repoFactory.GetCursorRepository()

	log.Info().Msg("Database repositories initialized")

	// Create Redis client
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create Redis broadcaster
	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	log.Info().Msg("Redis broadcaster initialized")

	// Connect to the EVM node
	gateway, err := chain.NewGateway(chain.GatewayParams{
		Config: cfg,
		Logger: log.Logger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to EVM node")
	}
	defer gateway.Close()

	log.Info().
		Str("operator", gateway.Operator().Hex()).
		Str("factory", gateway.Factory().Hex()).
		Msg("Chain gateway initialized")

	// Create IPFS pinning client
	pinataClient := pinner.NewPinataClient(pinner.PinataClientParams{
		Config: cfg,
		Logger: log.Logger,
	})

	// Create business services
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo:  auctionRepo,
		ProposalRepo: proposalRepo,
		BidRepo:      bidRepo,
		ReviewerRepo: reviewerRepo,
		Gateway:      gateway,
		Fetcher:      pinataClient,
		Logger:       log.Logger,
	})
	bidService := app.NewBidService(app.BidServiceParams{
		BidRepo:     bidRepo,
		AuctionRepo: auctionRepo,
		Gateway:     gateway,
		TokenReader: gateway,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})
	roleService := app.NewRoleService(app.RoleServiceParams{
		ReviewerRepo: reviewerRepo,
		Gateway:      gateway,
		Admin:        gateway.Operator(),
		Logger:       log.Logger,
	})

	// Create settlement scheduler
	settlementScheduler := scheduler.NewSettlementScheduler(
		scheduler.SettlementSchedulerParams{
			RedisClient:    redisClient,
			AuctionService: auctionService,
			Broadcaster:    redisBroadcaster,
			Logger:         log.Logger,
		},
	)

	settlementScheduler.Start()
	log.Info().Msg("Settlement scheduler started")

	proposalService := app.NewProposalService(app.ProposalServiceParams{
		ProposalRepo: proposalRepo,
		AuctionRepo:  auctionRepo,
		ReviewerRepo: reviewerRepo,
		Gateway:      gateway,
		Pinner:       pinataClient,
		Fetcher:      pinataClient,
		Broadcaster:  redisBroadcaster,
		Scheduler:    settlementScheduler,
		Logger:       log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create WebSocket handler for the live feed
	wsHandler := ws.NewHandler(ws.WsHandlerParams{
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		AuctionService: auctionService,
		BidService:     bidService,
		Broadcaster:    redisBroadcaster,
		Logger:         log.Logger,
	})

	// Create chain indexer
	indexer := chain.NewIndexer(chain.IndexerParams{
		Client:       gateway.Client(),
		Gateway:      gateway,
		Factory:      gateway.Factory(),
		ProposalRepo: proposalRepo,
		AuctionRepo:  auctionRepo,
		BidRepo:      bidRepo,
		CursorRepo:   cursorRepo,
		Broadcaster:  redisBroadcaster,
		Scheduler:    settlementScheduler,
		PollInterval: cfg.Chain.IndexPollInterval,
		Confirms:     cfg.Chain.Confirmations,
		Logger:       log.Logger,
	})

	// Create REST API server
	apiServer := httpapi.NewServer(httpapi.ServerParams{
		Config:          cfg,
		ProposalService: proposalService,
		AuctionService:  auctionService,
		BidService:      bidService,
		RoleService:     roleService,
		WSHandler:       wsHandler.HandleWebSocket,
		Logger:          log.Logger,
	})

	log.Info().Msg("HTTP server initialized")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting HTTP server")
		return apiServer.Start()
	})
	group.Go(func() error {
		indexer.Run(groupCtx)
		return nil
	})

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-groupCtx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	settlementScheduler.Stop()
	log.Info().Msg("Settlement scheduler stopped")

	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	}

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("Service exited with error")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
