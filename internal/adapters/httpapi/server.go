package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/config"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/inbound"
)

// Server exposes the marketplace REST API
type Server struct {
	httpServer      *http.Server
	proposalService inbound.ProposalService
	auctionService  inbound.AuctionService
	bidService      inbound.BidService
	roleService     inbound.RoleService
	wsHandler       http.HandlerFunc
	logger          zerolog.Logger
}

type ServerParams struct {
	Config          *config.Config
	ProposalService inbound.ProposalService
	AuctionService  inbound.AuctionService
	BidService      inbound.BidService
	RoleService     inbound.RoleService
	// WSHandler, when set, is mounted at /ws for the live feed.
	WSHandler http.HandlerFunc
	Logger    zerolog.Logger
}

// NewServer creates a new REST API server
func NewServer(params ServerParams) *Server {
	server := &Server{
		proposalService: params.ProposalService,
		auctionService:  params.AuctionService,
		bidService:      params.BidService,
		roleService:     params.RoleService,
		wsHandler:       params.WSHandler,
		logger:          params.Logger.With().Str("component", "http_server").Logger(),
	}

	server.httpServer = &http.Server{
		Addr:         params.Config.Server.Host + ":" + params.Config.Server.Port,
		Handler:      server.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return server
}

func (server *Server) router() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", server.handleHealth)

	mux.Route("/api", func(r chi.Router) {
		r.Post("/submitApplication", server.handleSubmitApplication)

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", server.handleListProposals)
			r.Get("/{id}", server.handleGetProposal)
			r.Post("/{id}/approve", server.handleApproveProposal)
			r.Post("/{id}/reject", server.handleRejectProposal)
		})

		r.Route("/auctions", func(r chi.Router) {
			r.Get("/", server.handleListAuctions)
			r.Get("/{address}", server.handleGetAuction)
			r.Post("/{address}/finalize", server.handleFinalizeAuction)
			r.Get("/{address}/bids", server.handleListBids)
			r.Post("/{address}/bids", server.handlePlaceBid)
			r.Get("/{address}/bids/highest", server.handleGetHighestBid)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reviewers", server.handleAddReviewer)
			r.Get("/reviewers/{address}", server.handleCheckReviewer)
		})
	})

	if server.wsHandler != nil {
		mux.Get("/ws", server.wsHandler)
	}

	return mux
}

// Handler returns the configured router, for use in tests.
func (server *Server) Handler() http.Handler {
	return server.httpServer.Handler
}

// Start begins listening for requests. It blocks until the server stops.
func (server *Server) Start() error {
	server.logger.Info().Str("addr", server.httpServer.Addr).Msg("Starting HTTP server")

	if err := server.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (server *Server) Stop(ctx context.Context) error {
	server.logger.Info().Msg("Stopping HTTP server")
	return server.httpServer.Shutdown(ctx)
}
