package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// RoleService implements reviewer role management
type RoleService struct {
	reviewerRepo outbound.ReviewerRepository
	gateway      outbound.ChainGateway
	admin        common.Address
	logger       zerolog.Logger
}

type RoleServiceParams struct {
	ReviewerRepo outbound.ReviewerRepository
	Gateway      outbound.ChainGateway
	Admin        common.Address
	Logger       zerolog.Logger
}

// NewRoleService creates a new role service. Admin is the factory
// deployer address, the only caller allowed to grant the reviewer role.
func NewRoleService(params RoleServiceParams) *RoleService {
	return &RoleService{
		reviewerRepo: params.ReviewerRepo,
		gateway:      params.Gateway,
		admin:        params.Admin,
		logger:       params.Logger.With().Str("component", "role_service").Logger(),
	}
}

// AddReviewer grants the reviewer role on chain and records the grant
func (service *RoleService) AddReviewer(ctx context.Context, caller, addr common.Address) (*shared.ReviewerGrant, error) {
	service.logger.Info().
		Str("caller", caller.Hex()).
		Str("address", addr.Hex()).
		Msg("Attempting to grant reviewer role")

	if addr == (common.Address{}) {
		return nil, shared.ErrInvalidAddress
	}
	if caller != service.admin {
		service.logger.Warn().Str("caller", caller.Hex()).Msg("Caller is not the factory admin")
		return nil, shared.ErrReviewerRequired
	}

	hasRole, err := service.gateway.HasRole(ctx, addr)
	if err != nil {
		return nil, err
	}
	if hasRole {
		service.logger.Warn().Str("address", addr.Hex()).Msg("Address already holds the reviewer role")
		return nil, shared.ErrReviewerExists
	}

	txHash, err := service.gateway.AddReviewer(ctx, addr)
	if err != nil {
		service.logger.Error().Err(err).Str("address", addr.Hex()).Msg("Failed to grant reviewer role on chain")
		return nil, err
	}

	grant := &shared.ReviewerGrant{
		Address:   addr,
		GrantedBy: caller,
		TxHash:    txHash,
		CreatedAt: time.Now(),
	}
	if err := service.reviewerRepo.Save(ctx, grant); err != nil {
		service.logger.Error().Err(err).Str("address", addr.Hex()).Msg("Failed to save reviewer grant")
		return nil, err
	}

	service.logger.Info().
		Str("address", addr.Hex()).
		Str("tx_hash", txHash.Hex()).
		Msg("Reviewer role granted successfully")

	return grant, nil
}

// IsReviewer reports whether the address holds the reviewer role. The
// grant table answers first; the chain is consulted for roles granted
// outside this service.
func (service *RoleService) IsReviewer(ctx context.Context, addr common.Address) (bool, error) {
	granted, err := service.reviewerRepo.IsReviewer(ctx, addr)
	if err != nil {
		return false, err
	}
	if granted {
		return true, nil
	}
	return service.gateway.HasRole(ctx, addr)
}
