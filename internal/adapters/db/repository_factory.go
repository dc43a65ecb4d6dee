package db

import (
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// RepositoryFactory creates and manages all database repositories
type RepositoryFactory struct {
	conn *Connection
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(conn *Connection) *RepositoryFactory {
	return &RepositoryFactory{conn: conn}
}

// GetProposalRepository returns the proposal repository
func (f *RepositoryFactory) GetProposalRepository() outbound.ProposalRepository {
	return NewProposalRepository(f.conn)
}

// GetAuctionRepository returns the auction repository
func (f *RepositoryFactory) GetAuctionRepository() outbound.AuctionRepository {
	return NewAuctionRepository(f.conn)
}

// GetBidRepository returns the bid repository
func (f *RepositoryFactory) GetBidRepository() outbound.BidRepository {
	return NewBidRepository(f.conn)
}

// GetReviewerRepository returns the reviewer grant repository
func (f *RepositoryFactory) GetReviewerRepository() outbound.ReviewerRepository {
	return NewReviewerRepository(f.conn)
}

// GetCursorRepository returns the indexer cursor repository
func (f *RepositoryFactory) GetCursorRepository() outbound.CursorRepository {
	return NewCursorRepository(f.conn)
}
