package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

// fakeProposalRepo is an in-memory ProposalRepository.
type fakeProposalRepo struct {
	mu        sync.Mutex
	proposals map[uint64]*proposal.Proposal
	createErr error
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{proposals: make(map[uint64]*proposal.Proposal)}
}

func (r *fakeProposalRepo) Create(ctx context.Context, p *proposal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	clone := *p
	r.proposals[p.ID] = &clone
	return nil
}

func (r *fakeProposalRepo) GetByID(ctx context.Context, id uint64) (*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[id]
	if !ok {
		return nil, shared.ErrProposalNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProposalRepo) List(ctx context.Context, status *proposal.Status, page, pageSize int) ([]*proposal.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*proposal.Proposal
	for _, p := range r.proposals {
		if status == nil || p.Status == *status {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) Update(ctx context.Context, p *proposal.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.proposals[p.ID]; !ok {
		return shared.ErrProposalNotFound
	}
	clone := *p
	r.proposals[p.ID] = &clone
	return nil
}

// fakeAuctionRepo is an in-memory AuctionRepository.
type fakeAuctionRepo struct {
	mu       sync.Mutex
	auctions map[common.Address]*auction.Auction
}

func newFakeAuctionRepo() *fakeAuctionRepo {
	return &fakeAuctionRepo{auctions: make(map[common.Address]*auction.Auction)}
}

func (r *fakeAuctionRepo) Create(ctx context.Context, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *a
	r.auctions[a.Address] = &clone
	return nil
}

func (r *fakeAuctionRepo) GetByAddress(ctx context.Context, addr common.Address) (*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[addr]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAuctionRepo) List(ctx context.Context, status *auction.Status, page, pageSize int) ([]*auction.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*auction.Auction
	for _, a := range r.auctions {
		if status == nil || a.Status == *status {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeAuctionRepo) Update(ctx context.Context, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[a.Address]; !ok {
		return shared.ErrAuctionNotFound
	}
	clone := *a
	r.auctions[a.Address] = &clone
	return nil
}

// fakeBidRepo is an in-memory BidRepository.
type fakeBidRepo struct {
	mu     sync.Mutex
	bids   []*bid.Bid
	occErr error
}

func newFakeBidRepo() *fakeBidRepo {
	return &fakeBidRepo{}
}

func (r *fakeBidRepo) Create(ctx context.Context, b *bid.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *b
	r.bids = append(r.bids, &clone)
	return nil
}

func (r *fakeBidRepo) GetByAuction(ctx context.Context, addr common.Address) ([]*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bid.Bid
	for _, b := range r.bids {
		if b.AuctionAddress == addr {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeBidRepo) GetByTxHash(ctx context.Context, txHash common.Hash) (*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bids {
		if b.TxHash == txHash {
			clone := *b
			return &clone, nil
		}
	}
	return nil, shared.ErrNoBidsFound
}

func (r *fakeBidRepo) GetHighest(ctx context.Context, addr common.Address) (*bid.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var highest *bid.Bid
	for _, b := range r.bids {
		if b.AuctionAddress != addr || !b.IsConfirmed() {
			continue
		}
		if highest == nil || b.Amount.GreaterThan(highest.Amount) {
			highest = b
		}
	}
	if highest == nil {
		return nil, shared.ErrNoBidsFound
	}
	clone := *highest
	return &clone, nil
}

func (r *fakeBidRepo) Update(ctx context.Context, b *bid.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.bids {
		if existing.ID == b.ID {
			clone := *b
			r.bids[i] = &clone
			return nil
		}
	}
	return shared.ErrNoBidsFound
}

func (r *fakeBidRepo) RecordBidWithOCC(ctx context.Context, b *bid.Bid, expectedHighest decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.occErr != nil {
		return r.occErr
	}
	clone := *b
	r.bids = append(r.bids, &clone)
	return nil
}

// fakeReviewerRepo is an in-memory ReviewerRepository.
type fakeReviewerRepo struct {
	mu     sync.Mutex
	grants map[common.Address]*shared.ReviewerGrant
}

func newFakeReviewerRepo() *fakeReviewerRepo {
	return &fakeReviewerRepo{grants: make(map[common.Address]*shared.ReviewerGrant)}
}

func (r *fakeReviewerRepo) Save(ctx context.Context, grant *shared.ReviewerGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *grant
	r.grants[grant.Address] = &clone
	return nil
}

func (r *fakeReviewerRepo) IsReviewer(ctx context.Context, addr common.Address) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.grants[addr]
	return ok, nil
}

func (r *fakeReviewerRepo) List(ctx context.Context) ([]*shared.ReviewerGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.ReviewerGrant
	for _, grant := range r.grants {
		clone := *grant
		out = append(out, &clone)
	}
	return out, nil
}

// fakeGateway is a canned-response ChainGateway and TokenReader.
type fakeGateway struct {
	nextProposalID uint64
	auctionAddr    common.Address
	auctionState   *outbound.AuctionState
	hasRole        bool
	roles          map[common.Address]bool
	allowance      *big.Int
	balance        *big.Int
	receiptStatus  uint64
	receiptBlock   uint64
	submitErr      error
	broadcastErr   error
	finalizeCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextProposalID: 1,
		auctionAddr:    common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		allowance:      big.NewInt(1_000_000),
		balance:        big.NewInt(1_000_000),
		receiptStatus:  types.ReceiptStatusSuccessful,
		receiptBlock:   100,
	}
}

func (g *fakeGateway) SubmitProposal(ctx context.Context, proposer common.Address, metadataURI string, startingBid *big.Int, duration time.Duration) (uint64, common.Hash, error) {
	if g.submitErr != nil {
		return 0, common.Hash{}, g.submitErr
	}
	id := g.nextProposalID
	g.nextProposalID++
	return id, common.HexToHash(fmt.Sprintf("0x%x", id)), nil
}

func (g *fakeGateway) ReviewAndLaunchAuction(ctx context.Context, proposalID uint64) (common.Address, common.Hash, error) {
	return g.auctionAddr, common.HexToHash("0xbeef"), nil
}

func (g *fakeGateway) RejectProposal(ctx context.Context, proposalID uint64) (common.Hash, error) {
	return common.HexToHash("0xdead"), nil
}

func (g *fakeGateway) FinalizeAuction(ctx context.Context, proposalID uint64) (common.Hash, error) {
	g.finalizeCalls++
	return common.HexToHash("0xf1a1"), nil
}

func (g *fakeGateway) AddReviewer(ctx context.Context, addr common.Address) (common.Hash, error) {
	if g.roles == nil {
		g.roles = make(map[common.Address]bool)
	}
	g.roles[addr] = true
	return common.HexToHash("0x401e"), nil
}

func (g *fakeGateway) HasRole(ctx context.Context, addr common.Address) (bool, error) {
	if g.roles != nil {
		return g.roles[addr], nil
	}
	return g.hasRole, nil
}

func (g *fakeGateway) AuctionState(ctx context.Context, auctionAddr common.Address) (*outbound.AuctionState, error) {
	if g.auctionState != nil {
		return g.auctionState, nil
	}
	return &outbound.AuctionState{
		Seller:       common.HexToAddress("0x5e11e50000000000000000000000000000000000"),
		NFTContract:  common.HexToAddress("0x0000000000000000000000000000000000001234"),
		NFTTokenID:   big.NewInt(1),
		PaymentToken: common.HexToAddress("0x0000000000000000000000000000000000005678"),
		HighestBid:   big.NewInt(0),
		EndTime:      time.Now().Add(time.Hour),
	}, nil
}

func (g *fakeGateway) BroadcastRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	if g.broadcastErr != nil {
		return common.Hash{}, g.broadcastErr
	}
	return common.BytesToHash(rawTx), nil
}

func (g *fakeGateway) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status:      g.receiptStatus,
		BlockNumber: new(big.Int).SetUint64(g.receiptBlock),
		TxHash:      txHash,
	}, nil
}

func (g *fakeGateway) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return g.allowance, nil
}

func (g *fakeGateway) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return g.balance, nil
}

// fakePinner records pins and serves canned metadata fetches.
type fakePinner struct {
	mu        sync.Mutex
	pinned    []string
	documents map[string]string
	pinErr    error
	fetchErr  error
}

func newFakePinner() *fakePinner {
	return &fakePinner{documents: make(map[string]string)}
}

func (p *fakePinner) PinFile(ctx context.Context, name string, content io.Reader) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pinErr != nil {
		return "", p.pinErr
	}
	var buf bytes.Buffer
	io.Copy(&buf, content)
	uri := fmt.Sprintf("ipfs://file-%d", len(p.pinned))
	p.pinned = append(p.pinned, uri)
	return uri, nil
}

func (p *fakePinner) PinJSON(ctx context.Context, name string, document interface{}) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pinErr != nil {
		return "", p.pinErr
	}
	uri := fmt.Sprintf("ipfs://json-%d", len(p.pinned))
	p.pinned = append(p.pinned, uri)
	return uri, nil
}

func (p *fakePinner) FetchJSON(ctx context.Context, uri string, v interface{}) error {
	if p.fetchErr != nil {
		return p.fetchErr
	}
	return nil
}

// fakeBroadcaster records published events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []outbound.Event
}

func (b *fakeBroadcaster) Subscribe(ctx context.Context, auctionAddr common.Address, clientID string, eventChan chan outbound.Event) error {
	return nil
}

func (b *fakeBroadcaster) Unsubscribe(ctx context.Context, auctionAddr common.Address, clientID string) error {
	return nil
}

func (b *fakeBroadcaster) UnsubscribeAll(ctx context.Context, clientID string) error {
	return nil
}

func (b *fakeBroadcaster) Publish(ctx context.Context, auctionAddr common.Address, event outbound.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBroadcaster) GetSubscribers(ctx context.Context, auctionAddr common.Address) ([]string, error) {
	return nil, nil
}

func (b *fakeBroadcaster) IsSubscribed(ctx context.Context, auctionAddr common.Address, clientID string) bool {
	return false
}

func (b *fakeBroadcaster) published() []outbound.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]outbound.Event, len(b.events))
	copy(out, b.events)
	return out
}
