package app

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/auction"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/bid"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/proposal"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

type auctionServiceFixture struct {
	service      *AuctionService
	auctionRepo  *fakeAuctionRepo
	proposalRepo *fakeProposalRepo
	bidRepo      *fakeBidRepo
	reviewerRepo *fakeReviewerRepo
	gateway      *fakeGateway
	pinner       *fakePinner
}

func newAuctionServiceFixture() *auctionServiceFixture {
	fixture := &auctionServiceFixture{
		auctionRepo:  newFakeAuctionRepo(),
		proposalRepo: newFakeProposalRepo(),
		bidRepo:      newFakeBidRepo(),
		reviewerRepo: newFakeReviewerRepo(),
		gateway:      newFakeGateway(),
		pinner:       newFakePinner(),
	}
	fixture.service = NewAuctionService(AuctionServiceParams{
		AuctionRepo:  fixture.auctionRepo,
		ProposalRepo: fixture.proposalRepo,
		BidRepo:      fixture.bidRepo,
		ReviewerRepo: fixture.reviewerRepo,
		Gateway:      fixture.gateway,
		Fetcher:      fixture.pinner,
		Logger:       zerolog.Nop(),
	})
	return fixture
}

func (fixture *auctionServiceFixture) seedAuction(endTime time.Time) *auction.Auction {
	a := &auction.Auction{
		Address:     common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		ProposalID:  1,
		Seller:      common.HexToAddress("0x5e11e50000000000000000000000000000000000"),
		StartingBid: decimal.NewFromInt(500),
		HighestBid:  decimal.Zero,
		MetadataURI: "ipfs://QmMeta",
		EndTime:     endTime,
		Status:      auction.StatusLive,
	}
	fixture.auctionRepo.Create(context.Background(), a)
	fixture.proposalRepo.Create(context.Background(), &proposal.Proposal{
		ID:     a.ProposalID,
		Status: proposal.StatusLive,
	})
	return a
}

func TestGetAuction(t *testing.T) {
	fixture := newAuctionServiceFixture()
	a := fixture.seedAuction(time.Now().Add(time.Hour))

	detail, err := fixture.service.GetAuction(context.Background(), a.Address)
	require.NoError(t, err)
	assert.Equal(t, a.Address, detail.Auction.Address)
	require.NotNil(t, detail.Metadata)
}

func TestGetAuctionNotFound(t *testing.T) {
	fixture := newAuctionServiceFixture()

	_, err := fixture.service.GetAuction(context.Background(), common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestSettleWithWinner(t *testing.T) {
	fixture := newAuctionServiceFixture()
	ctx := context.Background()
	a := fixture.seedAuction(time.Now().Add(-time.Minute))

	winner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	b := &bid.Bid{
		ID:             uuid.New(),
		AuctionAddress: a.Address,
		Bidder:         winner,
		Amount:         decimal.NewFromInt(900),
		Status:         bid.StatusConfirmed,
	}
	fixture.bidRepo.Create(ctx, b)

	result, err := fixture.service.SettleForScheduler(ctx, a.Address)
	require.NoError(t, err)

	require.NotNil(t, result.Winner)
	assert.Equal(t, winner, *result.Winner)
	require.NotNil(t, result.FinalPrice)
	assert.True(t, result.FinalPrice.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, 1, fixture.gateway.finalizeCalls)

	stored, err := fixture.auctionRepo.GetByAddress(ctx, a.Address)
	require.NoError(t, err)
	assert.True(t, stored.IsFinished())

	p, err := fixture.proposalRepo.GetByID(ctx, a.ProposalID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusFinished, p.Status)
}

func TestSettleWithNoBids(t *testing.T) {
	fixture := newAuctionServiceFixture()
	a := fixture.seedAuction(time.Now().Add(-time.Minute))

	result, err := fixture.service.SettleForScheduler(context.Background(), a.Address)
	require.NoError(t, err)

	assert.Nil(t, result.Winner)
	assert.Nil(t, result.FinalPrice)
	assert.Equal(t, 1, fixture.gateway.finalizeCalls)
}

func TestSettleNotEnded(t *testing.T) {
	fixture := newAuctionServiceFixture()
	a := fixture.seedAuction(time.Now().Add(time.Hour))

	_, err := fixture.service.SettleForScheduler(context.Background(), a.Address)
	assert.ErrorIs(t, err, shared.ErrAuctionNotEnded)
	assert.Equal(t, 0, fixture.gateway.finalizeCalls)
}

func TestSettleTwice(t *testing.T) {
	fixture := newAuctionServiceFixture()
	ctx := context.Background()
	a := fixture.seedAuction(time.Now().Add(-time.Minute))

	_, err := fixture.service.SettleForScheduler(ctx, a.Address)
	require.NoError(t, err)

	_, err = fixture.service.SettleForScheduler(ctx, a.Address)
	assert.ErrorIs(t, err, shared.ErrAuctionAlreadyFinished)
	assert.Equal(t, 1, fixture.gateway.finalizeCalls)
}

func TestFinalizeAuctionRequiresReviewer(t *testing.T) {
	fixture := newAuctionServiceFixture()
	ctx := context.Background()
	a := fixture.seedAuction(time.Now().Add(-time.Minute))

	caller := common.HexToAddress("0x9999999999999999999999999999999999999999")
	_, err := fixture.service.FinalizeAuction(ctx, caller, a.Address)
	assert.ErrorIs(t, err, shared.ErrReviewerRequired)

	fixture.reviewerRepo.Save(ctx, &shared.ReviewerGrant{Address: caller})
	_, err = fixture.service.FinalizeAuction(ctx, caller, a.Address)
	assert.NoError(t, err)
}
