package proposal

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
)

func pendingProposal() *Proposal {
	return &Proposal{
		ID:          7,
		Proposer:    common.HexToAddress("0x1111111111111111111111111111111111111111"),
		MetadataURI: "ipfs://QmTest",
		StartingBid: decimal.NewFromInt(1000),
		Duration:    24 * time.Hour,
		Status:      StatusPending,
	}
}

func TestApprove(t *testing.T) {
	p := pendingProposal()
	auctionAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	reviewer := common.HexToAddress("0x3333333333333333333333333333333333333333")

	require.NoError(t, p.Approve(auctionAddr, reviewer))

	assert.Equal(t, StatusLive, p.Status)
	require.NotNil(t, p.AuctionAddress)
	assert.Equal(t, auctionAddr, *p.AuctionAddress)
	require.NotNil(t, p.ReviewedBy)
	assert.Equal(t, reviewer, *p.ReviewedBy)
	assert.False(t, p.CanReview())
}

func TestApproveNotPending(t *testing.T) {
	p := pendingProposal()
	p.Status = StatusRejected

	err := p.Approve(common.Address{}, common.Address{})
	assert.ErrorIs(t, err, shared.ErrProposalNotPending)
}

func TestReject(t *testing.T) {
	p := pendingProposal()
	reviewer := common.HexToAddress("0x3333333333333333333333333333333333333333")

	require.NoError(t, p.Reject(reviewer))

	assert.Equal(t, StatusRejected, p.Status)
	require.NotNil(t, p.ReviewedBy)
	assert.Equal(t, reviewer, *p.ReviewedBy)
	assert.Nil(t, p.AuctionAddress)
}

func TestRejectAfterApprove(t *testing.T) {
	p := pendingProposal()
	require.NoError(t, p.Approve(common.Address{}, common.Address{}))

	err := p.Reject(common.Address{})
	assert.ErrorIs(t, err, shared.ErrProposalNotPending)
	assert.Equal(t, StatusLive, p.Status)
}

func TestFinish(t *testing.T) {
	p := pendingProposal()
	require.NoError(t, p.Approve(common.Address{}, common.Address{}))

	require.NoError(t, p.Finish())
	assert.Equal(t, StatusFinished, p.Status)

	assert.ErrorIs(t, p.Finish(), shared.ErrAuctionAlreadyFinished)
}

func TestFinishPending(t *testing.T) {
	p := pendingProposal()
	assert.ErrorIs(t, p.Finish(), shared.ErrAuctionAlreadyFinished)
}
