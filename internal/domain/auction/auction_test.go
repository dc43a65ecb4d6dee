package auction

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveAuction(endTime time.Time) *Auction {
	return &Auction{
		Address:     common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		ProposalID:  1,
		StartingBid: decimal.NewFromInt(500),
		HighestBid:  decimal.Zero,
		EndTime:     endTime,
		Status:      StatusLive,
	}
}

func TestCanBid(t *testing.T) {
	now := time.Now()
	a := liveAuction(now.Add(time.Hour))

	assert.True(t, a.CanBid(now))
	assert.False(t, a.CanBid(now.Add(2*time.Hour)))

	a.Status = StatusFinished
	assert.False(t, a.CanBid(now))
}

func TestEndedAtExactEndTime(t *testing.T) {
	end := time.Now()
	a := liveAuction(end)

	assert.True(t, a.Ended(end))
	assert.False(t, a.Ended(end.Add(-time.Second)))
}

func TestMinimumBid(t *testing.T) {
	a := liveAuction(time.Now().Add(time.Hour))

	// No bids yet: the starting bid is acceptable as-is.
	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(500)))

	bidder := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	a.ApplyBid(bidder, decimal.NewFromInt(600))

	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(601)))
}

func TestApplyBid(t *testing.T) {
	a := liveAuction(time.Now().Add(time.Hour))
	first := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	second := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	a.ApplyBid(first, decimal.NewFromInt(600))
	require.NotNil(t, a.HighestBidder)
	assert.Equal(t, first, *a.HighestBidder)

	// A lower bid does not displace the highest.
	a.ApplyBid(second, decimal.NewFromInt(550))
	assert.Equal(t, first, *a.HighestBidder)
	assert.True(t, a.HighestBid.Equal(decimal.NewFromInt(600)))

	a.ApplyBid(second, decimal.NewFromInt(700))
	assert.Equal(t, second, *a.HighestBidder)
	assert.True(t, a.HighestBid.Equal(decimal.NewFromInt(700)))
}

func TestFinalize(t *testing.T) {
	a := liveAuction(time.Now().Add(-time.Hour))
	txHash := common.HexToHash("0x01")

	a.Finalize(txHash)

	assert.True(t, a.IsFinished())
	require.NotNil(t, a.FinalizeTx)
	assert.Equal(t, txHash, *a.FinalizeTx)
}
