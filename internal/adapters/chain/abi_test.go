package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewerRoleHash(t *testing.T) {
	assert.Equal(t, crypto.Keccak256Hash([]byte("REVIEWER_ROLE")), reviewerRole)
}

func TestEventTopics(t *testing.T) {
	assert.Equal(t, factoryABI.Events["ProposalSubmitted"].ID, proposalSubmittedTopic)
	assert.Equal(t, factoryABI.Events["AuctionLaunched"].ID, auctionLaunchedTopic)
	assert.Equal(t, factoryABI.Events["ProposalRejected"].ID, proposalRejectedTopic)
	assert.Equal(t, auctionABI.Events["Bid"].ID, bidTopic)
	assert.Equal(t, auctionABI.Events["Finalized"].ID, finalizedTopic)
}

func TestTopicToAddress(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	topic := common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))

	assert.Equal(t, addr, topicToAddress(topic))
}

func TestUnpackProposalSubmitted(t *testing.T) {
	data, err := factoryABI.Events["ProposalSubmitted"].Inputs.NonIndexed().Pack(
		"ipfs://QmMeta",
		big.NewInt(1000),
		big.NewInt(86400),
	)
	require.NoError(t, err)

	unpacked, err := factoryABI.Unpack("ProposalSubmitted", data)
	require.NoError(t, err)
	require.Len(t, unpacked, 3)

	metadataURI, ok := unpacked[0].(string)
	require.True(t, ok)
	assert.Equal(t, "ipfs://QmMeta", metadataURI)

	startingBid, ok := unpacked[1].(*big.Int)
	require.True(t, ok)
	assert.Equal(t, int64(1000), startingBid.Int64())

	duration, ok := unpacked[2].(*big.Int)
	require.True(t, ok)
	assert.Equal(t, int64(86400), duration.Int64())
}

func TestUnpackBid(t *testing.T) {
	data, err := auctionABI.Events["Bid"].Inputs.NonIndexed().Pack(big.NewInt(600))
	require.NoError(t, err)

	unpacked, err := auctionABI.Unpack("Bid", data)
	require.NoError(t, err)
	require.Len(t, unpacked, 1)

	amount, ok := unpacked[0].(*big.Int)
	require.True(t, ok)
	assert.Equal(t, int64(600), amount.Int64())
}

func TestPackBidCall(t *testing.T) {
	data, err := auctionABI.Pack("bid", big.NewInt(600))
	require.NoError(t, err)

	// 4-byte selector plus one word.
	assert.Len(t, data, 36)
	assert.Equal(t, auctionABI.Methods["bid"].ID, data[:4])
}
