package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/Bykamri/dev-elaction-sub000/internal/config"
	"github.com/Bykamri/dev-elaction-sub000/internal/domain/shared"
	"github.com/Bykamri/dev-elaction-sub000/internal/ports/outbound"
)

const receiptPollInterval = 2 * time.Second

// Gateway implements outbound.ChainGateway and outbound.TokenReader over
// a JSON-RPC connection. Writes are signed by the operator key, which must
// hold the reviewer role on the factory.
type Gateway struct {
	client         *ethclient.Client
	factory        common.Address
	chainID        *big.Int
	operatorKey    *ecdsa.PrivateKey
	operator       common.Address
	receiptTimeout time.Duration
	logger         zerolog.Logger

	// Serializes nonce assignment for operator transactions.
	nonceMu sync.Mutex
}

type GatewayParams struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewGateway dials the RPC node and prepares the operator wallet.
func NewGateway(params GatewayParams) (*Gateway, error) {
	cfg := params.Config.Chain

	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}

	if !common.IsHexAddress(cfg.FactoryAddress) {
		return nil, fmt.Errorf("invalid factory address %q", cfg.FactoryAddress)
	}

	keyHex := strings.TrimPrefix(cfg.OperatorKey, "0x")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse operator key: %w", err)
	}

	return &Gateway{
		client:         client,
		factory:        common.HexToAddress(cfg.FactoryAddress),
		chainID:        big.NewInt(cfg.ChainID),
		operatorKey:    key,
		operator:       crypto.PubkeyToAddress(key.PublicKey),
		receiptTimeout: cfg.ReceiptPollTimeout,
		logger:         params.Logger.With().Str("component", "chain_gateway").Logger(),
	}, nil
}

// Operator returns the address the gateway signs with.
func (g *Gateway) Operator() common.Address {
	return g.operator
}

// Client returns the underlying RPC client, shared with the indexer.
func (g *Gateway) Client() *ethclient.Client {
	return g.client
}

// Factory returns the configured factory contract address.
func (g *Gateway) Factory() common.Address {
	return g.factory
}

// Close releases the RPC connection.
func (g *Gateway) Close() {
	g.client.Close()
}

// SubmitProposal relays a proposal submission to the factory and returns
// the proposal id assigned by the contract.
func (g *Gateway) SubmitProposal(ctx context.Context, proposer common.Address, metadataURI string, startingBid *big.Int, duration time.Duration) (uint64, common.Hash, error) {
	data, err := factoryABI.Pack("submitProposal", proposer, metadataURI, startingBid, big.NewInt(int64(duration.Seconds())))
	if err != nil {
		return 0, common.Hash{}, fmt.Errorf("failed to pack submitProposal: %w", err)
	}

	tx, err := g.transact(ctx, g.factory, data)
	if err != nil {
		return 0, common.Hash{}, err
	}

	receipt, err := g.waitSuccessful(ctx, tx.Hash())
	if err != nil {
		return 0, tx.Hash(), err
	}

	for _, logEntry := range receipt.Logs {
		if logEntry.Address == g.factory && len(logEntry.Topics) > 1 && logEntry.Topics[0] == proposalSubmittedTopic {
			return logEntry.Topics[1].Big().Uint64(), tx.Hash(), nil
		}
	}

	return 0, tx.Hash(), fmt.Errorf("submitProposal receipt missing ProposalSubmitted event")
}

// ReviewAndLaunchAuction approves a pending proposal; the deployed auction
// address is taken from the AuctionLaunched event.
func (g *Gateway) ReviewAndLaunchAuction(ctx context.Context, proposalID uint64) (common.Address, common.Hash, error) {
	data, err := factoryABI.Pack("reviewAndLaunchAuction", new(big.Int).SetUint64(proposalID))
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("failed to pack reviewAndLaunchAuction: %w", err)
	}

	tx, err := g.transact(ctx, g.factory, data)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}

	receipt, err := g.waitSuccessful(ctx, tx.Hash())
	if err != nil {
		return common.Address{}, tx.Hash(), err
	}

	for _, logEntry := range receipt.Logs {
		if logEntry.Address == g.factory && len(logEntry.Topics) > 2 && logEntry.Topics[0] == auctionLaunchedTopic {
			return topicToAddress(logEntry.Topics[2]), tx.Hash(), nil
		}
	}

	return common.Address{}, tx.Hash(), fmt.Errorf("reviewAndLaunchAuction receipt missing AuctionLaunched event")
}

// RejectProposal rejects a pending proposal.
func (g *Gateway) RejectProposal(ctx context.Context, proposalID uint64) (common.Hash, error) {
	data, err := factoryABI.Pack("rejectProposal", new(big.Int).SetUint64(proposalID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack rejectProposal: %w", err)
	}

	tx, err := g.transact(ctx, g.factory, data)
	if err != nil {
		return common.Hash{}, err
	}

	if _, err := g.waitSuccessful(ctx, tx.Hash()); err != nil {
		return tx.Hash(), err
	}

	return tx.Hash(), nil
}

// FinalizeAuction settles an ended auction through the factory.
func (g *Gateway) FinalizeAuction(ctx context.Context, proposalID uint64) (common.Hash, error) {
	data, err := factoryABI.Pack("finalizeAuction", new(big.Int).SetUint64(proposalID))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack finalizeAuction: %w", err)
	}

	tx, err := g.transact(ctx, g.factory, data)
	if err != nil {
		return common.Hash{}, err
	}

	if _, err := g.waitSuccessful(ctx, tx.Hash()); err != nil {
		return tx.Hash(), err
	}

	return tx.Hash(), nil
}

// AddReviewer grants the reviewer role on the factory.
func (g *Gateway) AddReviewer(ctx context.Context, addr common.Address) (common.Hash, error) {
	data, err := factoryABI.Pack("addReviewer", addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack addReviewer: %w", err)
	}

	tx, err := g.transact(ctx, g.factory, data)
	if err != nil {
		return common.Hash{}, err
	}

	if _, err := g.waitSuccessful(ctx, tx.Hash()); err != nil {
		return tx.Hash(), err
	}

	return tx.Hash(), nil
}

// HasRole reports whether the address holds the reviewer role on chain.
func (g *Gateway) HasRole(ctx context.Context, addr common.Address) (bool, error) {
	out, err := g.call(ctx, g.factory, factoryABI, "hasRole", reviewerRole, addr)
	if err != nil {
		return false, err
	}

	held, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected hasRole return type %T", out[0])
	}

	return held, nil
}

// AuctionState reads the live state of an auction contract.
func (g *Gateway) AuctionState(ctx context.Context, auctionAddr common.Address) (*outbound.AuctionState, error) {
	seller, err := g.callAddress(ctx, auctionAddr, "seller")
	if err != nil {
		return nil, err
	}
	nftContract, err := g.callAddress(ctx, auctionAddr, "nft")
	if err != nil {
		return nil, err
	}
	paymentToken, err := g.callAddress(ctx, auctionAddr, "idrxToken")
	if err != nil {
		return nil, err
	}
	highestBidder, err := g.callAddress(ctx, auctionAddr, "highestBidder")
	if err != nil {
		return nil, err
	}
	tokenID, err := g.callBig(ctx, auctionAddr, "nftTokenId")
	if err != nil {
		return nil, err
	}
	highestBid, err := g.callBig(ctx, auctionAddr, "highestBid")
	if err != nil {
		return nil, err
	}
	endTime, err := g.callBig(ctx, auctionAddr, "endTime")
	if err != nil {
		return nil, err
	}

	return &outbound.AuctionState{
		Seller:        seller,
		NFTContract:   nftContract,
		NFTTokenID:    tokenID,
		PaymentToken:  paymentToken,
		HighestBid:    highestBid,
		HighestBidder: highestBidder,
		EndTime:       time.Unix(endTime.Int64(), 0),
	}, nil
}

// BroadcastRawTransaction submits a pre-signed transaction.
func (g *Gateway) BroadcastRawTransaction(ctx context.Context, rawTx []byte) (common.Hash, error) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(rawTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to decode raw transaction: %w", err)
	}

	if err := g.client.SendTransaction(ctx, &tx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	g.logger.Info().Str("tx_hash", tx.Hash().Hex()).Msg("Raw transaction broadcast")
	return tx.Hash(), nil
}

// WaitMined blocks until a receipt is available, the receipt timeout
// elapses, or the context expires.
func (g *Gateway) WaitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if err == ethereum.NotFound {
			g.logger.Debug().Str("tx_hash", txHash.Hex()).Msg("Receipt not yet available")
		} else {
			g.logger.Warn().Err(err).Str("tx_hash", txHash.Hex()).Msg("Unexpected error fetching transaction receipt")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, shared.ErrReceiptTimeout
			}
			return nil, ctx.Err()
		}
	}
}

// Allowance returns the amount owner has approved for spender.
func (g *Gateway) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := g.call(ctx, token, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return abiBig(out[0])
}

// BalanceOf returns the owner's token balance.
func (g *Gateway) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := g.call(ctx, token, erc20ABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return abiBig(out[0])
}

func (g *Gateway) waitSuccessful(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := g.WaitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, shared.ErrTransactionFailed
	}

	return receipt, nil
}

// transact signs and submits an operator transaction.
func (g *Gateway) transact(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	g.nonceMu.Lock()
	defer g.nonceMu.Unlock()

	nonce, err := g.client.PendingNonceAt(ctx, g.operator)
	if err != nil {
		return nil, fmt.Errorf("failed to get operator nonce: %w", err)
	}

	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From: g.operator,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit+gasLimit/5, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.operatorKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := g.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	g.logger.Info().
		Str("tx_hash", signedTx.Hash().Hex()).
		Str("to", to.Hex()).
		Uint64("nonce", nonce).
		Msg("Operator transaction sent")

	return signedTx, nil
}

func (g *Gateway) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	raw, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}

	return out, nil
}

func (g *Gateway) callAddress(ctx context.Context, to common.Address, method string) (common.Address, error) {
	out, err := g.call(ctx, to, auctionABI, method)
	if err != nil {
		return common.Address{}, err
	}

	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s return type %T", method, out[0])
	}

	return addr, nil
}

func (g *Gateway) callBig(ctx context.Context, to common.Address, method string) (*big.Int, error) {
	out, err := g.call(ctx, to, auctionABI, method)
	if err != nil {
		return nil, err
	}
	return abiBig(out[0])
}

func abiBig(v interface{}) (*big.Int, error) {
	value, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected numeric return type %T", v)
	}
	return value, nil
}
