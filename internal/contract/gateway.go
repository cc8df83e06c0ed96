package contract

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/RaprApraP54/rapz-auction/internal/blockchain"
	"github.com/RaprApraP54/rapz-auction/internal/model"
)

// Gateway executes auction operations against the deployed AuctionManager
// contract over JSON-RPC. Write operations require a configured signer;
// without one the gateway degrades to read-only.
type Gateway struct {
	client   *blockchain.Client
	binding  *AuctionManagerContract
	txWait   time.Duration
	gasLimit uint64
}

// GatewayConfig configures the RPC gateway.
type GatewayConfig struct {
	ContractAddress string
	TxWaitTimeout   time.Duration
	GasLimit        uint64
}

// NewGateway creates an RPC gateway bound to the AuctionManager contract.
func NewGateway(client *blockchain.Client, cfg *GatewayConfig) (*Gateway, error) {
	binding, err := NewAuctionManagerContract(common.HexToAddress(cfg.ContractAddress), client)
	if err != nil {
		return nil, err
	}

	txWait := cfg.TxWaitTimeout
	if txWait == 0 {
		txWait = 120 * time.Second
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 500_000
	}

	return &Gateway{
		client:   client,
		binding:  binding,
		txWait:   txWait,
		gasLimit: gasLimit,
	}, nil
}

// CanWrite reports whether the gateway holds a signing key.
func (g *Gateway) CanWrite() bool {
	return g.client.HasSigner()
}

// GetAuction reads the on-chain auction state.
func (g *Gateway) GetAuction(ctx context.Context, chainAuctionID int64) (*model.AuctionSnapshot, error) {
	state, err := g.binding.GetAuction(ctx, big.NewInt(chainAuctionID))
	if err != nil {
		return nil, ClassifyRevert(err)
	}
	return &model.AuctionSnapshot{
		ChainAuctionID: chainAuctionID,
		Owner:          strings.ToLower(state.Owner.Hex()),
		StartingBid:    model.WeiToDecimal(state.StartingBid),
		MinIncrement:   model.WeiToDecimal(state.MinIncrement),
		HighestBidder:  strings.ToLower(state.HighestBidder.Hex()),
		HighestBid:     model.WeiToDecimal(state.HighestBid),
		EndTime:        state.EndTime.Int64(),
		IsActive:       state.IsActive,
		IsFinalized:    state.IsFinalized,
	}, nil
}

// AuctionCount reads the number of auctions ever created.
func (g *Gateway) AuctionCount(ctx context.Context) (int64, error) {
	count, err := g.binding.AuctionCount(ctx)
	if err != nil {
		return 0, ClassifyRevert(err)
	}
	return count.Int64(), nil
}

// Leaderboard reads the bid leaderboard of an auction.
func (g *Gateway) Leaderboard(ctx context.Context, chainAuctionID int64) (*model.LeaderboardSnapshot, error) {
	state, err := g.binding.GetLeaderboard(ctx, big.NewInt(chainAuctionID))
	if err != nil {
		return nil, ClassifyRevert(err)
	}
	return &model.LeaderboardSnapshot{
		ChainAuctionID: chainAuctionID,
		HighestBidder:  strings.ToLower(state.HighestBidder.Hex()),
		HighestBid:     model.WeiToDecimal(state.HighestBid),
		LowestBidder:   strings.ToLower(state.LowestBidder.Hex()),
		LowestBid:      model.WeiToDecimal(state.LowestBid),
		TotalBidders:   int(state.TotalBidders.Int64()),
	}, nil
}

// UserActiveAuction reads which auction currently holds a wallet's escrow.
func (g *Gateway) UserActiveAuction(ctx context.Context, wallet string) (*model.ActiveLock, error) {
	state, err := g.binding.GetUserActiveAuction(ctx, common.HexToAddress(wallet))
	if err != nil {
		return nil, ClassifyRevert(err)
	}
	lock := &model.ActiveLock{
		HasActive:  state.HasActive,
		IsFinished: state.IsFinished,
	}
	if state.AuctionID != nil {
		lock.ChainAuctionID = state.AuctionID.Int64()
	}
	return lock, nil
}

// BiddersWithDeposits reads bidders still holding non-zero escrow.
func (g *Gateway) BiddersWithDeposits(ctx context.Context, chainAuctionID int64) ([]model.DepositEntry, error) {
	bidders, deposits, err := g.binding.GetBiddersWithDeposits(ctx, big.NewInt(chainAuctionID))
	if err != nil {
		return nil, ClassifyRevert(err)
	}
	entries := make([]model.DepositEntry, 0, len(bidders))
	for i, b := range bidders {
		entries = append(entries, model.DepositEntry{
			Wallet: strings.ToLower(b.Hex()),
			Amount: model.WeiToDecimal(deposits[i]),
		})
	}
	return entries, nil
}

// ContractBalance reads the total native balance held by the contract.
func (g *Gateway) ContractBalance(ctx context.Context) (decimal.Decimal, error) {
	balance, err := g.binding.GetContractBalance(ctx)
	if err != nil {
		return decimal.Zero, ClassifyRevert(err)
	}
	return model.WeiToDecimal(balance), nil
}

// Finalize submits finalizeAuction and waits for the receipt, then reads
// back the settled state to report the winner and final price.
func (g *Gateway) Finalize(ctx context.Context, chainAuctionID int64) (*model.FinalizeOutcome, error) {
	data, err := g.binding.PackFinalizeAuction(big.NewInt(chainAuctionID))
	if err != nil {
		return nil, err
	}

	receipt, err := g.submit(ctx, data)
	if err != nil {
		return nil, err
	}

	outcome := &model.FinalizeOutcome{
		ChainAuctionID: chainAuctionID,
		TxHash:         receipt.TxHash.Hex(),
		BlockNumber:    receipt.BlockNumber.Int64(),
	}
	for _, log := range receipt.Logs {
		if len(log.Topics) == 0 || log.Topics[0] != g.binding.AuctionFinalizedTopic() {
			continue
		}
		ev, perr := g.binding.ParseAuctionFinalized(*log)
		if perr != nil {
			continue
		}
		outcome.Winner = strings.ToLower(ev.Winner.Hex())
		outcome.FinalPrice = model.WeiToDecimal(ev.Amount)
		return outcome, nil
	}

	// Event missing from the receipt, fall back to reading state.
	state, err := g.GetAuction(ctx, chainAuctionID)
	if err != nil {
		return nil, err
	}
	outcome.Winner = state.HighestBidder
	outcome.FinalPrice = state.HighestBid
	return outcome, nil
}

// AdminStop submits adminStopAuction and waits for the receipt.
func (g *Gateway) AdminStop(ctx context.Context, chainAuctionID int64) (string, error) {
	data, err := g.binding.PackAdminStopAuction(big.NewInt(chainAuctionID))
	if err != nil {
		return "", err
	}
	receipt, err := g.submit(ctx, data)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// EmergencyRefundSingle submits emergencyRefundSingle and waits for the receipt.
func (g *Gateway) EmergencyRefundSingle(ctx context.Context, chainAuctionID int64, wallet string) (string, error) {
	data, err := g.binding.PackEmergencyRefundSingle(big.NewInt(chainAuctionID), common.HexToAddress(wallet))
	if err != nil {
		return "", err
	}
	receipt, err := g.submit(ctx, data)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// EmergencyRefundAll submits emergencyRefundAll and waits for the receipt.
func (g *Gateway) EmergencyRefundAll(ctx context.Context, chainAuctionID int64) (string, error) {
	data, err := g.binding.PackEmergencyRefundAll(big.NewInt(chainAuctionID))
	if err != nil {
		return "", err
	}
	receipt, err := g.submit(ctx, data)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// ForceFundsToOwner submits forceFundsToOwner and waits for the receipt.
func (g *Gateway) ForceFundsToOwner(ctx context.Context, chainAuctionID int64) (string, error) {
	data, err := g.binding.PackForceFundsToOwner(big.NewInt(chainAuctionID))
	if err != nil {
		return "", err
	}
	receipt, err := g.submit(ctx, data)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// submit signs, estimates, broadcasts a contract call and waits for its
// receipt. All revert errors come back classified.
func (g *Gateway) submit(ctx context.Context, data []byte) (*types.Receipt, error) {
	if !g.client.HasSigner() {
		return nil, blockchain.ErrSignerNotConfigured
	}

	from := g.client.Address()
	to := g.binding.Address()

	nonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gasLimit, err := g.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		// Estimation reverts carry the contract's revert reason.
		return nil, ClassifyRevert(err)
	}
	if gasLimit > g.gasLimit {
		gasLimit = g.gasLimit
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := g.client.SignTransaction(tx)
	if err != nil {
		return nil, err
	}

	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return nil, ClassifyRevert(err)
	}

	receipt, err := g.client.WaitMined(ctx, signed.Hash(), g.txWait)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
