// Package contract provides the AuctionManager smart contract ABI binding.
package contract

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallBackend is the read-only backend required by the binding.
type CallBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// AuctionManagerABI is the ABI of the AuctionManager smart contract.
// This matches the Solidity contract interface:
//
//	function createAuction(uint256 startingBid, uint256 minIncrement, uint256 endTime) external returns (uint256);
//	function placeBid(uint256 auctionId) external payable;
//	function finalizeAuction(uint256 auctionId) external;
//	function adminStopAuction(uint256 auctionId) external;
//	function emergencyRefundSingle(uint256 auctionId, address bidder) external;
//	function emergencyRefundAll(uint256 auctionId) external;
//	function forceFundsToOwner(uint256 auctionId) external;
//	function withdraw() external;
//	event AuctionCreated(uint256 indexed auctionId, address indexed owner, uint256 startingBid, uint256 endTime);
//	event BidPlaced(uint256 indexed auctionId, address indexed bidder, uint256 amount);
//	event AuctionFinalized(uint256 indexed auctionId, address winner, uint256 amount);
//	event AuctionStopped(uint256 indexed auctionId);
const AuctionManagerABI = `[
	{
		"type": "function",
		"name": "createAuction",
		"inputs": [
			{"name": "startingBid", "type": "uint256"},
			{"name": "minIncrement", "type": "uint256"},
			{"name": "endTime", "type": "uint256"}
		],
		"outputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "placeBid",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "payable"
	},
	{
		"type": "function",
		"name": "finalizeAuction",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "adminStopAuction",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "emergencyRefundSingle",
		"inputs": [
			{"name": "auctionId", "type": "uint256"},
			{"name": "bidder", "type": "address"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "emergencyRefundAll",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "forceFundsToOwner",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "withdraw",
		"inputs": [],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "addAdmin",
		"inputs": [
			{"name": "admin", "type": "address"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "removeAdmin",
		"inputs": [
			{"name": "admin", "type": "address"}
		],
		"outputs": [],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "isAdmin",
		"inputs": [
			{"name": "account", "type": "address"}
		],
		"outputs": [
			{"name": "", "type": "bool"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "getAuction",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [
			{"name": "owner", "type": "address"},
			{"name": "startingBid", "type": "uint256"},
			{"name": "minIncrement", "type": "uint256"},
			{"name": "highestBidder", "type": "address"},
			{"name": "highestBid", "type": "uint256"},
			{"name": "endTime", "type": "uint256"},
			{"name": "isActive", "type": "bool"},
			{"name": "isFinalized", "type": "bool"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "auctionCount",
		"inputs": [],
		"outputs": [
			{"name": "", "type": "uint256"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "getAuctionLeaderboard",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [
			{"name": "highestBidder", "type": "address"},
			{"name": "highestBid", "type": "uint256"},
			{"name": "lowestBidder", "type": "address"},
			{"name": "lowestBid", "type": "uint256"},
			{"name": "totalBidders", "type": "uint256"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "getUserActiveAuction",
		"inputs": [
			{"name": "user", "type": "address"}
		],
		"outputs": [
			{"name": "hasActive", "type": "bool"},
			{"name": "auctionId", "type": "uint256"},
			{"name": "isFinished", "type": "bool"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "getAuctionBiddersWithDeposits",
		"inputs": [
			{"name": "auctionId", "type": "uint256"}
		],
		"outputs": [
			{"name": "bidders", "type": "address[]"},
			{"name": "deposits", "type": "uint256[]"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "pendingWithdrawal",
		"inputs": [
			{"name": "account", "type": "address"}
		],
		"outputs": [
			{"name": "", "type": "uint256"}
		],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "getContractBalance",
		"inputs": [],
		"outputs": [
			{"name": "", "type": "uint256"}
		],
		"stateMutability": "view"
	},
	{
		"type": "event",
		"name": "AuctionCreated",
		"inputs": [
			{"name": "auctionId", "type": "uint256", "indexed": true},
			{"name": "owner", "type": "address", "indexed": true},
			{"name": "startingBid", "type": "uint256", "indexed": false},
			{"name": "endTime", "type": "uint256", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "BidPlaced",
		"inputs": [
			{"name": "auctionId", "type": "uint256", "indexed": true},
			{"name": "bidder", "type": "address", "indexed": true},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "AuctionFinalized",
		"inputs": [
			{"name": "auctionId", "type": "uint256", "indexed": true},
			{"name": "winner", "type": "address", "indexed": false},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	},
	{
		"type": "event",
		"name": "AuctionStopped",
		"inputs": [
			{"name": "auctionId", "type": "uint256", "indexed": true}
		]
	}
]`

// AuctionState mirrors the getAuction view return values.
type AuctionState struct {
	Owner         common.Address
	StartingBid   *big.Int
	MinIncrement  *big.Int
	HighestBidder common.Address
	HighestBid    *big.Int
	EndTime       *big.Int
	IsActive      bool
	IsFinalized   bool
}

// LeaderboardState mirrors the getAuctionLeaderboard view return values.
type LeaderboardState struct {
	HighestBidder common.Address
	HighestBid    *big.Int
	LowestBidder  common.Address
	LowestBid     *big.Int
	TotalBidders  *big.Int
}

// UserActiveState mirrors the getUserActiveAuction view return values.
type UserActiveState struct {
	HasActive  bool
	AuctionID  *big.Int
	IsFinished bool
}

// AuctionCreatedEvent represents the AuctionCreated event.
type AuctionCreatedEvent struct {
	AuctionID   *big.Int
	Owner       common.Address
	StartingBid *big.Int
	EndTime     *big.Int
	Raw         types.Log
}

// BidPlacedEvent represents the BidPlaced event.
type BidPlacedEvent struct {
	AuctionID *big.Int
	Bidder    common.Address
	Amount    *big.Int
	Raw       types.Log
}

// AuctionFinalizedEvent represents the AuctionFinalized event.
type AuctionFinalizedEvent struct {
	AuctionID *big.Int
	Winner    common.Address
	Amount    *big.Int
	Raw       types.Log
}

// AuctionManagerContract provides methods to interact with the AuctionManager contract.
type AuctionManagerContract struct {
	address common.Address
	abi     abi.ABI
	backend CallBackend
}

// NewAuctionManagerContract creates a new AuctionManager contract instance.
func NewAuctionManagerContract(address common.Address, backend CallBackend) (*AuctionManagerContract, error) {
	parsed, err := abi.JSON(strings.NewReader(AuctionManagerABI))
	if err != nil {
		return nil, err
	}
	return &AuctionManagerContract{
		address: address,
		abi:     parsed,
		backend: backend,
	}, nil
}

// Address returns the contract address.
func (c *AuctionManagerContract) Address() common.Address {
	return c.address
}

// ABI returns the contract ABI.
func (c *AuctionManagerContract) ABI() abi.ABI {
	return c.abi
}

// PackCreateAuction packs the createAuction call data.
func (c *AuctionManagerContract) PackCreateAuction(startingBid, minIncrement, endTime *big.Int) ([]byte, error) {
	if startingBid == nil || startingBid.Sign() <= 0 {
		return nil, errors.New("invalid starting bid")
	}
	if minIncrement == nil || minIncrement.Sign() <= 0 {
		return nil, errors.New("invalid min increment")
	}
	if endTime == nil || endTime.Sign() <= 0 {
		return nil, errors.New("invalid end time")
	}
	return c.abi.Pack("createAuction", startingBid, minIncrement, endTime)
}

// PackPlaceBid packs the placeBid call data. The bid amount travels as tx value.
func (c *AuctionManagerContract) PackPlaceBid(auctionID *big.Int) ([]byte, error) {
	return c.abi.Pack("placeBid", auctionID)
}

// PackFinalizeAuction packs the finalizeAuction call data.
func (c *AuctionManagerContract) PackFinalizeAuction(auctionID *big.Int) ([]byte, error) {
	return c.abi.Pack("finalizeAuction", auctionID)
}

// PackAdminStopAuction packs the adminStopAuction call data.
func (c *AuctionManagerContract) PackAdminStopAuction(auctionID *big.Int) ([]byte, error) {
	return c.abi.Pack("adminStopAuction", auctionID)
}

// PackEmergencyRefundSingle packs the emergencyRefundSingle call data.
func (c *AuctionManagerContract) PackEmergencyRefundSingle(auctionID *big.Int, bidder common.Address) ([]byte, error) {
	return c.abi.Pack("emergencyRefundSingle", auctionID, bidder)
}

// PackEmergencyRefundAll packs the emergencyRefundAll call data.
func (c *AuctionManagerContract) PackEmergencyRefundAll(auctionID *big.Int) ([]byte, error) {
	return c.abi.Pack("emergencyRefundAll", auctionID)
}

// PackForceFundsToOwner packs the forceFundsToOwner call data.
func (c *AuctionManagerContract) PackForceFundsToOwner(auctionID *big.Int) ([]byte, error) {
	return c.abi.Pack("forceFundsToOwner", auctionID)
}

// GetAuction queries the on-chain auction state.
func (c *AuctionManagerContract) GetAuction(ctx context.Context, auctionID *big.Int) (*AuctionState, error) {
	data, err := c.abi.Pack("getAuction", auctionID)
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, err
	}

	state := &AuctionState{}
	if err := c.abi.UnpackIntoInterface(state, "getAuction", result); err != nil {
		return nil, err
	}
	return state, nil
}

// AuctionCount queries the number of auctions ever created.
func (c *AuctionManagerContract) AuctionCount(ctx context.Context) (*big.Int, error) {
	data, err := c.abi.Pack("auctionCount")
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, err
	}

	var count *big.Int
	if err := c.abi.UnpackIntoInterface(&count, "auctionCount", result); err != nil {
		return nil, err
	}
	return count, nil
}

// GetLeaderboard queries the bid leaderboard for an auction.
func (c *AuctionManagerContract) GetLeaderboard(ctx context.Context, auctionID *big.Int) (*LeaderboardState, error) {
	data, err := c.abi.Pack("getAuctionLeaderboard", auctionID)
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, err
	}

	state := &LeaderboardState{}
	if err := c.abi.UnpackIntoInterface(state, "getAuctionLeaderboard", result); err != nil {
		return nil, err
	}
	return state, nil
}

// GetUserActiveAuction queries which auction currently holds a user's escrow.
func (c *AuctionManagerContract) GetUserActiveAuction(ctx context.Context, user common.Address) (*UserActiveState, error) {
	data, err := c.abi.Pack("getUserActiveAuction", user)
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, err
	}

	state := &UserActiveState{}
	if err := c.abi.UnpackIntoInterface(state, "getUserActiveAuction", result); err != nil {
		return nil, err
	}
	return state, nil
}

// GetBiddersWithDeposits queries bidders still holding non-zero escrow.
func (c *AuctionManagerContract) GetBiddersWithDeposits(ctx context.Context, auctionID *big.Int) ([]common.Address, []*big.Int, error) {
	data, err := c.abi.Pack("getAuctionBiddersWithDeposits", auctionID)
	if err != nil {
		return nil, nil, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, nil, err
	}

	out, err := c.abi.Unpack("getAuctionBiddersWithDeposits", result)
	if err != nil {
		return nil, nil, err
	}
	if len(out) != 2 {
		return nil, nil, errors.New("unexpected getAuctionBiddersWithDeposits output")
	}
	bidders, ok := out[0].([]common.Address)
	if !ok {
		return nil, nil, errors.New("unexpected bidders type")
	}
	deposits, ok := out[1].([]*big.Int)
	if !ok {
		return nil, nil, errors.New("unexpected deposits type")
	}
	return bidders, deposits, nil
}

// PendingWithdrawal queries the withdrawable balance of an account.
func (c *AuctionManagerContract) PendingWithdrawal(ctx context.Context, account common.Address) (*big.Int, error) {
	data, err := c.abi.Pack("pendingWithdrawal", account)
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, err
	}

	var amount *big.Int
	if err := c.abi.UnpackIntoInterface(&amount, "pendingWithdrawal", result); err != nil {
		return nil, err
	}
	return amount, nil
}

// GetContractBalance queries the total native balance held by the contract.
func (c *AuctionManagerContract) GetContractBalance(ctx context.Context) (*big.Int, error) {
	data, err := c.abi.Pack("getContractBalance")
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	if err := c.abi.UnpackIntoInterface(&balance, "getContractBalance", result); err != nil {
		return nil, err
	}
	return balance, nil
}

// IsAdmin queries whether an account is a contract admin.
func (c *AuctionManagerContract) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	data, err := c.abi.Pack("isAdmin", account)
	if err != nil {
		return false, err
	}

	result, err := c.call(ctx, data)
	if err != nil {
		return false, err
	}

	var isAdmin bool
	if err := c.abi.UnpackIntoInterface(&isAdmin, "isAdmin", result); err != nil {
		return false, err
	}
	return isAdmin, nil
}

func (c *AuctionManagerContract) call(ctx context.Context, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &c.address,
		Data: data,
	}
	return c.backend.CallContract(ctx, msg, nil)
}

// ParseAuctionCreated parses an AuctionCreated event from a log.
func (c *AuctionManagerContract) ParseAuctionCreated(log types.Log) (*AuctionCreatedEvent, error) {
	if len(log.Topics) < 3 {
		return nil, errors.New("not enough topics for AuctionCreated event")
	}
	event := &AuctionCreatedEvent{Raw: log}
	event.AuctionID = new(big.Int).SetBytes(log.Topics[1].Bytes())
	event.Owner = common.HexToAddress(log.Topics[2].Hex())
	if len(log.Data) >= 64 {
		event.StartingBid = new(big.Int).SetBytes(log.Data[:32])
		event.EndTime = new(big.Int).SetBytes(log.Data[32:64])
	}
	return event, nil
}

// ParseBidPlaced parses a BidPlaced event from a log.
func (c *AuctionManagerContract) ParseBidPlaced(log types.Log) (*BidPlacedEvent, error) {
	if len(log.Topics) < 3 {
		return nil, errors.New("not enough topics for BidPlaced event")
	}
	event := &BidPlacedEvent{Raw: log}
	event.AuctionID = new(big.Int).SetBytes(log.Topics[1].Bytes())
	event.Bidder = common.HexToAddress(log.Topics[2].Hex())
	if len(log.Data) >= 32 {
		event.Amount = new(big.Int).SetBytes(log.Data[:32])
	}
	return event, nil
}

// ParseAuctionFinalized parses an AuctionFinalized event from a log.
func (c *AuctionManagerContract) ParseAuctionFinalized(log types.Log) (*AuctionFinalizedEvent, error) {
	if len(log.Topics) < 2 {
		return nil, errors.New("not enough topics for AuctionFinalized event")
	}
	event := &AuctionFinalizedEvent{Raw: log}
	event.AuctionID = new(big.Int).SetBytes(log.Topics[1].Bytes())
	if len(log.Data) >= 64 {
		event.Winner = common.BytesToAddress(log.Data[:32])
		event.Amount = new(big.Int).SetBytes(log.Data[32:64])
	}
	return event, nil
}

// AuctionCreatedTopic returns the topic for AuctionCreated events.
func (c *AuctionManagerContract) AuctionCreatedTopic() common.Hash {
	return c.abi.Events["AuctionCreated"].ID
}

// BidPlacedTopic returns the topic for BidPlaced events.
func (c *AuctionManagerContract) BidPlacedTopic() common.Hash {
	return c.abi.Events["BidPlaced"].ID
}

// AuctionFinalizedTopic returns the topic for AuctionFinalized events.
func (c *AuctionManagerContract) AuctionFinalizedTopic() common.Hash {
	return c.abi.Events["AuctionFinalized"].ID
}

// AuctionStoppedTopic returns the topic for AuctionStopped events.
func (c *AuctionManagerContract) AuctionStoppedTopic() common.Hash {
	return c.abi.Events["AuctionStopped"].ID
}
