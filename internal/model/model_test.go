package model

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAuctionStatus(t *testing.T) {
	assert.Equal(t, "PENDING", AuctionStatusPending.String())
	assert.Equal(t, "ACTIVE", AuctionStatusActive.String())
	assert.Equal(t, "ENDED", AuctionStatusEnded.String())
	assert.Equal(t, "STOPPED", AuctionStatusStopped.String())
	assert.Equal(t, "UNKNOWN", AuctionStatus(9).String())

	assert.False(t, AuctionStatusActive.IsTerminal())
	assert.True(t, AuctionStatusEnded.IsTerminal())
	assert.True(t, AuctionStatusStopped.IsTerminal())
}

func TestResultTypeValid(t *testing.T) {
	assert.True(t, ResultTypeWon.Valid())
	assert.True(t, ResultTypeNoBids.Valid())
	assert.True(t, ResultTypeStopped.Valid())
	assert.False(t, ResultType("LOST").Valid())
}

func TestWeiConversion(t *testing.T) {
	// 1.5 ETH
	wei, ok := new(big.Int).SetString("1500000000000000000", 10)
	assert.True(t, ok)

	d := WeiToDecimal(wei)
	assert.True(t, d.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, wei, DecimalToWei(d))

	assert.True(t, WeiToDecimal(nil).IsZero())
}

func TestAuctionSnapshot(t *testing.T) {
	s := AuctionSnapshot{EndTime: 1000, HighestBid: decimal.RequireFromString("0.1")}
	assert.False(t, s.HasEnded(999))
	assert.True(t, s.HasEnded(1000))
	assert.True(t, s.HasBids())

	s.HighestBid = decimal.Zero
	assert.False(t, s.HasBids())
}
