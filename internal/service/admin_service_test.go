package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
)

type adminFixture struct {
	*finalizerFixture
	emergencies *mockEmergencyRepository
	svc         *AdminService
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	base := newFinalizerFixture(t)
	f := &adminFixture{
		finalizerFixture: base,
		emergencies:      &mockEmergencyRepository{},
	}
	f.svc = NewAdminService(base.gateway, base.auctionRepo, f.emergencies, base.svc)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestAdminService_PreviewStop(t *testing.T) {
	f := newAdminFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))
	require.NoError(t, f.ledger.PlaceBid(bobAddr, uint64(auction.ChainAuctionID), testEth(150)))

	preview, err := f.svc.PreviewStop(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.True(t, preview.Chain.IsActive)
	// 被超越的托管已转入可提取余额, 只有当前领先者仍持有托管
	assert.Equal(t, 1, preview.BidderCount)
	assert.True(t, preview.RefundTotal.Equal(decimal.NewFromFloat(0.15)))
}

func TestAdminService_StopAuction(t *testing.T) {
	f := newAdminFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))

	f.auctionRepo.On("GetByChainID", mock.Anything, auction.ChainAuctionID, (*repository.QueryOptions)(nil)).
		Return(auction, nil)
	f.auctionRepo.On("Transaction", mock.Anything, mock.Anything).Return(nil)
	f.auctionRepo.On("MarkFinalized", mock.Anything, auction.ChainAuctionID, model.AuctionStatusStopped, mock.Anything).Return(nil)
	f.resultRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.emergencies.On("Create", mock.Anything, mock.Anything).Return(nil)

	txHash, err := f.svc.StopAuction(context.Background(), auction.ChainAuctionID, "ops-admin", "listing violation")
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)

	// 链上状态已终止, 出价者托管转入可提取余额
	snap, err := f.gateway.GetAuction(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.False(t, snap.IsActive)
	assert.Equal(t, testEth(100), f.ledger.Withdrawable(aliceAddr))

	// STOPPED 结果补写入索引, 终止时刻的领先者一并保留
	result := f.resultRepo.stored(auction.ChainAuctionID)
	require.NotNil(t, result)
	assert.Equal(t, model.ResultTypeStopped, result.ResultType)
	assert.Equal(t, "0x0000000000000000000000000000000000000a11", result.WinnerWallet)
	assert.True(t, result.FinalPrice.Equal(decimal.NewFromFloat(0.1)))
	assert.Equal(t, 1, result.TotalParticipants)

	// 审计记录
	f.emergencies.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(a *model.EmergencyAction) bool {
		return a.ActionType == model.EmergencyActionStop &&
			a.AuctionID == auction.ChainAuctionID &&
			a.Operator == "ops-admin" &&
			a.TxHash == txHash
	}))
}

func TestAdminService_StopAuction_AlreadyTerminal(t *testing.T) {
	f := newAdminFixture(t)
	auction := &model.Auction{
		ChainAuctionID: 1,
		Status:         model.AuctionStatusEnded,
	}

	f.auctionRepo.On("GetByChainID", mock.Anything, int64(1), (*repository.QueryOptions)(nil)).
		Return(auction, nil)

	_, err := f.svc.StopAuction(context.Background(), 1, "ops-admin", "")
	assert.ErrorIs(t, err, ledger.ErrAlreadyFinalized)
	f.emergencies.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminService_StopAuction_ReadOnly(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.gateway = &readOnlyGateway{Gateway: f.gateway}

	_, err := f.svc.StopAuction(context.Background(), 1, "ops-admin", "")
	assert.ErrorIs(t, err, ErrReadOnlyGateway)
}

func TestAdminService_EmergencyRefundSingle(t *testing.T) {
	f := newAdminFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))

	f.emergencies.On("Create", mock.Anything, mock.Anything).Return(nil)

	txHash, err := f.svc.EmergencyRefundSingle(context.Background(), auction.ChainAuctionID, aliceAddr.Hex(), "ops-admin", "stuck escrow")
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)

	// 托管被直接退回, 不经过可提取余额
	deposits, err := f.gateway.BiddersWithDeposits(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.Empty(t, deposits)

	f.emergencies.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(a *model.EmergencyAction) bool {
		return a.ActionType == model.EmergencyActionRefundSingle && a.TargetWallet == aliceAddr.Hex()
	}))
}

func TestAdminService_EmergencyRefundAll(t *testing.T) {
	f := newAdminFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))
	require.NoError(t, f.ledger.PlaceBid(bobAddr, uint64(auction.ChainAuctionID), testEth(150)))

	f.emergencies.On("Create", mock.Anything, mock.Anything).Return(nil)

	txHash, err := f.svc.EmergencyRefundAll(context.Background(), auction.ChainAuctionID, "ops-admin", "contract migration")
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)

	deposits, err := f.gateway.BiddersWithDeposits(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.Empty(t, deposits)
}

func TestAdminService_ForceFundsToOwner(t *testing.T) {
	f := newAdminFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))

	f.emergencies.On("Create", mock.Anything, mock.Anything).Return(nil)

	txHash, err := f.svc.ForceFundsToOwner(context.Background(), auction.ChainAuctionID, "ops-admin", "stop settlement")
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)

	// 领先者托管已清空
	deposits, err := f.gateway.BiddersWithDeposits(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.Empty(t, deposits)

	f.emergencies.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(a *model.EmergencyAction) bool {
		return a.ActionType == model.EmergencyActionForceToOwner
	}))
}

func TestAdminService_ListActions(t *testing.T) {
	f := newAdminFixture(t)
	page := &repository.Pagination{Page: 1, PageSize: 20}
	expected := []*model.EmergencyAction{{AuctionID: 1, ActionType: model.EmergencyActionStop}}

	f.emergencies.On("ListByAuction", mock.Anything, int64(1), page).Return(expected, nil)

	actions, err := f.svc.ListActions(context.Background(), 1, page)
	require.NoError(t, err)
	assert.Equal(t, expected, actions)
}
