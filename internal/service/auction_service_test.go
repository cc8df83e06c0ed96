package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
)

// mockBidLogRepository 模拟出价流水仓储
type mockBidLogRepository struct {
	mock.Mock
}

func (m *mockBidLogRepository) InsertIgnore(ctx context.Context, log *model.BidLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *mockBidLogRepository) ListByAuction(ctx context.Context, auctionID int64, page *repository.Pagination) ([]*model.BidLog, error) {
	args := m.Called(ctx, auctionID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.BidLog), args.Error(1)
}

func (m *mockBidLogRepository) ListByBidder(ctx context.Context, bidderWallet string, page *repository.Pagination) ([]*model.BidLog, error) {
	args := m.Called(ctx, bidderWallet, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.BidLog), args.Error(1)
}

func (m *mockBidLogRepository) CountByAuction(ctx context.Context, auctionID int64) (int64, error) {
	args := m.Called(ctx, auctionID)
	return args.Get(0).(int64), args.Error(1)
}

type auctionFixture struct {
	*finalizerFixture
	bidLogs *mockBidLogRepository
	svc     *AuctionService
}

func newAuctionFixture(t *testing.T) *auctionFixture {
	t.Helper()

	base := newFinalizerFixture(t)
	f := &auctionFixture{
		finalizerFixture: base,
		bidLogs:          &mockBidLogRepository{},
	}
	f.svc = NewAuctionService(base.gateway, base.auctionRepo, base.resultRepo, f.bidLogs, base.svc)
	f.svc.SetClock(func() time.Time { return f.clock })
	return f
}

// ======== 登记 ========

func TestAuctionService_Register(t *testing.T) {
	f := newAuctionFixture(t)
	chainAuction := f.createAuction(t, time.Hour)

	f.auctionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	auction, err := f.svc.Register(context.Background(), &RegisterAuctionRequest{
		ChainAuctionID: chainAuction.ChainAuctionID,
		Title:          "vintage camera",
		Description:    "1960s rangefinder",
		CreatedTxHash:  "0xabc",
	})
	require.NoError(t, err)
	assert.Equal(t, chainAuction.ChainAuctionID, auction.ChainAuctionID)
	assert.Equal(t, "vintage camera", auction.Title)
	assert.Equal(t, model.AuctionStatusActive, auction.Status)
	// 链上元数据落入索引
	assert.Equal(t, "0x0000000000000000000000000000000000000101", auction.OwnerWallet)
	assert.Equal(t, chainAuction.EndTime, auction.EndTime)
}

func TestAuctionService_Register_Validation(t *testing.T) {
	f := newAuctionFixture(t)

	_, err := f.svc.Register(context.Background(), nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)

	_, err = f.svc.Register(context.Background(), &RegisterAuctionRequest{ChainAuctionID: 1})
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)

	_, err = f.svc.Register(context.Background(), &RegisterAuctionRequest{ChainAuctionID: 0, Title: "x"})
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)
}

func TestAuctionService_Register_UnknownOnChain(t *testing.T) {
	f := newAuctionFixture(t)

	_, err := f.svc.Register(context.Background(), &RegisterAuctionRequest{
		ChainAuctionID: 404,
		Title:          "ghost",
	})
	assert.ErrorIs(t, err, ledger.ErrAuctionNotFound)
}

// ======== 详情 ========

func TestAuctionService_GetDetail_SyncsHighestBid(t *testing.T) {
	f := newAuctionFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(120)))

	f.auctionRepo.On("GetByChainID", mock.Anything, auction.ChainAuctionID, (*repository.QueryOptions)(nil)).
		Return(auction, nil)
	f.auctionRepo.On("SyncHighestBid", mock.Anything, auction.ChainAuctionID, "0.12", "0x0000000000000000000000000000000000000a11").
		Return(nil)
	f.resultRepo.On("GetByAuctionID", mock.Anything, auction.ChainAuctionID).
		Return(nil, repository.ErrResultNotFound)

	detail, err := f.svc.GetDetail(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)

	// 索引镜像被链上值修正
	assert.True(t, detail.Auction.HighestBid.Equal(detail.Chain.HighestBid))
	assert.Equal(t, "0x0000000000000000000000000000000000000a11", detail.Auction.HighestBidder)
	assert.Nil(t, detail.Result)
	assert.Equal(t, int64(3600), detail.RemainingSeconds)
	f.auctionRepo.AssertCalled(t, "SyncHighestBid", mock.Anything, auction.ChainAuctionID, "0.12", "0x0000000000000000000000000000000000000a11")
}

func TestAuctionService_GetDetail_TriggersOnDemandFinalize(t *testing.T) {
	f := newAuctionFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))
	f.advance(2 * time.Hour)

	f.auctionRepo.On("GetByChainID", mock.Anything, auction.ChainAuctionID, (*repository.QueryOptions)(nil)).
		Return(auction, nil)
	f.auctionRepo.On("SyncHighestBid", mock.Anything, auction.ChainAuctionID, mock.Anything, mock.Anything).Return(nil)
	f.auctionRepo.On("Transaction", mock.Anything, mock.Anything).Return(nil)
	f.auctionRepo.On("MarkFinalized", mock.Anything, auction.ChainAuctionID, model.AuctionStatusEnded, mock.Anything).Return(nil)
	f.resultRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	f.resultRepo.On("GetByAuctionID", mock.Anything, auction.ChainAuctionID).Return(nil, nil)
	f.users.On("GetOrCreateByWallet", mock.Anything, mock.Anything).Return(&model.User{ID: 3}, nil)
	f.deliveries.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(nil)

	detail, err := f.svc.GetDetail(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)

	// 详情读触发了链上终结
	assert.True(t, detail.Chain.IsFinalized)
	assert.Equal(t, int64(0), detail.RemainingSeconds)
	require.NotNil(t, detail.Result)
	assert.Equal(t, model.ResultTypeWon, detail.Result.ResultType)
}

func TestAuctionService_GetDetail_ReadOnlyDoesNotFinalize(t *testing.T) {
	f := newAuctionFixture(t)
	auction := f.createAuction(t, time.Hour)
	f.advance(2 * time.Hour)

	f.svc.gateway = &readOnlyGateway{Gateway: f.gateway}

	f.auctionRepo.On("GetByChainID", mock.Anything, auction.ChainAuctionID, (*repository.QueryOptions)(nil)).
		Return(auction, nil)
	f.resultRepo.On("GetByAuctionID", mock.Anything, auction.ChainAuctionID).
		Return(nil, repository.ErrResultNotFound)

	detail, err := f.svc.GetDetail(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)

	// 只读网关不触发终结, 链上保持活跃
	assert.False(t, detail.Chain.IsFinalized)
	assert.True(t, detail.Chain.IsActive)
	f.resultRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

// ======== 实时查询 ========

func TestAuctionService_RemainingTime(t *testing.T) {
	f := newAuctionFixture(t)
	auction := f.createAuction(t, time.Hour)

	remaining, err := f.svc.RemainingTime(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), remaining)

	f.advance(2 * time.Hour)
	remaining, err = f.svc.RemainingTime(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)
}

func TestAuctionService_Leaderboard(t *testing.T) {
	f := newAuctionFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))
	require.NoError(t, f.ledger.PlaceBid(bobAddr, uint64(auction.ChainAuctionID), testEth(130)))

	board, err := f.svc.Leaderboard(context.Background(), auction.ChainAuctionID)
	require.NoError(t, err)
	assert.Equal(t, 2, board.TotalBidders)
	assert.Equal(t, "0x0000000000000000000000000000000000000b0b", board.HighestBidder)
	assert.Equal(t, "0x0000000000000000000000000000000000000a11", board.LowestBidder)
	assert.True(t, board.HighestBid.GreaterThan(board.LowestBid))
}

func TestAuctionService_UserActiveAuction(t *testing.T) {
	f := newAuctionFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))

	lock, err := f.svc.UserActiveAuction(context.Background(), aliceAddr.Hex())
	require.NoError(t, err)
	assert.True(t, lock.HasActive)
	assert.Equal(t, auction.ChainAuctionID, lock.ChainAuctionID)

	lock, err = f.svc.UserActiveAuction(context.Background(), bobAddr.Hex())
	require.NoError(t, err)
	assert.False(t, lock.HasActive)
}

func TestAuctionService_UserActiveAuction_InvalidWallet(t *testing.T) {
	f := newAuctionFixture(t)

	_, err := f.svc.UserActiveAuction(context.Background(), "not-a-wallet")
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)

	_, err = f.svc.UserActiveAuction(context.Background(), "0x123")
	assert.ErrorIs(t, err, ledger.ErrInvalidParameters)
}

func TestAuctionService_ContractBalance(t *testing.T) {
	f := newAuctionFixture(t)
	auction := f.createAuction(t, time.Hour)
	require.NoError(t, f.ledger.PlaceBid(aliceAddr, uint64(auction.ChainAuctionID), testEth(100)))

	balance, err := f.svc.ContractBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.1", balance.String())
}
