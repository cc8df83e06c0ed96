package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gin-gonic/gin"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
	"github.com/RaprApraP54/rapz-auction/internal/scheduler"
	"github.com/RaprApraP54/rapz-auction/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	adminAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	sellerAddr  = common.HexToAddress("0x0000000000000000000000000000000000000101")
	aliceWallet = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bobWallet   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

// milliEth 换算: n/1000 ETH 对应的 wei 数
func milliEth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000))
}

// ========== 内存仓储 ==========

type memAuctionRepo struct {
	seq  int64
	rows map[int64]*model.Auction
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{rows: make(map[int64]*model.Auction)}
}

func (m *memAuctionRepo) Create(_ context.Context, a *model.Auction) error {
	m.seq++
	a.ID = m.seq
	a.CreatedAt = time.Now().UnixMilli()
	a.UpdatedAt = a.CreatedAt
	m.rows[a.ChainAuctionID] = a
	return nil
}

func (m *memAuctionRepo) GetByID(_ context.Context, id int64) (*model.Auction, error) {
	for _, a := range m.rows {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repository.ErrAuctionNotFound
}

func (m *memAuctionRepo) GetByChainID(_ context.Context, chainAuctionID int64, _ *repository.QueryOptions) (*model.Auction, error) {
	a, ok := m.rows[chainAuctionID]
	if !ok {
		return nil, repository.ErrAuctionNotFound
	}
	return a, nil
}

func (m *memAuctionRepo) Update(_ context.Context, a *model.Auction) error {
	m.rows[a.ChainAuctionID] = a
	return nil
}

func (m *memAuctionRepo) UpdateStatus(_ context.Context, chainAuctionID int64, status model.AuctionStatus) error {
	if a, ok := m.rows[chainAuctionID]; ok {
		a.Status = status
	}
	return nil
}

func (m *memAuctionRepo) MarkFinalized(_ context.Context, chainAuctionID int64, status model.AuctionStatus, txHash string) error {
	a, ok := m.rows[chainAuctionID]
	if !ok {
		return repository.ErrAuctionNotFound
	}
	if a.Status.IsTerminal() {
		return nil
	}
	a.Status = status
	a.FinalizedTxHash = txHash
	return nil
}

func (m *memAuctionRepo) SyncHighestBid(_ context.Context, chainAuctionID int64, highestBid, highestBidder string) error {
	a, ok := m.rows[chainAuctionID]
	if !ok {
		return repository.ErrAuctionNotFound
	}
	d, err := decimal.NewFromString(highestBid)
	if err != nil {
		return err
	}
	a.HighestBid = d
	a.HighestBidder = highestBidder
	return nil
}

func (m *memAuctionRepo) ListActive(_ context.Context, limit int) ([]*model.Auction, error) {
	var active []*model.Auction
	for _, a := range m.rows {
		if a.Status == model.AuctionStatusActive {
			active = append(active, a)
		}
		if len(active) >= limit {
			break
		}
	}
	return active, nil
}

func (m *memAuctionRepo) ListByStatus(_ context.Context, status model.AuctionStatus, page *repository.Pagination) ([]*model.Auction, error) {
	var out []*model.Auction
	for _, a := range m.rows {
		if a.Status == status {
			out = append(out, a)
		}
	}
	page.Total = int64(len(out))
	return out, nil
}

func (m *memAuctionRepo) ListByOwner(_ context.Context, ownerWallet string, page *repository.Pagination) ([]*model.Auction, error) {
	var out []*model.Auction
	for _, a := range m.rows {
		if strings.EqualFold(a.OwnerWallet, ownerWallet) {
			out = append(out, a)
		}
	}
	page.Total = int64(len(out))
	return out, nil
}

func (m *memAuctionRepo) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memResultRepo struct {
	rows map[int64]*model.AuctionResult
}

func newMemResultRepo() *memResultRepo {
	return &memResultRepo{rows: make(map[int64]*model.AuctionResult)}
}

func (m *memResultRepo) Upsert(_ context.Context, r *model.AuctionResult) error {
	m.rows[r.AuctionID] = r
	return nil
}

func (m *memResultRepo) GetByAuctionID(_ context.Context, auctionID int64) (*model.AuctionResult, error) {
	r, ok := m.rows[auctionID]
	if !ok {
		return nil, repository.ErrResultNotFound
	}
	return r, nil
}

func (m *memResultRepo) ListByWinner(_ context.Context, winnerUserID int64, page *repository.Pagination) ([]*model.AuctionResult, error) {
	var out []*model.AuctionResult
	for _, r := range m.rows {
		if r.WinnerUserID == winnerUserID {
			out = append(out, r)
		}
	}
	page.Total = int64(len(out))
	return out, nil
}

func (m *memResultRepo) List(_ context.Context, page *repository.Pagination) ([]*model.AuctionResult, error) {
	var out []*model.AuctionResult
	for _, r := range m.rows {
		out = append(out, r)
	}
	page.Total = int64(len(out))
	return out, nil
}

type memBidLogRepo struct {
	rows []*model.BidLog
}

func (m *memBidLogRepo) InsertIgnore(_ context.Context, log *model.BidLog) error {
	for _, existing := range m.rows {
		if existing.TxHash == log.TxHash {
			return nil
		}
	}
	m.rows = append(m.rows, log)
	return nil
}

func (m *memBidLogRepo) ListByAuction(_ context.Context, auctionID int64, page *repository.Pagination) ([]*model.BidLog, error) {
	var out []*model.BidLog
	for _, l := range m.rows {
		if l.AuctionID == auctionID {
			out = append(out, l)
		}
	}
	page.Total = int64(len(out))
	return out, nil
}

func (m *memBidLogRepo) ListByBidder(_ context.Context, bidderWallet string, page *repository.Pagination) ([]*model.BidLog, error) {
	var out []*model.BidLog
	for _, l := range m.rows {
		if strings.EqualFold(l.BidderWallet, bidderWallet) {
			out = append(out, l)
		}
	}
	page.Total = int64(len(out))
	return out, nil
}

func (m *memBidLogRepo) CountByAuction(_ context.Context, auctionID int64) (int64, error) {
	var n int64
	for _, l := range m.rows {
		if l.AuctionID == auctionID {
			n++
		}
	}
	return n, nil
}

type memDeliveryRepo struct {
	rows map[int64]*model.Delivery
}

func newMemDeliveryRepo() *memDeliveryRepo {
	return &memDeliveryRepo{rows: make(map[int64]*model.Delivery)}
}

func (m *memDeliveryRepo) CreateIfAbsent(_ context.Context, d *model.Delivery) error {
	if _, ok := m.rows[d.AuctionID]; ok {
		return nil
	}
	m.rows[d.AuctionID] = d
	return nil
}

func (m *memDeliveryRepo) GetByAuctionID(_ context.Context, auctionID int64) (*model.Delivery, error) {
	d, ok := m.rows[auctionID]
	if !ok {
		return nil, repository.ErrDeliveryNotFound
	}
	return d, nil
}

func (m *memDeliveryRepo) UpdateRecipient(_ context.Context, auctionID int64, recipient, phone, address string) error {
	d, ok := m.rows[auctionID]
	if !ok {
		return repository.ErrDeliveryNotFound
	}
	d.Recipient = recipient
	d.Phone = phone
	d.Address = address
	d.Status = model.DeliveryStatusConfirmed
	return nil
}

func (m *memDeliveryRepo) UpdateStatus(_ context.Context, auctionID int64, status model.DeliveryStatus, trackingNo string) error {
	d, ok := m.rows[auctionID]
	if !ok {
		return repository.ErrDeliveryNotFound
	}
	d.Status = status
	if trackingNo != "" {
		d.TrackingNo = trackingNo
	}
	return nil
}

func (m *memDeliveryRepo) ListByWinner(_ context.Context, winnerUserID int64, page *repository.Pagination) ([]*model.Delivery, error) {
	var out []*model.Delivery
	for _, d := range m.rows {
		if d.WinnerUserID == winnerUserID {
			out = append(out, d)
		}
	}
	page.Total = int64(len(out))
	return out, nil
}

type memUserRepo struct {
	seq  int64
	rows map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{rows: make(map[string]*model.User)}
}

func (m *memUserRepo) GetOrCreateByWallet(_ context.Context, wallet string) (*model.User, error) {
	key := strings.ToLower(wallet)
	if u, ok := m.rows[key]; ok {
		return u, nil
	}
	m.seq++
	u := &model.User{ID: m.seq, WalletAddress: key}
	m.rows[key] = u
	return u, nil
}

func (m *memUserRepo) GetByWallet(_ context.Context, wallet string) (*model.User, error) {
	if u, ok := m.rows[strings.ToLower(wallet)]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range m.rows {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserRepo) UpdateNickname(_ context.Context, id int64, nickname string) error {
	for _, u := range m.rows {
		if u.ID == id {
			u.Nickname = nickname
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type memEmergencyRepo struct {
	rows []*model.EmergencyAction
}

func (m *memEmergencyRepo) Create(_ context.Context, action *model.EmergencyAction) error {
	m.rows = append(m.rows, action)
	return nil
}

func (m *memEmergencyRepo) ListByAuction(_ context.Context, auctionID int64, page *repository.Pagination) ([]*model.EmergencyAction, error) {
	var out []*model.EmergencyAction
	for _, a := range m.rows {
		if a.AuctionID == auctionID {
			out = append(out, a)
		}
	}
	page.Total = int64(len(out))
	return out, nil
}

// ========== 测试服务器 ==========

type testServer struct {
	ledger      *ledger.Ledger
	auctions    *memAuctionRepo
	results     *memResultRepo
	bidLogs     *memBidLogRepo
	deliveries  *memDeliveryRepo
	users       *memUserRepo
	emergencies *memEmergencyRepo
	engine      *gin.Engine

	// 相对真实时钟的偏移量, 用于把拍卖推到到期点之后
	nowOffset time.Duration
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	led := ledger.New(adminAddr)
	gw := ledger.NewGateway(led, adminAddr)

	s := &testServer{
		ledger:      led,
		auctions:    newMemAuctionRepo(),
		results:     newMemResultRepo(),
		bidLogs:     &memBidLogRepo{},
		deliveries:  newMemDeliveryRepo(),
		users:       newMemUserRepo(),
		emergencies: &memEmergencyRepo{},
	}

	nowFn := func() time.Time { return time.Now().Add(s.nowOffset) }
	led.SetClock(nowFn)

	finalizerSvc := service.NewFinalizerService(gw, s.auctions, s.results, s.deliveries, s.users, &service.FinalizerConfig{BatchSize: 50})
	finalizerSvc.SetClock(nowFn)
	auctionSvc := service.NewAuctionService(gw, s.auctions, s.results, s.bidLogs, finalizerSvc)
	auctionSvc.SetClock(nowFn)
	adminSvc := service.NewAdminService(gw, s.auctions, s.emergencies, finalizerSvc)
	deliverySvc := service.NewDeliveryService(s.deliveries, s.results, s.users)

	s.engine = NewRouter(
		NewAuctionHandler(auctionSvc),
		NewAdminHandler(adminSvc),
		NewDeliveryHandler(deliverySvc),
		nil,
	)
	return s
}

// newChainAuction 在链上创建拍卖并登记索引记录, 返回链上 ID
func (s *testServer) newChainAuction(t *testing.T, endOffset time.Duration) int64 {
	t.Helper()

	endTime := time.Now().Add(endOffset).Unix()
	id, err := s.ledger.CreateAuction(sellerAddr, milliEth(100), milliEth(10), endTime)
	require.NoError(t, err)

	require.NoError(t, s.auctions.Create(context.Background(), &model.Auction{
		ChainAuctionID: int64(id),
		Title:          fmt.Sprintf("auction-%d", id),
		OwnerWallet:    strings.ToLower(sellerAddr.Hex()),
		StartingBid:    model.WeiToDecimal(milliEth(100)),
		MinIncrement:   model.WeiToDecimal(milliEth(10)),
		EndTime:        endTime,
		Status:         model.AuctionStatusActive,
	}))
	return int64(id)
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// envelope 解析统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) *envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return &env
}

// ========== 路由与基础端点 ==========

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ========== 拍卖接口 ==========

func TestRegisterAuction(t *testing.T) {
	s := newTestServer(t)
	endTime := time.Now().Add(time.Hour).Unix()
	id, err := s.ledger.CreateAuction(sellerAddr, milliEth(100), milliEth(10), endTime)
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/v1/auctions", gin.H{
		"chain_auction_id": id,
		"title":            "Vintage pocket watch",
		"description":      "1920s, working condition",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	assert.Equal(t, 0, env.Code)

	var auction model.Auction
	require.NoError(t, json.Unmarshal(env.Data, &auction))
	assert.Equal(t, int64(id), auction.ChainAuctionID)
	assert.Equal(t, strings.ToLower(sellerAddr.Hex()), auction.OwnerWallet)
	assert.Equal(t, model.AuctionStatusActive, auction.Status)
}

func TestRegisterAuction_InvalidBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auctions", strings.NewReader("{not-json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrInvalidParams.Code, decodeEnvelope(t, w).Code)
}

func TestRegisterAuction_UnknownOnChain(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auctions", gin.H{
		"chain_auction_id": 999,
		"title":            "ghost",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrAuctionNotFound.Code, decodeEnvelope(t, w).Code)
}

func TestGetAuctionDetail(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/auctions/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var detail service.AuctionDetail
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &detail))
	assert.Equal(t, id, detail.Auction.ChainAuctionID)
	// 镜像字段以链上为准
	assert.Equal(t, "0.12", detail.Auction.HighestBid.String())
	assert.Equal(t, strings.ToLower(aliceWallet.Hex()), detail.Auction.HighestBidder)
	assert.True(t, detail.Chain.IsActive)
	assert.Greater(t, detail.RemainingSeconds, int64(0))
}

func TestGetAuctionDetail_NotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/auctions/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrAuctionNotFound.Code, decodeEnvelope(t, w).Code)
}

func TestGetAuctionDetail_InvalidID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/auctions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAuctions(t *testing.T) {
	s := newTestServer(t)
	s.newChainAuction(t, time.Hour)
	s.newChainAuction(t, 2*time.Hour)

	w := s.do(t, http.MethodGet, "/api/v1/auctions?status=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var paged struct {
		Items      []*model.Auction `json:"items"`
		Pagination *Pagination      `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &paged))
	assert.Len(t, paged.Items, 2)
	assert.Equal(t, int64(2), paged.Pagination.Total)
	assert.Equal(t, 1, paged.Pagination.Page)
	assert.Equal(t, 20, paged.Pagination.PageSize)
}

func TestRemainingTime(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/auctions/%d/remaining", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		AuctionID        int64 `json:"auction_id"`
		RemainingSeconds int64 `json:"remaining_seconds"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, id, data.AuctionID)
	assert.Greater(t, data.RemainingSeconds, int64(0))
	assert.LessOrEqual(t, data.RemainingSeconds, int64(3600))
}

func TestLeaderboard(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))
	require.NoError(t, s.ledger.PlaceBid(bobWallet, uint64(id), milliEth(150)))

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/auctions/%d/leaderboard", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var board model.LeaderboardSnapshot
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &board))
	assert.Equal(t, strings.ToLower(bobWallet.Hex()), board.HighestBidder)
	assert.Equal(t, "0.15", board.HighestBid.String())
	assert.Equal(t, strings.ToLower(aliceWallet.Hex()), board.LowestBidder)
	assert.Equal(t, 2, board.TotalBidders)
}

func TestUserActiveAuction(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))

	w := s.do(t, http.MethodGet, "/api/v1/users/"+strings.ToLower(aliceWallet.Hex())+"/active-auction", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var lock model.ActiveLock
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &lock))
	assert.True(t, lock.HasActive)
	assert.Equal(t, id, lock.ChainAuctionID)
}

func TestUserActiveAuction_InvalidWallet(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/users/not-a-wallet/active-auction", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContractBalance(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))

	w := s.do(t, http.MethodGet, "/api/v1/contract/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.Equal(t, "0.12", data.Balance.String())
}

func TestListBidLogs(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.bidLogs.InsertIgnore(context.Background(), &model.BidLog{
		AuctionID:    id,
		BidderWallet: strings.ToLower(aliceWallet.Hex()),
		Amount:       decimal.RequireFromString("0.12"),
		TxHash:       "0xbid1",
	}))

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/auctions/%d/bids", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var paged struct {
		Items []*model.BidLog `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &paged))
	require.Len(t, paged.Items, 1)
	assert.Equal(t, "0xbid1", paged.Items[0].TxHash)
}

func TestFinalizeAuction(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))

	// 未到期时拒绝终结
	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/auctions/%d/finalize", id), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 20002, decodeEnvelope(t, w).Code)

	s.nowOffset = 2 * time.Hour

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/auctions/%d/finalize", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result model.AuctionResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, model.ResultTypeWon, result.ResultType)
	assert.Equal(t, strings.ToLower(aliceWallet.Hex()), result.WinnerWallet)
	assert.Equal(t, "0.12", result.FinalPrice.String())

	row, err := s.auctions.GetByChainID(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AuctionStatusEnded, row.Status)

	// 重复终结直接返回已有结果
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/auctions/%d/finalize", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, model.ResultTypeWon, result.ResultType)
}

func TestFinalizeAuction_NoBids(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	s.nowOffset = 2 * time.Hour

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/auctions/%d/finalize", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result model.AuctionResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	assert.Equal(t, model.ResultTypeNoBids, result.ResultType)
	assert.Empty(t, result.WinnerWallet)
}

func TestFinalizeAuction_NotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auctions/9999/finalize", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ========== 管理接口 ==========

func TestStopAuction(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/stop", id), gin.H{
		"operator": strings.ToLower(adminAddr.Hex()),
		"reason":   "seller fraud report",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		TxHash string `json:"tx_hash"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &data))
	assert.NotEmpty(t, data.TxHash)

	// 全员退款, 领先者托管转入可提余额
	assert.Equal(t, milliEth(120), s.ledger.Withdrawable(aliceWallet))

	row := s.auctions.rows[id]
	assert.Equal(t, model.AuctionStatusStopped, row.Status)

	stored, err := s.results.GetByAuctionID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.ResultTypeStopped, stored.ResultType)

	require.Len(t, s.emergencies.rows, 1)
	assert.Equal(t, model.EmergencyActionStop, s.emergencies.rows[0].ActionType)

	// 重复终止
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/stop", id), gin.H{
		"operator": strings.ToLower(adminAddr.Hex()),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrAlreadyFinalized.Code, decodeEnvelope(t, w).Code)
}

func TestStopAuction_MissingOperator(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/stop", id), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStopPreview(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/auctions/%d/stop-preview", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var preview service.StopPreview
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &preview))
	assert.Equal(t, 1, preview.BidderCount)
	assert.Equal(t, "0.12", preview.RefundTotal.String())
}

func TestEmergencyRefundSingle(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	require.NoError(t, s.ledger.PlaceBid(aliceWallet, uint64(id), milliEth(120)))

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/refund-single", id), gin.H{
		"operator": strings.ToLower(adminAddr.Hex()),
		"wallet":   strings.ToLower(aliceWallet.Hex()),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, milliEth(120), s.ledger.Withdrawable(aliceWallet))
}

func TestEmergencyRefundSingle_MissingWallet(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/refund-single", id), gin.H{
		"operator": strings.ToLower(adminAddr.Hex()),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAdminActions(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/refund-all", id), gin.H{
		"operator": strings.ToLower(adminAddr.Hex()),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/auctions/%d/actions", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var paged struct {
		Items []*model.EmergencyAction `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &paged))
	require.Len(t, paged.Items, 1)
	assert.Equal(t, model.EmergencyActionRefundAll, paged.Items[0].ActionType)
}

// ========== 交割接口 ==========

// seedWonResult 预置一条胜出结果和对应交割单
func (s *testServer) seedWonResult(t *testing.T, auctionID int64) *model.User {
	t.Helper()

	winner, err := s.users.GetOrCreateByWallet(context.Background(), strings.ToLower(aliceWallet.Hex()))
	require.NoError(t, err)

	require.NoError(t, s.results.Upsert(context.Background(), &model.AuctionResult{
		AuctionID:    auctionID,
		ResultType:   model.ResultTypeWon,
		WinnerWallet: winner.WalletAddress,
		WinnerUserID: winner.ID,
		FinalPrice:   decimal.RequireFromString("0.15"),
	}))
	require.NoError(t, s.deliveries.CreateIfAbsent(context.Background(), &model.Delivery{
		AuctionID:    auctionID,
		WinnerUserID: winner.ID,
	}))
	return winner
}

func TestDeliveryFlow(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	winner := s.seedWonResult(t, id)

	// 胜者确认收货信息, 钱包大小写不敏感
	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/auctions/%d/delivery/recipient", id), gin.H{
		"wallet":    strings.ToUpper(winner.WalletAddress),
		"recipient": "Alice Zhang",
		"phone":     "13800138000",
		"address":   "No.1 Xihu Road, Hangzhou",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.DeliveryStatusConfirmed, s.deliveries.rows[id].Status)

	// 管理员发货
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/delivery/ship", id), gin.H{
		"tracking_no": "SF1234567890",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.DeliveryStatusShipped, s.deliveries.rows[id].Status)
	assert.Equal(t, "SF1234567890", s.deliveries.rows[id].TrackingNo)

	// 完成
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/auctions/%d/delivery/complete", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.DeliveryStatusCompleted, s.deliveries.rows[id].Status)

	// 查询
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/auctions/%d/delivery", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var delivery model.Delivery
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &delivery))
	assert.Equal(t, "Alice Zhang", delivery.Recipient)
}

func TestDeliveryConfirm_WrongWallet(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	s.seedWonResult(t, id)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/auctions/%d/delivery/recipient", id), gin.H{
		"wallet":    strings.ToLower(bobWallet.Hex()),
		"recipient": "Bob",
		"address":   "somewhere",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, ErrNotWinner.Code, decodeEnvelope(t, w).Code)
}

func TestDelivery_NotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/auctions/77/delivery", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrDeliveryNotFound.Code, decodeEnvelope(t, w).Code)
}

func TestListDeliveries(t *testing.T) {
	s := newTestServer(t)
	id := s.newChainAuction(t, time.Hour)
	winner := s.seedWonResult(t, id)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/deliveries?winner_uid=%d", winner.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var paged struct {
		Items []*model.Delivery `json:"items"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &paged))
	assert.Len(t, paged.Items, 1)
}

// ========== 任务管理接口 ==========

type noopJob struct{}

func (noopJob) Name() string { return "noop" }
func (noopJob) Execute(context.Context) (*scheduler.JobResult, error) {
	return &scheduler.JobResult{}, nil
}
func (noopJob) Timeout() time.Duration { return time.Second }
func (noopJob) RequiresLock() bool     { return false }
func (noopJob) LockTTL() time.Duration { return time.Second }
func (noopJob) UseWatchdog() bool      { return false }

func TestJobRoutes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sched := scheduler.NewScheduler(client)
	require.NoError(t, sched.RegisterJob(noopJob{}, scheduler.JobConfig{Cron: "0 * * * * *", Enabled: true}))

	s := newTestServer(t)
	s.engine = NewRouter(nil, nil, nil, NewJobHandler(sched))

	w := s.do(t, http.MethodGet, "/api/v1/admin/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var statuses []*scheduler.JobStatus
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "noop", statuses[0].Name)

	w = s.do(t, http.MethodGet, "/api/v1/admin/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
