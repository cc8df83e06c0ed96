package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/service"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// AuctionHandler 拍卖查询处理器
type AuctionHandler struct {
	auctionSvc *service.AuctionService
}

// NewAuctionHandler 创建拍卖查询处理器
func NewAuctionHandler(auctionSvc *service.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionSvc: auctionSvc}
}

// Register 登记链上拍卖
// POST /api/v1/auctions
func (h *AuctionHandler) Register(c *gin.Context) {
	var req service.RegisterAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}

	auction, err := h.auctionSvc.Register(c.Request.Context(), &req)
	if err != nil {
		logger.Warn("register auction failed",
			zap.Int64("chain_auction_id", req.ChainAuctionID),
			zap.Error(err))
		HandleServiceError(c, err)
		return
	}
	Success(c, auction)
}

// GetDetail 拍卖详情
// GET /api/v1/auctions/:id
func (h *AuctionHandler) GetDetail(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	detail, err := h.auctionSvc.GetDetail(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, detail)
}

// List 按状态分页查询拍卖
// GET /api/v1/auctions?status=1
func (h *AuctionHandler) List(c *gin.Context) {
	statusVal, err := strconv.Atoi(c.DefaultQuery("status", "1"))
	if err != nil {
		BadRequest(c, "invalid status")
		return
	}

	page := parsePagination(c)
	auctions, err := h.auctionSvc.ListByStatus(c.Request.Context(), model.AuctionStatus(statusVal), page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessWithPagination(c, auctions, page)
}

// ListByOwner 按 owner 分页查询拍卖
// GET /api/v1/auctions/owner/:wallet
func (h *AuctionHandler) ListByOwner(c *gin.Context) {
	wallet := c.Param("wallet")
	if wallet == "" {
		BadRequest(c, "wallet is required")
		return
	}

	page := parsePagination(c)
	auctions, err := h.auctionSvc.ListByOwner(c.Request.Context(), wallet, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessWithPagination(c, auctions, page)
}

// RemainingTime 拍卖剩余时间
// GET /api/v1/auctions/:id/remaining
func (h *AuctionHandler) RemainingTime(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	remaining, err := h.auctionSvc.RemainingTime(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id, "remaining_seconds": remaining})
}

// Leaderboard 出价榜
// GET /api/v1/auctions/:id/leaderboard
func (h *AuctionHandler) Leaderboard(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	board, err := h.auctionSvc.Leaderboard(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, board)
}

// Finalize 手动触发终结已到期拍卖
// POST /api/v1/auctions/:id/finalize
func (h *AuctionHandler) Finalize(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	result, err := h.auctionSvc.Finalize(c.Request.Context(), id)
	if err != nil {
		logger.Warn("manual finalize failed",
			zap.Int64("chain_auction_id", id),
			zap.Error(err))
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// GetResult 拍卖结果
// GET /api/v1/auctions/:id/result
func (h *AuctionHandler) GetResult(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	result, err := h.auctionSvc.GetResult(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// ListResults 分页查询全部结果
// GET /api/v1/results
func (h *AuctionHandler) ListResults(c *gin.Context) {
	page := parsePagination(c)
	results, err := h.auctionSvc.ListResults(c.Request.Context(), page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessWithPagination(c, results, page)
}

// ListBidLogs 出价流水
// GET /api/v1/auctions/:id/bids
func (h *AuctionHandler) ListBidLogs(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	page := parsePagination(c)
	logs, err := h.auctionSvc.ListBidLogs(c.Request.Context(), id, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessWithPagination(c, logs, page)
}

// UserActiveAuction 查询钱包当前占用的拍卖
// GET /api/v1/users/:wallet/active-auction
func (h *AuctionHandler) UserActiveAuction(c *gin.Context) {
	wallet := c.Param("wallet")

	lock, err := h.auctionSvc.UserActiveAuction(c.Request.Context(), wallet)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, lock)
}

// ContractBalance 合约持有余额
// GET /api/v1/contract/balance
func (h *AuctionHandler) ContractBalance(c *gin.Context) {
	balance, err := h.auctionSvc.ContractBalance(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"balance": balance})
}
