package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/service"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// AdminHandler 管理员操作处理器
// 鉴权在网关层完成, 这里只接收操作者标识用于审计
type AdminHandler struct {
	adminSvc *service.AdminService
}

// NewAdminHandler 创建管理员操作处理器
func NewAdminHandler(adminSvc *service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// adminActionRequest 管理操作请求体
type adminActionRequest struct {
	Operator string `json:"operator" binding:"required"`
	Reason   string `json:"reason"`
	// Wallet 仅 refund-single 需要
	Wallet string `json:"wallet"`
}

// PreviewStop 终止确认页
// GET /api/v1/admin/auctions/:id/stop-preview
func (h *AdminHandler) PreviewStop(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	preview, err := h.adminSvc.PreviewStop(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, preview)
}

// StopAuction 终止拍卖
// POST /api/v1/admin/auctions/:id/stop
func (h *AdminHandler) StopAuction(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}
	var req adminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "operator is required")
		return
	}

	txHash, err := h.adminSvc.StopAuction(c.Request.Context(), id, req.Operator, req.Reason)
	if err != nil {
		logger.Warn("stop auction failed",
			zap.Int64("chain_auction_id", id),
			zap.Error(err))
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id, "tx_hash": txHash})
}

// EmergencyRefundSingle 退还单个出价者托管
// POST /api/v1/admin/auctions/:id/refund-single
func (h *AdminHandler) EmergencyRefundSingle(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}
	var req adminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Wallet == "" {
		BadRequest(c, "operator and wallet are required")
		return
	}

	txHash, err := h.adminSvc.EmergencyRefundSingle(c.Request.Context(), id, req.Wallet, req.Operator, req.Reason)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id, "wallet": req.Wallet, "tx_hash": txHash})
}

// EmergencyRefundAll 退还全部托管
// POST /api/v1/admin/auctions/:id/refund-all
func (h *AdminHandler) EmergencyRefundAll(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}
	var req adminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "operator is required")
		return
	}

	txHash, err := h.adminSvc.EmergencyRefundAll(c.Request.Context(), id, req.Operator, req.Reason)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id, "tx_hash": txHash})
}

// ForceFundsToOwner 强制划转领先者托管给 owner
// POST /api/v1/admin/auctions/:id/force-to-owner
func (h *AdminHandler) ForceFundsToOwner(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}
	var req adminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "operator is required")
		return
	}

	txHash, err := h.adminSvc.ForceFundsToOwner(c.Request.Context(), id, req.Operator, req.Reason)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id, "tx_hash": txHash})
}

// ListActions 应急操作审计记录
// GET /api/v1/admin/auctions/:id/actions
func (h *AdminHandler) ListActions(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	page := parsePagination(c)
	actions, err := h.adminSvc.ListActions(c.Request.Context(), id, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessWithPagination(c, actions, page)
}
