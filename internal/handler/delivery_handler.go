package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RaprApraP54/rapz-auction/internal/service"
)

// DeliveryHandler 交割处理器
type DeliveryHandler struct {
	deliverySvc *service.DeliveryService
}

// NewDeliveryHandler 创建交割处理器
func NewDeliveryHandler(deliverySvc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc}
}

// Get 查询交割单
// GET /api/v1/auctions/:id/delivery
func (h *DeliveryHandler) Get(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	delivery, err := h.deliverySvc.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, delivery)
}

// confirmRecipientRequest 收货信息确认请求体
type confirmRecipientRequest struct {
	Wallet    string `json:"wallet" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address" binding:"required"`
}

// ConfirmRecipient 胜者填写收货信息
// POST /api/v1/auctions/:id/delivery/recipient
func (h *DeliveryHandler) ConfirmRecipient(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}
	var req confirmRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "wallet, recipient and address are required")
		return
	}

	if err := h.deliverySvc.ConfirmRecipient(c.Request.Context(), id, req.Wallet, req.Recipient, req.Phone, req.Address); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id})
}

// shipRequest 发货请求体
type shipRequest struct {
	TrackingNo string `json:"tracking_no" binding:"required"`
}

// Ship 管理员标记发货
// POST /api/v1/admin/auctions/:id/delivery/ship
func (h *DeliveryHandler) Ship(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "tracking_no is required")
		return
	}

	if err := h.deliverySvc.Ship(c.Request.Context(), id, req.TrackingNo); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id, "tracking_no": req.TrackingNo})
}

// Complete 标记交割完成
// POST /api/v1/admin/auctions/:id/delivery/complete
func (h *DeliveryHandler) Complete(c *gin.Context) {
	id, ok := parseAuctionID(c)
	if !ok {
		return
	}

	if err := h.deliverySvc.Complete(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"auction_id": id})
}

// ListByWinner 按中标用户查询交割单
// GET /api/v1/deliveries?winner_uid=1
func (h *DeliveryHandler) ListByWinner(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Query("winner_uid"), 10, 64)
	if err != nil || uid <= 0 {
		BadRequest(c, "invalid winner_uid")
		return
	}

	page := parsePagination(c)
	deliveries, err := h.deliverySvc.ListByWinner(c.Request.Context(), uid, page)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessWithPagination(c, deliveries, page)
}
