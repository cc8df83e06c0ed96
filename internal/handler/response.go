// Package handler 提供 HTTP 请求处理
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
	"github.com/RaprApraP54/rapz-auction/internal/service"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// PagedData 分页数据
type PagedData struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// BizError 业务错误
type BizError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *BizError) Error() string {
	return e.Message
}

// NewBizError 创建业务错误
func NewBizError(code int, message string, httpStatus int) *BizError {
	return &BizError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// 通用错误 (10xxx)
var (
	ErrInvalidParams = &BizError{10001, "INVALID_PARAMS", http.StatusBadRequest}
	ErrInternal      = &BizError{10002, "INTERNAL_ERROR", http.StatusInternalServerError}
	ErrReadOnly      = &BizError{10003, "READ_ONLY_MODE", http.StatusServiceUnavailable}
)

// 拍卖错误 (20xxx)
var (
	ErrAuctionNotFound  = &BizError{20001, "AUCTION_NOT_FOUND", http.StatusNotFound}
	ErrAuctionNotEnded  = &BizError{20002, "AUCTION_NOT_ENDED", http.StatusBadRequest}
	ErrAuctionNotActive = &BizError{20003, "AUCTION_NOT_ACTIVE", http.StatusConflict}
	ErrAlreadyFinalized = &BizError{20004, "AUCTION_ALREADY_FINALIZED", http.StatusConflict}
	ErrResultNotFound   = &BizError{20005, "RESULT_NOT_FOUND", http.StatusNotFound}
)

// 交割错误 (21xxx)
var (
	ErrDeliveryNotFound = &BizError{21001, "DELIVERY_NOT_FOUND", http.StatusNotFound}
	ErrNotWinner        = &BizError{21002, "NOT_AUCTION_WINNER", http.StatusForbidden}
)

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{Code: 0, Message: "success", Data: data})
}

// SuccessWithPagination 返回分页成功响应
func SuccessWithPagination(c *gin.Context, items interface{}, page *repository.Pagination) {
	c.JSON(http.StatusOK, &Response{
		Code:    0,
		Message: "success",
		Data: &PagedData{
			Items: items,
			Pagination: &Pagination{
				Total:    page.Total,
				Page:     page.Page,
				PageSize: page.PageSize,
			},
		},
	})
}

// Error 返回业务错误响应
func Error(c *gin.Context, err *BizError) {
	c.JSON(err.HTTPStatus, &Response{Code: err.Code, Message: err.Message})
}

// BadRequest 返回参数错误响应
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, &Response{Code: ErrInvalidParams.Code, Message: message})
}

// HandleServiceError 将服务层错误映射为业务错误响应
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidParameters):
		Error(c, ErrInvalidParams)
	case errors.Is(err, ledger.ErrAuctionNotFound), errors.Is(err, repository.ErrAuctionNotFound):
		Error(c, ErrAuctionNotFound)
	case errors.Is(err, ledger.ErrAuctionNotEnded):
		Error(c, ErrAuctionNotEnded)
	case errors.Is(err, ledger.ErrAuctionNotActive):
		Error(c, ErrAuctionNotActive)
	case errors.Is(err, ledger.ErrAlreadyFinalized):
		Error(c, ErrAlreadyFinalized)
	case errors.Is(err, repository.ErrResultNotFound):
		Error(c, ErrResultNotFound)
	case errors.Is(err, repository.ErrDeliveryNotFound):
		Error(c, ErrDeliveryNotFound)
	case errors.Is(err, service.ErrNotWinner):
		Error(c, ErrNotWinner)
	case errors.Is(err, service.ErrReadOnlyGateway):
		Error(c, ErrReadOnly)
	default:
		Error(c, ErrInternal)
	}
}

// parsePagination 解析分页参数
func parsePagination(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &repository.Pagination{Page: page, PageSize: pageSize}
}

// parseAuctionID 解析路径上的链上拍卖 ID
func parseAuctionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid auction id")
		return 0, false
	}
	return id, true
}
