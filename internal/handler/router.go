package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter 创建路由引擎并注册全部路由
//
// 中间件链: Recovery → Logger → Metrics
func NewRouter(
	auctionHandler *AuctionHandler,
	adminHandler *AdminHandler,
	deliveryHandler *DeliveryHandler,
	jobHandler *JobHandler,
) *gin.Engine {
	engine := gin.New()
	engine.Use(
		RecoveryMiddleware(),
		LoggerMiddleware(),
		MetricsMiddleware(),
	)

	// 健康检查与监控端点
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")

	// 拍卖查询
	auctions := v1.Group("/auctions")
	{
		auctions.POST("", auctionHandler.Register)
		auctions.GET("", auctionHandler.List)
		auctions.GET("/owner/:wallet", auctionHandler.ListByOwner)
		auctions.GET("/:id", auctionHandler.GetDetail)
		auctions.GET("/:id/remaining", auctionHandler.RemainingTime)
		auctions.GET("/:id/leaderboard", auctionHandler.Leaderboard)
		auctions.POST("/:id/finalize", auctionHandler.Finalize)
		auctions.GET("/:id/result", auctionHandler.GetResult)
		auctions.GET("/:id/bids", auctionHandler.ListBidLogs)
		auctions.GET("/:id/delivery", deliveryHandler.Get)
		auctions.POST("/:id/delivery/recipient", deliveryHandler.ConfirmRecipient)
	}

	// 结果与用户
	v1.GET("/results", auctionHandler.ListResults)
	v1.GET("/users/:wallet/active-auction", auctionHandler.UserActiveAuction)
	v1.GET("/deliveries", deliveryHandler.ListByWinner)
	v1.GET("/contract/balance", auctionHandler.ContractBalance)

	// 管理接口
	admin := v1.Group("/admin")
	{
		admin.GET("/auctions/:id/stop-preview", adminHandler.PreviewStop)
		admin.POST("/auctions/:id/stop", adminHandler.StopAuction)
		admin.POST("/auctions/:id/refund-single", adminHandler.EmergencyRefundSingle)
		admin.POST("/auctions/:id/refund-all", adminHandler.EmergencyRefundAll)
		admin.POST("/auctions/:id/force-to-owner", adminHandler.ForceFundsToOwner)
		admin.GET("/auctions/:id/actions", adminHandler.ListActions)
		admin.POST("/auctions/:id/delivery/ship", deliveryHandler.Ship)
		admin.POST("/auctions/:id/delivery/complete", deliveryHandler.Complete)

		if jobHandler != nil {
			admin.GET("/jobs", jobHandler.List)
			admin.GET("/jobs/:name", jobHandler.Get)
			admin.POST("/jobs/:name/trigger", jobHandler.Trigger)
		}
	}

	return engine
}
