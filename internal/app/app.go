// Package app 提供 rapz-auction 服务的应用生命周期管理
//
// ## 服务职责
// rapz-auction 是链上英式拍卖服务，负责:
// 1. 拍卖索引 (Index): 镜像链上拍卖状态，提供查询接口
// 2. 自动终结 (Finalizer): 轮询到期拍卖，提交链上 finalize 并落库结果
// 3. 应急处理 (Admin): 管理员终止、应急退款、资金强制划转
// 4. 交割跟踪 (Delivery): 胜出拍卖的收货信息与物流状态
//
// ## Kafka 对接 (参见 internal/kafka/consumer.go 和 producer.go)
//
// ### 消费的 Topic
// - auction-bids: 链上出价事件流水，幂等落库
//
// ### 生产的 Topic
// - auction-finalized: 链上终结交易确认
// - auction-results: 结果落库事件
//
// ## 链对接模式 (blockchain.mode)
// - rpc:   通过 go-ethereum 访问已部署的 AuctionManager 合约
// - local: 进程内拍卖账本引擎，本地开发与测试用
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/RaprApraP54/rapz-auction/internal/blockchain"
	"github.com/RaprApraP54/rapz-auction/internal/config"
	"github.com/RaprApraP54/rapz-auction/internal/contract"
	"github.com/RaprApraP54/rapz-auction/internal/handler"
	"github.com/RaprApraP54/rapz-auction/internal/kafka"
	"github.com/RaprApraP54/rapz-auction/internal/ledger"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
	"github.com/RaprApraP54/rapz-auction/internal/scheduler"
	"github.com/RaprApraP54/rapz-auction/internal/service"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// App 应用
type App struct {
	cfg *config.Config

	// 基础设施
	db    *gorm.DB
	redis *redis.Client

	// 链网关
	chainClient *blockchain.Client
	gateway     service.ChainGateway

	// 仓储
	auctionRepo   repository.AuctionRepository
	resultRepo    repository.ResultRepository
	bidLogRepo    repository.BidLogRepository
	deliveryRepo  repository.DeliveryRepository
	userRepo      repository.UserRepository
	emergencyRepo repository.EmergencyRepository

	// 服务
	finalizerSvc *service.FinalizerService
	auctionSvc   *service.AuctionService
	adminSvc     *service.AdminService
	deliverySvc  *service.DeliveryService

	// Kafka
	kafkaProducer *kafka.Producer
	kafkaConsumer *kafka.Consumer

	// 调度与 HTTP
	sched      *scheduler.Scheduler
	httpServer *http.Server

	stopCh chan struct{}
}

// NewApp 创建应用
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}

	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initGateway(); err != nil {
		return nil, fmt.Errorf("failed to init chain gateway: %w", err)
	}

	app.initRepositories()
	app.initServices()

	if err := app.initKafka(); err != nil {
		return nil, fmt.Errorf("failed to init kafka: %w", err)
	}

	if err := app.initScheduler(); err != nil {
		return nil, fmt.Errorf("failed to init scheduler: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// initInfrastructure 初始化基础设施
func (a *App) initInfrastructure() error {
	// PostgreSQL
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		a.cfg.Postgres.Host,
		a.cfg.Postgres.Port,
		a.cfg.Postgres.User,
		a.cfg.Postgres.Password,
		a.cfg.Postgres.Database,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(a.cfg.Postgres.MaxConnections)
	sqlDB.SetMaxIdleConns(a.cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(a.cfg.Postgres.ConnMaxLifetime) * time.Second)

	a.db = db
	logger.Info("database connected", zap.String("host", a.cfg.Postgres.Host))

	// 自动迁移
	if err := AutoMigrate(a.db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Redis
	redisAddr := "localhost:6379"
	if len(a.cfg.Redis.Addresses) > 0 {
		redisAddr = a.cfg.Redis.Addresses[0]
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	})

	if err := a.redis.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", redisAddr))

	return nil
}

// initGateway 初始化链网关
// 未配置签名私钥时网关降级为只读镜像, 自动终结与管理操作被跳过
func (a *App) initGateway() error {
	switch a.cfg.Blockchain.Mode {
	case config.ChainModeLocal:
		caller := common.HexToAddress("0x0000000000000000000000000000000000000001")
		if a.cfg.Blockchain.PrivateKey != "" {
			key, err := crypto.HexToECDSA(a.cfg.Blockchain.PrivateKey)
			if err != nil {
				return fmt.Errorf("parse private key: %w", err)
			}
			caller = crypto.PubkeyToAddress(key.PublicKey)
		}
		a.gateway = ledger.NewGateway(ledger.New(caller), caller)
		logger.Info("chain gateway initialized",
			zap.String("mode", config.ChainModeLocal),
			zap.String("caller", caller.Hex()))
		return nil

	case config.ChainModeRPC:
		rpcURLs := append([]string{a.cfg.Blockchain.RPCURL}, a.cfg.Blockchain.BackupRPCURLs...)
		client, err := blockchain.NewClient(&blockchain.ClientConfig{
			ChainID:       a.cfg.Blockchain.ChainID,
			PrivateKey:    a.cfg.Blockchain.PrivateKey,
			RPCURLs:       rpcURLs,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			return fmt.Errorf("create blockchain client: %w", err)
		}
		a.chainClient = client

		gateway, err := contract.NewGateway(client, &contract.GatewayConfig{
			ContractAddress: a.cfg.Blockchain.ContractAddress,
			TxWaitTimeout:   time.Duration(a.cfg.Finalizer.TxWaitTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("create contract gateway: %w", err)
		}
		a.gateway = gateway

		logger.Info("chain gateway initialized",
			zap.String("mode", config.ChainModeRPC),
			zap.Int64("chain_id", a.cfg.Blockchain.ChainID),
			zap.String("contract", a.cfg.Blockchain.ContractAddress),
			zap.Bool("writable", gateway.CanWrite()))
		return nil

	default:
		return fmt.Errorf("unknown blockchain mode %q", a.cfg.Blockchain.Mode)
	}
}

// initRepositories 初始化仓储
func (a *App) initRepositories() {
	a.auctionRepo = repository.NewAuctionRepository(a.db)
	a.resultRepo = repository.NewResultRepository(a.db)
	a.bidLogRepo = repository.NewBidLogRepository(a.db)
	a.deliveryRepo = repository.NewDeliveryRepository(a.db)
	a.userRepo = repository.NewUserRepository(a.db)
	a.emergencyRepo = repository.NewEmergencyRepository(a.db)

	logger.Info("repositories initialized")
}

// initServices 初始化服务
func (a *App) initServices() {
	a.finalizerSvc = service.NewFinalizerService(
		a.gateway,
		a.auctionRepo,
		a.resultRepo,
		a.deliveryRepo,
		a.userRepo,
		&service.FinalizerConfig{
			BatchSize: a.cfg.Finalizer.BatchSize,
		},
	)

	a.auctionSvc = service.NewAuctionService(
		a.gateway,
		a.auctionRepo,
		a.resultRepo,
		a.bidLogRepo,
		a.finalizerSvc,
	)

	a.adminSvc = service.NewAdminService(
		a.gateway,
		a.auctionRepo,
		a.emergencyRepo,
		a.finalizerSvc,
	)

	a.deliverySvc = service.NewDeliveryService(
		a.deliveryRepo,
		a.resultRepo,
		a.userRepo,
	)

	logger.Info("services initialized")
}

// initKafka 初始化 Kafka
// 未配置 broker 时跳过, 终结事件只落库不外发
func (a *App) initKafka() error {
	if len(a.cfg.Kafka.Brokers) == 0 {
		logger.Warn("kafka brokers not configured, event publishing disabled")
		return nil
	}

	producer, err := kafka.NewProducer(&kafka.ProducerConfig{
		Brokers:  a.cfg.Kafka.Brokers,
		ClientID: a.cfg.Kafka.ClientID,
	})
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	a.kafkaProducer = producer

	// 终结事件外发
	a.finalizerSvc.SetOnFinalized(func(event *model.AuctionFinalizedEvent) {
		if err := producer.SendAuctionFinalized(context.Background(), event); err != nil {
			logger.Error("send auction finalized event failed",
				zap.Int64("auction_id", event.AuctionID),
				zap.Error(err))
		}
	})
	a.finalizerSvc.SetOnResult(func(event *model.AuctionResultEvent) {
		if err := producer.SendAuctionResult(context.Background(), event); err != nil {
			logger.Error("send auction result event failed",
				zap.Int64("auction_id", event.AuctionID),
				zap.Error(err))
		}
	})

	consumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:          a.cfg.Kafka.Brokers,
		GroupID:          a.cfg.Kafka.GroupID,
		BidLogRepository: a.bidLogRepo,
	})
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	a.kafkaConsumer = consumer

	logger.Info("kafka initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return nil
}

// initScheduler 初始化定时调度
func (a *App) initScheduler() error {
	a.sched = scheduler.NewScheduler(a.redis)

	cronExpr := a.cfg.Finalizer.Cron
	if cronExpr == "" {
		cronExpr = fmt.Sprintf("@every %ds", a.cfg.Finalizer.PollIntervalSeconds)
	}

	job := scheduler.NewFinalizerJob(
		a.finalizerSvc,
		time.Duration(a.cfg.Finalizer.TxWaitTimeoutSeconds)*time.Second,
	)
	if err := a.sched.RegisterJob(job, scheduler.JobConfig{
		Cron:    cronExpr,
		Enabled: true,
	}); err != nil {
		return fmt.Errorf("register finalizer job: %w", err)
	}

	logger.Info("scheduler initialized", zap.String("finalizer_cron", cronExpr))
	return nil
}

// initHTTP 初始化 HTTP 服务
func (a *App) initHTTP() {
	if a.cfg.Service.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := handler.NewRouter(
		handler.NewAuctionHandler(a.auctionSvc),
		handler.NewAdminHandler(a.adminSvc),
		handler.NewDeliveryHandler(a.deliverySvc),
		handler.NewJobHandler(a.sched),
	)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Service.HTTPPort),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Run 运行应用
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.kafkaConsumer != nil {
		if err := a.kafkaConsumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start kafka consumer: %w", err)
		}
	}

	a.sched.Start()

	go func() {
		logger.Info("http server listening", zap.Int("port", a.cfg.Service.HTTPPort))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-a.stopCh:
		logger.Info("shutdown requested")
	}

	return a.shutdown()
}

// shutdown 关闭应用
func (a *App) shutdown() error {
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}
	}

	if a.sched != nil {
		a.sched.Stop()
	}

	if a.kafkaConsumer != nil {
		a.kafkaConsumer.Stop()
	}
	if a.kafkaProducer != nil {
		a.kafkaProducer.Close()
	}

	if a.chainClient != nil {
		a.chainClient.Close()
	}

	if a.redis != nil {
		a.redis.Close()
	}

	if a.db != nil {
		sqlDB, _ := a.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// Stop 停止应用
func (a *App) Stop() {
	close(a.stopCh)
}
