package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/metrics"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/internal/repository"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

// TopicAuctionBids 出价流水 Topic
// 生产者: 链下出价索引器
// Partition Key: auction_id
// 消息格式: model.BidLogEvent
const TopicAuctionBids = "auction-bids"

// Consumer Kafka 消费者
// 消费出价流水并幂等落库, tx_hash 冲突的重复消息被丢弃
type Consumer struct {
	client     sarama.ConsumerGroup
	bidLogRepo repository.BidLogRepository
	topics     []string
	groupID    string

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	BidLogRepository repository.BidLogRepository
}

// NewConsumer 创建消费者
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Offsets.AutoCommit.Enable = true
	config.Consumer.Offsets.AutoCommit.Interval = time.Second

	client, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		client:     client,
		bidLogRepo: cfg.BidLogRepository,
		topics:     []string{TopicAuctionBids},
		groupID:    cfg.GroupID,
	}, nil
}

// Start 启动消费者
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("consumer already running")
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	handler := &consumerGroupHandler{bidLogRepo: c.bidLogRepo}

	go func() {
		for {
			select {
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}

			if err := c.client.Consume(ctx, c.topics, handler); err != nil {
				logger.Error("kafka consume error", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}()

	logger.Info("kafka consumer started",
		zap.Strings("topics", c.topics),
		zap.String("group_id", c.groupID))
	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	close(c.stopCh)
	c.running = false
	return c.client.Close()
}

// consumerGroupHandler 消费组处理器
type consumerGroupHandler struct {
	bidLogRepo repository.BidLogRepository
}

func (h *consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		ctx := context.Background()

		switch msg.Topic {
		case TopicAuctionBids:
			if err := h.handleBidLog(ctx, msg.Value); err != nil {
				logger.Error("handle bid log message failed",
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
				// 坏消息不阻塞分区, 跳过并继续
				session.MarkMessage(msg, "")
				continue
			}
			metrics.RecordKafkaMessage(msg.Topic, false)

		default:
			logger.Warn("unknown topic", zap.String("topic", msg.Topic))
		}

		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *consumerGroupHandler) handleBidLog(ctx context.Context, data []byte) error {
	var event model.BidLogEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	if event.AuctionID <= 0 || event.TxHash == "" {
		return errors.New("invalid bid log event")
	}

	logger.Debug("received bid log",
		zap.Int64("auction_id", event.AuctionID),
		zap.String("bidder", event.BidderWallet),
		zap.String("tx_hash", event.TxHash))

	return h.bidLogRepo.InsertIgnore(ctx, &model.BidLog{
		AuctionID:    event.AuctionID,
		BidderWallet: event.BidderWallet,
		Amount:       event.Amount,
		TxHash:       event.TxHash,
		BlockNumber:  event.BlockNumber,
		BidAt:        event.BidAt,
	})
}
