// Package kafka 提供拍卖事件的 Kafka 生产与消费
//
// 生产的 Topic:
//
//	auction-finalized: 拍卖终结事件, 下游通知/账务服务消费
//	auction-results:   结果落库事件, 数据平台消费
//
// 消费的 Topic:
//
//	auction-bids: 链下出价索引器发布的出价流水, 本服务幂等落库
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/internal/metrics"
	"github.com/RaprApraP54/rapz-auction/internal/model"
	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

const (
	// TopicAuctionFinalized 拍卖终结事件
	// Partition Key: auction_id
	// 消息格式: model.AuctionFinalizedEvent
	TopicAuctionFinalized = "auction-finalized"

	// TopicAuctionResults 结果落库事件
	// Partition Key: auction_id
	// 消息格式: model.AuctionResultEvent
	TopicAuctionResults = "auction-results"
)

// Producer Kafka 生产者
type Producer struct {
	producer sarama.SyncProducer
	mu       sync.RWMutex
	closed   bool
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Brokers      []string
	ClientID     string
	RequiredAcks sarama.RequiredAcks
	MaxRetries   int
	RetryBackoff time.Duration
}

// NewProducer 创建生产者
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.ClientID = cfg.ClientID
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	requiredAcks := cfg.RequiredAcks
	if requiredAcks == 0 {
		requiredAcks = sarama.WaitForAll
	}
	config.Producer.RequiredAcks = requiredAcks

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	config.Producer.Retry.Max = maxRetries

	retryBackoff := cfg.RetryBackoff
	if retryBackoff == 0 {
		retryBackoff = 100 * time.Millisecond
	}
	config.Producer.Retry.Backoff = retryBackoff

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, err
	}
	return &Producer{producer: producer}, nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.producer.Close()
}

func (p *Producer) send(topic, key string, value []byte) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return errors.New("producer is closed")
	}
	p.mu.RUnlock()

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		logger.Error("send kafka message failed",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	metrics.RecordKafkaMessage(topic, true)
	logger.Debug("kafka message sent",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// SendAuctionFinalized 发送拍卖终结事件
func (p *Producer) SendAuctionFinalized(ctx context.Context, event *model.AuctionFinalizedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.send(TopicAuctionFinalized, strconv.FormatInt(event.AuctionID, 10), data)
}

// SendAuctionResult 发送结果落库事件
func (p *Producer) SendAuctionResult(ctx context.Context, event *model.AuctionResultEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.send(TopicAuctionResults, strconv.FormatInt(event.AuctionID, 10), data)
}
