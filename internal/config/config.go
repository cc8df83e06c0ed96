package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 配置
type Config struct {
	Service    ServiceConfig    `yaml:"service" json:"service"`
	Postgres   PostgresConfig   `yaml:"postgres" json:"postgres"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka" json:"kafka"`
	Blockchain BlockchainConfig `yaml:"blockchain" json:"blockchain"`
	Finalizer  FinalizerConfig  `yaml:"finalizer" json:"finalizer"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	Name     string `yaml:"name" json:"name"`
	HTTPPort int    `yaml:"http_port" json:"http_port"`
	Env      string `yaml:"env" json:"env"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port"`
	Database        string `yaml:"database" json:"database"`
	User            string `yaml:"user" json:"user"`
	Password        string `yaml:"password" json:"password"`
	MaxConnections  int    `yaml:"max_connections" json:"max_connections"`
	MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addresses []string `yaml:"addresses" json:"addresses"`
	Password  string   `yaml:"password" json:"password"`
	DB        int      `yaml:"db" json:"db"`
	PoolSize  int      `yaml:"pool_size" json:"pool_size"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" json:"brokers"`
	GroupID  string   `yaml:"group_id" json:"group_id"`
	ClientID string   `yaml:"client_id" json:"client_id"`
}

// ChainMode 链访问模式
const (
	// ChainModeRPC 通过 RPC 访问已部署的 AuctionManager 合约
	ChainModeRPC = "rpc"
	// ChainModeLocal 使用进程内拍卖账本引擎 (本地开发/测试)
	ChainModeLocal = "local"
)

// BlockchainConfig 区块链配置
type BlockchainConfig struct {
	Mode            string   `yaml:"mode" json:"mode"` // rpc / local
	RPCURL          string   `yaml:"rpc_url" json:"rpc_url"`
	BackupRPCURLs   []string `yaml:"backup_rpc_urls" json:"backup_rpc_urls"`
	ChainID         int64    `yaml:"chain_id" json:"chain_id"`
	ContractAddress string   `yaml:"contract_address" json:"contract_address"`
	// PrivateKey 用于签名 finalize/stop 等写交易
	// 未配置时写路径降级为只读镜像 (finalizeAuction 任何人可调，无需管理员账户)
	PrivateKey string `yaml:"private_key" json:"private_key"`
}

// FinalizerConfig 自动终结配置
type FinalizerConfig struct {
	PollIntervalSeconds  int    `yaml:"poll_interval_seconds" json:"poll_interval_seconds"`
	BatchSize            int    `yaml:"batch_size" json:"batch_size"`
	TxWaitTimeoutSeconds int    `yaml:"tx_wait_timeout_seconds" json:"tx_wait_timeout_seconds"`
	Cron                 string `yaml:"cron" json:"cron"` // 可选，覆盖 poll_interval_seconds
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// 环境变量替换
	content := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, err
	}

	// 设置默认值
	setDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars 展开环境变量 ${VAR:default}
func expandEnvVars(s string) string {
	result := s
	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start

		expr := result[start+2 : end]
		parts := strings.SplitN(expr, ":", 2)
		varName := parts[0]
		defaultVal := ""
		if len(parts) > 1 {
			defaultVal = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			value = defaultVal
		}

		result = result[:start] + value + result[end+1:]
	}
	return result
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "rapz-auction"
	}
	if cfg.Service.HTTPPort == 0 {
		cfg.Service.HTTPPort = 8084
	}
	if cfg.Service.Env == "" {
		cfg.Service.Env = "dev"
	}

	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.MaxConnections == 0 {
		cfg.Postgres.MaxConnections = 50
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 3600
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 50
	}

	if cfg.Blockchain.Mode == "" {
		cfg.Blockchain.Mode = ChainModeRPC
	}
	if cfg.Blockchain.ChainID == 0 {
		cfg.Blockchain.ChainID = 31337 // 本地开发
	}
	if cfg.Blockchain.RPCURL == "" {
		cfg.Blockchain.RPCURL = "http://127.0.0.1:8545"
	}

	if cfg.Finalizer.PollIntervalSeconds == 0 {
		cfg.Finalizer.PollIntervalSeconds = 30
	}
	if cfg.Finalizer.BatchSize == 0 {
		cfg.Finalizer.BatchSize = 100
	}
	if cfg.Finalizer.TxWaitTimeoutSeconds == 0 {
		cfg.Finalizer.TxWaitTimeoutSeconds = 120
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// GetEnvInt 获取环境变量整数值
func GetEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetEnvString 获取环境变量字符串值
func GetEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
