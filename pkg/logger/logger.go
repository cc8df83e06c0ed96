// Package logger 进程级 zap 日志, 所有包经由本包输出
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	sugar  *zap.SugaredLogger
	level  zap.AtomicLevel
)

// Config 日志配置
type Config struct {
	Level       string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format      string `yaml:"format" json:"format"` // json, console
	ServiceName string `yaml:"service_name" json:"service_name"`
	Environment string `yaml:"environment" json:"environment"`
}

// parseLevel 非法级别退回 info
func parseLevel(s string) zapcore.Level {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lv
}

// Init 初始化进程日志, 启动时调用一次
// json 输出到 stdout, 带 service 与 env 固定字段
func Init(cfg *Config) error {
	level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var enc zapcore.Encoder
	if cfg.Format == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	fields := []zap.Field{zap.String("service", cfg.ServiceName)}
	if cfg.Environment != "" {
		fields = append(fields, zap.String("env", cfg.Environment))
	}

	global = zap.New(
		zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.Fields(fields...),
	)
	sugar = global.Sugar()
	return nil
}

// SetLevel 运行期调整日志级别, 非法输入忽略
func SetLevel(s string) {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(s)); err != nil {
		return
	}
	level.SetLevel(lv)
}

// L 全局 logger, Init 之前调用退回 zap 生产默认
func L() *zap.Logger {
	if global == nil {
		global, _ = zap.NewProduction()
	}
	return global
}

// S 全局 sugar logger
func S() *zap.SugaredLogger {
	if sugar == nil {
		sugar = L().Sugar()
	}
	return sugar
}

func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	L().Fatal(msg, fields...)
}

// Sync 进程退出前冲刷缓冲
func Sync() error {
	if global != nil {
		return global.Sync()
	}
	return nil
}
