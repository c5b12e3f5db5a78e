package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置：LOG_LEVEL / LOG_FORMAT
type Config struct {
	// Level 日志级别：debug / info / warn / error
	Level string `mapstructure:"level" default:"info"`
	// Format 输出格式：json / console
	Format string `mapstructure:"format" default:"json"`
}

// New 按配置创建 zap logger；debug 级别使用开发配置（ISO8601 时间）
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Level == "debug" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	} else {
		zc.Encoding = "json"
	}

	if cfg.Level != "" && cfg.Level != "debug" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}

	zc.EncoderConfig.LevelKey = "level"
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.MessageKey = "message"

	return zc.Build()
}
