package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry so shipped logs can be told apart
// from the rest of the site.
const ServiceName = "siteinsight"

// New builds the process logger. "production" selects JSON output at info
// level; anything else is the colored development console. Extra options
// are applied on top, e.g. to redirect the core in tests.
func New(environment string, opts ...zap.Option) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	lg, err := cfg.Build(append([]zap.Option{zap.AddCaller()}, opts...)...)
	if err != nil {
		return nil, err
	}
	return lg.With(zap.String("service", ServiceName), zap.String("env", environment)), nil
}
