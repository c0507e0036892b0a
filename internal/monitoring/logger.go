// Package monitoring holds the package-level diagnostic logger shared by the
// conversion packages.
package monitoring

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logf reports progress. It defaults to a zap development logger at info
	// level and may be replaced by SetLogger or Configure.
	Logf func(format string, v ...interface{})

	// Debugf reports detail that is only useful with --verbose.
	Debugf func(format string, v ...interface{})

	// Warnf reports recoverable oddities in the input (partial NoData, etc).
	Warnf func(format string, v ...interface{})
)

func init() {
	if err := Configure(false); err != nil {
		SetLogger(nil)
	}
}

// Configure installs a zap-backed console logger. With verbose set the
// debug level is enabled. Extra options are applied to the built logger.
func Configure(verbose bool, opts ...zap.Option) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := cfg.Build(opts...)
	if err != nil {
		return err
	}
	UseZap(logger)
	return nil
}

// UseZap routes all package loggers through the given zap logger.
func UseZap(logger *zap.Logger) {
	s := logger.Sugar()
	Logf = s.Infof
	Debugf = s.Debugf
	Warnf = s.Warnf
}

// SetLogger replaces every package logger with f. Passing nil will set a
// no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
	Debugf = f
	Warnf = f
}
