// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jm289765/concept-graph-web/internal/config"
)

// New builds a JSON logger in production and a console logger elsewhere. The
// returned level can be changed while the process runs. Logs go to
// cfg.Logging.Output unless outputs names other sinks.
func New(cfg *config.Config, outputs ...string) (*zap.Logger, zap.AtomicLevel, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if len(outputs) == 0 {
		outputs = []string{cfg.Logging.Output}
	}
	if outputs[0] == "" {
		outputs = []string{"stdout"}
	}
	zc.OutputPaths = outputs
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}

	logger = logger.With(zap.String("env", cfg.Environment))
	return logger, zc.Level, nil
}

// ParseLevel converts a configured level name.
func ParseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Follow keeps level in step with reloaded configuration.
func Follow(w *config.Watcher, level zap.AtomicLevel, logger *zap.Logger) {
	w.OnChange(func(c *config.Config) {
		l, err := ParseLevel(c.Logging.Level)
		if err != nil {
			logger.Warn("Ignoring log level change", zap.Error(err))
			return
		}
		if level.Level() != l {
			level.SetLevel(l)
			logger.Info("Log level changed", zap.Stringer("level", l))
		}
	})
}
