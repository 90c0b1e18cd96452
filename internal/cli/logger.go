package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/colordrop/blockscout-verify/internal/config"
	"github.com/colordrop/blockscout-verify/internal/observability/metrics"
)

func setupLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Level),
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// pushMetrics pushes run metrics when a Pushgateway is configured. Push
// failures are logged, never fatal.
func pushMetrics(cfg config.MetricsConfig, logger *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := metrics.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
		logger.Warn("metrics push failed", "error", err)
		return
	}
	logger.Debug("metrics pushed", "gateway", cfg.PushgatewayURL, "job", cfg.Job)
}
