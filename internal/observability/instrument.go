// Package observability installs the process-wide logging pipeline and
// enriches records with trace correlation attributes.
package observability

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Instrument installs the default slog handler for the process.
// Supported formats: text, json (plain stdout handlers) and otel (records
// routed through the OpenTelemetry log SDK, exported as OTLP-shaped JSON).
func Instrument(level slog.Level, logFormat string) error {
	handler, err := newHandler(level, logFormat)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(newTraceContextHandler(handler)))

	return nil
}

func newHandler(level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(logFormat) {
	case "json":
		return slog.NewJSONHandler(os.Stdout, opts), nil
	case "text":
		return slog.NewTextHandler(os.Stdout, opts), nil
	case "otel":
		return newOtelHandler(level)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text, otel)", logFormat)
	}
}

// newOtelHandler bridges slog into the OpenTelemetry log SDK. The severity
// filter applies the same level cutoff the plain handlers get from
// slog.HandlerOptions, since the bridge itself forwards everything.
func newOtelHandler(level slog.Level) (slog.Handler, error) {
	exporter, err := stdoutlog.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout log exporter: %w", err)
	}

	processor := minsev.NewLogProcessor(
		sdklog.NewBatchProcessor(exporter),
		minsev.Severity(convertSlogLevel(level)),
	)
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

	return otelslog.NewHandler("openai-nim-proxy", otelslog.WithLoggerProvider(provider)), nil
}

// convertSlogLevel maps slog levels onto OpenTelemetry severity numbers.
func convertSlogLevel(level slog.Level) int {
	// otel severity = slog level + 9 (slog INFO 0 → otel INFO 9)
	return int(level) + 9
}
