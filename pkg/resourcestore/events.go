package resourcestore

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) ResourceCreated(ctx context.Context, resource *Resource) error {
	return nil
}

func (n *NoopEventSink) ResourceDownloaded(ctx context.Context, resource *Resource) error {
	return nil
}

func (n *NoopEventSink) ResourceDeleted(ctx context.Context, resource *Resource) error {
	return nil
}

// LoggingEventSink writes one structured log line per lifecycle event.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) ResourceCreated(ctx context.Context, resource *Resource) error {
	l.logger.InfoContext(ctx, "resource created",
		"resource_id", resource.ID,
		"resource_type", resource.ResourceType,
		"uploader_id", resource.UploaderID,
		"size", resource.FileSizeBytes)
	return nil
}

func (l *LoggingEventSink) ResourceDownloaded(ctx context.Context, resource *Resource) error {
	l.logger.InfoContext(ctx, "resource downloaded",
		"resource_id", resource.ID,
		"download_count", resource.DownloadCount)
	return nil
}

func (l *LoggingEventSink) ResourceDeleted(ctx context.Context, resource *Resource) error {
	l.logger.InfoContext(ctx, "resource deleted",
		"resource_id", resource.ID,
		"uploader_id", resource.UploaderID)
	return nil
}
