package interfaces

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"entsoe-bridge/internal/importer/application"
	"entsoe-bridge/internal/observability/metrics"
)

// LoggingPublisher logs import completed events.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishImportCompleted logs the event.
func (p *LoggingPublisher) PublishImportCompleted(ctx context.Context, event application.ImportCompleted) error {
	_ = ctx
	if p == nil {
		return errors.New("import publisher: nil publisher")
	}
	p.logger.Printf("import completed: kind=%s country=%s from=%s until=%s status=%s inserted=%d skipped=%d sensors=%s",
		event.Kind, event.Country, event.From.Format(time.RFC3339), event.Until.Format(time.RFC3339),
		event.Status, event.Inserted, event.Skipped, strings.Join(event.Sensors, ","))
	metrics.IncEventPublished("log", metrics.ResultSuccess)
	return nil
}

// MultiPublisher fans an event out to several publishers and reports the first error.
type MultiPublisher []application.ImportPublisher

// PublishImportCompleted publishes to every publisher.
func (m MultiPublisher) PublishImportCompleted(ctx context.Context, event application.ImportCompleted) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishImportCompleted(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
