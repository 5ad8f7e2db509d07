// Package worker turns change messages into spreadsheet exports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"estimator/internal/amqp"
	"estimator/internal/core"
	"estimator/internal/gateway"
	"estimator/internal/sheets"
)

// EstimationReader is the slice of the store the worker needs.
type EstimationReader interface {
	GetEstimation(ctx context.Context, id string) (core.Estimation, error)
}

// ExportWorker keeps exported tabs in step with the store. Messages carry
// only ids, so every export reads the current record.
type ExportWorker struct {
	store    EstimationReader
	exporter sheets.EstimationExporter
}

func NewExportWorker(store EstimationReader, exporter sheets.EstimationExporter) *ExportWorker {
	return &ExportWorker{store: store, exporter: exporter}
}

// HandleChange processes one change message. A returned error asks the
// consumer to redeliver.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Resource != amqp.ResourceEstimation {
		slog.DebugContext(ctx, "Ignoring change message", "resource", msg.Resource, "id", msg.ID)
		return nil
	}

	slog.InfoContext(ctx, "Processing change message",
		"estimation_id", msg.ID,
		"op", msg.Op,
		"timestamp", msg.Timestamp)

	if msg.Op == amqp.OpDeleted {
		return w.remove(ctx, msg.ID)
	}

	e, err := w.store.GetEstimation(ctx, msg.ID)
	if errors.Is(err, gateway.ErrNotFound) {
		// Deleted after the message was published.
		slog.WarnContext(ctx, "Estimation no longer stored, removing export", "estimation_id", msg.ID)
		return w.remove(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get estimation from storage: %w", err)
	}

	if err := w.exporter.Export(ctx, e); err != nil {
		return fmt.Errorf("export estimation %s: %w", msg.ID, err)
	}
	slog.InfoContext(ctx, "Successfully exported estimation",
		"estimation_id", msg.ID,
		"total", core.EstimationTotal(e.Sections))
	return nil
}

func (w *ExportWorker) remove(ctx context.Context, id string) error {
	if err := w.exporter.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove export %s: %w", id, err)
	}
	slog.InfoContext(ctx, "Successfully removed estimation export", "estimation_id", id)
	return nil
}
