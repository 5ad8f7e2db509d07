package worker

import (
	"context"
	"errors"
	"testing"

	"estimator/internal/amqp"
	"estimator/internal/core"
	"estimator/internal/gateway/memory"
	"estimator/internal/sheets"
	sheetsmem "estimator/internal/sheets/memory"
)

type failingExporter struct{}

func (failingExporter) Export(context.Context, core.Estimation) error { return errors.New("quota") }
func (failingExporter) Remove(context.Context, string) error          { return errors.New("quota") }

type brokenStore struct{}

func (brokenStore) GetEstimation(context.Context, string) (core.Estimation, error) {
	return core.Estimation{}, errors.New("database is locked")
}

func TestHandleChange(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	exporter := sheetsmem.New(sheets.Layout{})
	w := NewExportWorker(store, exporter)

	e, _ := store.CreateEstimation(ctx, core.Estimation{
		Name:     "Quote",
		Sections: []core.Section{{Name: "S", Items: []core.Item{{Quantity: 2, Price: 50}}}},
	})

	if err := w.HandleChange(ctx, amqp.NewChangeMessage(amqp.ResourceEstimation, e.ID, amqp.OpCreated)); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, ok := exporter.Rows(e.ID)
	if !ok || rows[len(rows)-2][6] != 100.0 {
		t.Fatalf("unexpected export %v", rows)
	}

	if err := w.HandleChange(ctx, amqp.NewChangeMessage(amqp.ResourceProject, "p1", amqp.OpCreated)); err != nil {
		t.Fatalf("project messages should be ignored, got %v", err)
	}

	if err := w.HandleChange(ctx, amqp.NewChangeMessage(amqp.ResourceEstimation, e.ID, amqp.OpDeleted)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := exporter.Rows(e.ID); ok {
		t.Fatalf("export should be removed")
	}
}

func TestHandleChangeForVanishedEstimation(t *testing.T) {
	ctx := context.Background()
	exporter := sheetsmem.New(sheets.Layout{})
	_ = exporter.Export(ctx, core.Estimation{ID: "gone"})
	w := NewExportWorker(memory.New(), exporter)

	if err := w.HandleChange(ctx, amqp.NewChangeMessage(amqp.ResourceEstimation, "gone", amqp.OpUpdated)); err != nil {
		t.Fatalf("expected stale update to be absorbed, got %v", err)
	}
	if _, ok := exporter.Rows("gone"); ok {
		t.Fatalf("stale export should be removed")
	}
}

func TestHandleChangeErrorsRequestRedelivery(t *testing.T) {
	ctx := context.Background()
	msg := amqp.NewChangeMessage(amqp.ResourceEstimation, "e1", amqp.OpUpdated)

	if err := NewExportWorker(brokenStore{}, sheetsmem.New(sheets.Layout{})).HandleChange(ctx, msg); err == nil {
		t.Fatalf("store failure should be returned")
	}

	store := memory.New()
	e, _ := store.CreateEstimation(ctx, core.Estimation{Name: "Quote"})
	msg.ID = e.ID
	if err := NewExportWorker(store, failingExporter{}).HandleChange(ctx, msg); err == nil {
		t.Fatalf("exporter failure should be returned")
	}
}
