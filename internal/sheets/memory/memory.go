// Package memory is an in-process exporter that keeps rendered tabs in a map.
package memory

import (
	"context"
	"sort"
	"sync"

	"estimator/internal/core"
	ports "estimator/internal/sheets"
)

type Exporter struct {
	mu     sync.Mutex
	layout ports.Layout
	tabs   map[string][][]interface{}
}

var _ ports.EstimationExporter = (*Exporter)(nil)

func New(layout ports.Layout) *Exporter {
	return &Exporter{layout: layout, tabs: map[string][][]interface{}{}}
}

func (x *Exporter) Export(_ context.Context, e core.Estimation) error {
	rows := x.layout.BuildRows(e)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.tabs[e.ID] = rows
	return nil
}

func (x *Exporter) Remove(_ context.Context, estimationID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.tabs, estimationID)
	return nil
}

// Rows returns the exported rows of an estimation.
func (x *Exporter) Rows(estimationID string) ([][]interface{}, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	rows, ok := x.tabs[estimationID]
	return rows, ok
}

// IDs lists exported estimation ids in sorted order.
func (x *Exporter) IDs() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]string, 0, len(x.tabs))
	for id := range x.tabs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
