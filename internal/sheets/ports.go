// Package sheets renders estimations as spreadsheet rows and defines the
// export port implemented by the google and memory adapters.
package sheets

import (
	"context"

	"estimator/internal/core"
)

// Ports for outbound adapters.
type (
	// EstimationExporter keeps one tab per estimation in sync with the store.
	EstimationExporter interface {
		// Export writes e, replacing any previous export of the same id.
		Export(ctx context.Context, e core.Estimation) error
		// Remove drops the export of an estimation. Removing an unknown id
		// is not an error.
		Remove(ctx context.Context, estimationID string) error
	}
)
