package cache

import (
	"context"

	"golang.org/x/sync/errgroup"

	"estimator/internal/gateway"
)

// Workspace bundles the project and estimation stores over one gateway.
type Workspace struct {
	Projects    *Projects
	Estimations *Estimations
}

func NewWorkspace(gw gateway.Resources, opts ...Option) *Workspace {
	return &Workspace{
		Projects:    NewProjects(gw, opts...),
		Estimations: NewEstimations(gw, opts...),
	}
}

// Refresh loads both collections concurrently and returns the first load
// failure. Each store records its own failure, so a failing collection never
// stops the other from loading.
func (w *Workspace) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := w.Projects.Load(ctx)
		return err
	})
	g.Go(func() error {
		_, err := w.Estimations.Load(ctx)
		return err
	})
	return g.Wait()
}
