package cache

import (
	"context"

	"estimator/internal/core"
	"estimator/internal/gateway"
	"estimator/internal/log"
)

// Projects caches the full project list. New projects are appended unless
// configured otherwise.
type Projects struct {
	gw     gateway.Projects
	list   *collection[core.Project]
	logger *log.Logger
}

func NewProjects(gw gateway.Projects, opts ...Option) *Projects {
	o := buildOptions(InsertLast, opts)
	list := newCollection("projects", false, o,
		func(p core.Project) string { return p.ID },
		func(p core.Project) core.Project { return p })
	return &Projects{gw: gw, list: list, logger: o.logger}
}

func (s *Projects) Items() []core.Project { return s.list.Items() }
func (s *Projects) Total() int { return s.list.Total() }
func (s *Projects) State() State { return s.list.State() }
func (s *Projects) Loading() bool { return s.list.Loading() }
func (s *Projects) Err() *gateway.Error { return s.list.Err() }
func (s *Projects) ClearError() { s.list.ClearError() }

func (s *Projects) Selected() (core.Project, bool) { return s.list.Selected() }
func (s *Projects) Select(p core.Project) { s.list.setSelected(p) }
func (s *Projects) Deselect() { s.list.clearSelected() }

// Load replaces the cached list. Only the most recently issued load is applied.
func (s *Projects) Load(ctx context.Context) ([]core.Project, error) {
	gen := s.list.beginLoad()
	items, err := s.gw.ListProjects(ctx)
	if err := s.list.finishLoad(ctx, gen, items, len(items), err, "Failed to fetch projects"); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Projects) Create(ctx context.Context, p core.Project) (core.Project, error) {
	s.list.begin()
	created, err := s.gw.CreateProject(ctx, p)
	if err := s.list.done(ctx, log.OpCreate, err, "Failed to create project"); err != nil {
		return core.Project{}, err
	}
	s.list.add(created)
	return created, nil
}

func (s *Projects) Update(ctx context.Context, id string, p core.Project) (core.Project, error) {
	s.list.begin()
	updated, err := s.gw.UpdateProject(ctx, id, p)
	if err := s.list.done(ctx, log.OpUpdate, err, "Failed to update project"); err != nil {
		return core.Project{}, err
	}
	if !s.list.replace(id, updated) {
		s.logger.DebugContext(ctx, "Updated project not cached", log.FieldProjectID, id)
	}
	return updated, nil
}

// Remove deletes the project and returns its id.
func (s *Projects) Remove(ctx context.Context, id string) (string, error) {
	s.list.begin()
	err := s.gw.DeleteProject(ctx, id)
	if err := s.list.done(ctx, log.OpDelete, err, "Failed to delete project"); err != nil {
		return "", err
	}
	s.list.remove(id)
	return id, nil
}
