package cache

import (
	"context"
	"sync"

	"estimator/internal/core"
	"estimator/internal/gateway"
	"estimator/internal/log"
)

// Estimations caches one page of estimations plus the currently open one.
// New estimations are prepended unless configured otherwise.
type Estimations struct {
	gw     gateway.Estimations
	list   *collection[core.Estimation]
	logger *log.Logger

	qmu     sync.RWMutex
	filters core.EstimationFilters
	page    int
	limit   int
}

func NewEstimations(gw gateway.Estimations, opts ...Option) *Estimations {
	o := buildOptions(InsertFirst, opts)
	list := newCollection("estimations", true, o,
		func(e core.Estimation) string { return e.ID },
		core.Estimation.Clone)
	return &Estimations{
		gw:     gw,
		list:   list,
		logger: o.logger,
		page:   core.DefaultPage,
		limit:  core.DefaultItemsPerPage,
	}
}

// Query returns the filters and paging the next Load will use.
func (s *Estimations) Query() core.EstimationQuery {
	s.qmu.RLock()
	defer s.qmu.RUnlock()
	return core.EstimationQuery{EstimationFilters: s.filters, Page: s.page, Limit: s.limit}
}

// SetFilters replaces the current filters with f. Zero fields clear the
// matching filter.
func (s *Estimations) SetFilters(f core.EstimationFilters) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	s.filters = f
}

// UpdateFilters edits the current filters in place, leaving the fields fn
// does not touch as they were.
func (s *Estimations) UpdateFilters(fn func(*core.EstimationFilters)) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	fn(&s.filters)
}

func (s *Estimations) ClearFilters() {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	s.filters = core.EstimationFilters{}
}

// SetPage sets the 1-based page; values below 1 select the first page.
func (s *Estimations) SetPage(page int) {
	if page < 1 {
		page = core.DefaultPage
	}
	s.qmu.Lock()
	defer s.qmu.Unlock()
	s.page = page
}

func (s *Estimations) SetItemsPerPage(n int) {
	if n < 1 {
		n = core.DefaultItemsPerPage
	}
	s.qmu.Lock()
	defer s.qmu.Unlock()
	s.limit = n
}

func (s *Estimations) Items() []core.Estimation { return s.list.Items() }
func (s *Estimations) Total() int { return s.list.Total() }
func (s *Estimations) State() State { return s.list.State() }
func (s *Estimations) Loading() bool { return s.list.Loading() }
func (s *Estimations) Err() *gateway.Error { return s.list.Err() }
func (s *Estimations) ClearError() { s.list.ClearError() }

// Current returns the open estimation, if any.
func (s *Estimations) Current() (core.Estimation, bool) { return s.list.Selected() }

// Select opens e without a gateway call.
func (s *Estimations) Select(e core.Estimation) { s.list.setSelected(e) }

// Deselect closes the open estimation.
func (s *Estimations) Deselect() { s.list.clearSelected() }

// Load replaces the cached page with the gateway's response for the current
// query. Only the most recently issued load is applied; an older one returns
// ErrSuperseded.
func (s *Estimations) Load(ctx context.Context) (core.EstimationPage, error) {
	q := s.Query()
	gen := s.list.beginLoad()
	page, err := s.gw.ListEstimations(ctx, q)
	if err := s.list.finishLoad(ctx, gen, page.Items, page.Total, err, "Failed to fetch estimations"); err != nil {
		return core.EstimationPage{}, err
	}
	return page, nil
}

// Get fetches one estimation and makes it the current one.
func (s *Estimations) Get(ctx context.Context, id string) (core.Estimation, error) {
	s.list.begin()
	e, err := s.gw.GetEstimation(ctx, id)
	if err := s.list.done(ctx, log.OpRead, err, "Failed to fetch estimation"); err != nil {
		return core.Estimation{}, err
	}
	if ctx.Err() != nil {
		return e, nil
	}
	s.list.setSelected(e)
	return e, nil
}

func (s *Estimations) Create(ctx context.Context, e core.Estimation) (core.Estimation, error) {
	s.list.begin()
	created, err := s.gw.CreateEstimation(ctx, e)
	if err := s.list.done(ctx, log.OpCreate, err, "Failed to create estimation"); err != nil {
		return core.Estimation{}, err
	}
	s.list.add(created)
	return created, nil
}

// Update replaces the estimation with id in place, refreshing Current when it
// is the same record.
func (s *Estimations) Update(ctx context.Context, id string, e core.Estimation) (core.Estimation, error) {
	s.list.begin()
	updated, err := s.gw.UpdateEstimation(ctx, id, e)
	if err := s.list.done(ctx, log.OpUpdate, err, "Failed to update estimation"); err != nil {
		return core.Estimation{}, err
	}
	if !s.list.replace(id, updated) {
		s.logger.DebugContext(ctx, "Updated estimation not cached", log.FieldEstimationID, id)
	}
	return updated, nil
}

// Remove deletes the estimation and returns its id.
func (s *Estimations) Remove(ctx context.Context, id string) (string, error) {
	s.list.begin()
	err := s.gw.DeleteEstimation(ctx, id)
	if err := s.list.done(ctx, log.OpDelete, err, "Failed to delete estimation"); err != nil {
		return "", err
	}
	s.list.remove(id)
	return id, nil
}

// AddSection appends a section to the estimation.
func (s *Estimations) AddSection(ctx context.Context, estimationID string, sec core.Section) (core.Section, error) {
	s.list.begin()
	created, err := s.gw.AddSection(ctx, estimationID, sec)
	if err := s.list.done(ctx, log.OpCreate, err, "Failed to add section"); err != nil {
		return core.Section{}, err
	}
	s.apply(ctx, "add section", estimationID, "", "", func(e *core.Estimation) bool {
		e.Sections = append(e.Sections, created.Clone())
		return true
	})
	return created, nil
}

func (s *Estimations) UpdateSection(ctx context.Context, estimationID, sectionID string, sec core.Section) (core.Section, error) {
	s.list.begin()
	updated, err := s.gw.UpdateSection(ctx, estimationID, sectionID, sec)
	if err := s.list.done(ctx, log.OpUpdate, err, "Failed to update section"); err != nil {
		return core.Section{}, err
	}
	s.apply(ctx, "update section", estimationID, sectionID, "", func(e *core.Estimation) bool {
		j := e.FindSection(sectionID)
		if j < 0 {
			return false
		}
		e.Sections[j] = updated.Clone()
		return true
	})
	return updated, nil
}

func (s *Estimations) DeleteSection(ctx context.Context, estimationID, sectionID string) error {
	s.list.begin()
	err := s.gw.DeleteSection(ctx, estimationID, sectionID)
	if err := s.list.done(ctx, log.OpDelete, err, "Failed to delete section"); err != nil {
		return err
	}
	s.apply(ctx, "delete section", estimationID, sectionID, "", func(e *core.Estimation) bool {
		j := e.FindSection(sectionID)
		if j < 0 {
			return false
		}
		e.Sections = append(e.Sections[:j], e.Sections[j+1:]...)
		return true
	})
	return nil
}

// AddItem appends an item to a section of the estimation.
func (s *Estimations) AddItem(ctx context.Context, estimationID, sectionID string, it core.Item) (core.Item, error) {
	s.list.begin()
	created, err := s.gw.AddItem(ctx, estimationID, sectionID, it)
	if err := s.list.done(ctx, log.OpCreate, err, "Failed to add item"); err != nil {
		return core.Item{}, err
	}
	s.apply(ctx, "add item", estimationID, sectionID, "", func(e *core.Estimation) bool {
		j := e.FindSection(sectionID)
		if j < 0 {
			return false
		}
		e.Sections[j].Items = append(e.Sections[j].Items, created)
		return true
	})
	return created, nil
}

func (s *Estimations) UpdateItem(ctx context.Context, estimationID, sectionID, itemID string, it core.Item) (core.Item, error) {
	s.list.begin()
	updated, err := s.gw.UpdateItem(ctx, estimationID, sectionID, itemID, it)
	if err := s.list.done(ctx, log.OpUpdate, err, "Failed to update item"); err != nil {
		return core.Item{}, err
	}
	s.apply(ctx, "update item", estimationID, sectionID, itemID, func(e *core.Estimation) bool {
		j := e.FindSection(sectionID)
		if j < 0 {
			return false
		}
		k := e.Sections[j].FindItem(itemID)
		if k < 0 {
			return false
		}
		e.Sections[j].Items[k] = updated
		return true
	})
	return updated, nil
}

func (s *Estimations) DeleteItem(ctx context.Context, estimationID, sectionID, itemID string) error {
	s.list.begin()
	err := s.gw.DeleteItem(ctx, estimationID, sectionID, itemID)
	if err := s.list.done(ctx, log.OpDelete, err, "Failed to delete item"); err != nil {
		return err
	}
	s.apply(ctx, "delete item", estimationID, sectionID, itemID, func(e *core.Estimation) bool {
		j := e.FindSection(sectionID)
		if j < 0 {
			return false
		}
		items := e.Sections[j].Items
		k := e.Sections[j].FindItem(itemID)
		if k < 0 {
			return false
		}
		e.Sections[j].Items = append(items[:k], items[k+1:]...)
		return true
	})
	return nil
}

// apply runs a nested mutation against the cached owner. A missing owner or
// nested target leaves the cache untouched; the remote change already happened.
func (s *Estimations) apply(ctx context.Context, op, estimationID, sectionID, itemID string, fn func(*core.Estimation) bool) {
	if s.list.mutate(estimationID, fn) {
		return
	}
	fields := log.NewFields().WithTarget(estimationID, sectionID, itemID).WithOperation(op)
	s.logger.WarnContext(ctx, "Nested change target not cached, cache left unchanged", fields.ToSlice()...)
}
