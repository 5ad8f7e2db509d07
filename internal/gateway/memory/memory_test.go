package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"estimator/internal/core"
	"estimator/internal/gateway"
)

func TestEstimationNestedLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SetClock(func() time.Time { return time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC) })

	e, err := s.CreateEstimation(ctx, core.Estimation{Name: "Website"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" || e.CreatedAt.String() != "2025-04-02" || e.Sections == nil {
		t.Fatalf("unexpected created estimation %+v", e)
	}

	sec, err := s.AddSection(ctx, e.ID, core.NewSection())
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	if sec.ID == "" || len(sec.Items) != 1 || sec.Items[0].ID == "" {
		t.Fatalf("section ids not assigned: %+v", sec)
	}

	it, err := s.AddItem(ctx, e.ID, sec.ID, core.Item{Title: "Hosting", Quantity: 12, Price: 10})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := s.UpdateItem(ctx, e.ID, sec.ID, it.ID, core.Item{Title: "Hosting", Quantity: 12, Price: 10, Margin: 50}); err != nil {
		t.Fatalf("update item: %v", err)
	}

	got, err := s.GetEstimation(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Total() != 180 {
		t.Fatalf("total = %v, want 180", got.Total())
	}

	if err := s.DeleteItem(ctx, e.ID, sec.ID, it.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if err := s.DeleteItem(ctx, e.ID, sec.ID, it.ID); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if err := s.DeleteSection(ctx, e.ID, sec.ID); err != nil {
		t.Fatalf("delete section: %v", err)
	}
	if _, err := s.AddItem(ctx, e.ID, sec.ID, core.Item{}); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("add item to deleted section should fail, got %v", err)
	}
	if err := s.DeleteEstimation(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetEstimation(ctx, e.ID); gateway.Message(err, "") != "Estimation not found" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestReturnedEstimationsDoNotAliasStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	e, _ := s.CreateEstimation(ctx, core.Estimation{Name: "A", Sections: []core.Section{core.NewSection()}})
	e.Sections[0].Name = "mutated"
	got, _ := s.GetEstimation(ctx, e.ID)
	if got.Sections[0].Name != "" {
		t.Fatalf("store state was mutated through a returned value")
	}
}

func TestListEstimationsFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 12; i++ {
		status := "draft"
		if i%3 == 0 {
			status = "approved"
		}
		_, _ = s.CreateEstimation(ctx, core.Estimation{
			Name:      "Estimation",
			Status:    status,
			CreatedAt: core.NewDate(2025, 1, i+1),
		})
	}

	page, err := s.ListEstimations(ctx, core.EstimationQuery{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 12 || len(page.Items) != 5 {
		t.Fatalf("unexpected page: total=%d len=%d", page.Total, len(page.Items))
	}

	page, _ = s.ListEstimations(ctx, core.EstimationQuery{
		EstimationFilters: core.EstimationFilters{Status: "approved"},
	})
	if page.Total != 4 {
		t.Fatalf("approved total = %d, want 4", page.Total)
	}

	page, _ = s.ListEstimations(ctx, core.EstimationQuery{
		EstimationFilters: core.EstimationFilters{
			StartDate: core.NewDate(2025, 1, 5),
			EndDate:   core.NewDate(2025, 1, 6),
		},
	})
	if page.Total != 2 {
		t.Fatalf("date window total = %d, want 2", page.Total)
	}

	page, _ = s.ListEstimations(ctx, core.EstimationQuery{Page: 9, Limit: 10})
	if page.Total != 12 || len(page.Items) != 0 || page.Items == nil {
		t.Fatalf("past-the-end page should be empty, got %+v", page)
	}
}

func TestProjectsCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	p, err := s.CreateProject(ctx, core.Project{Name: "Site", Client: "ACME", Status: core.ProjectActive})
	if err != nil || p.ID == "" {
		t.Fatalf("create: %+v %v", p, err)
	}
	p.Status = core.ProjectCompleted
	if _, err := s.UpdateProject(ctx, p.ID, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, _ := s.ListProjects(ctx)
	if len(list) != 1 || list[0].Status != core.ProjectCompleted {
		t.Fatalf("unexpected list %+v", list)
	}
	if _, err := s.UpdateProject(ctx, "missing", p); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil || s == nil {
		t.Fatalf("missing seed should give empty store, err=%v", err)
	}

	path := filepath.Join(dir, "db.json")
	seed := `{
  "users": [{"id": "1", "name": "Ann", "email": "ANN@example.com", "passwordHash": "x"}],
  "projects": [{"id": "p1", "name": "Site", "client": "ACME", "startDate": "2025-01-01", "endDate": "2025-02-01", "status": "active"}],
  "estimations": [{"id": "e1", "name": "Quote", "sections": [{"name": "Design", "items": [{"title": "Logo", "quantity": 1, "price": 100, "margin": 10}]}]}]
}`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	ctx := context.Background()
	if _, err := s.AccountByEmail(ctx, "ann@example.com"); err != nil {
		t.Fatalf("seeded account not found: %v", err)
	}
	e, err := s.GetEstimation(ctx, "e1")
	if err != nil {
		t.Fatalf("seeded estimation: %v", err)
	}
	if e.Sections[0].ID == "" || e.Sections[0].Items[0].ID == "" {
		t.Fatalf("seeded nested ids not assigned")
	}
	if e.Total() != 110 {
		t.Fatalf("total = %v", e.Total())
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
