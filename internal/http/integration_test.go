package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"estimator/internal/cache"
	"estimator/internal/core"
	"estimator/internal/gateway"
	"estimator/internal/gateway/rest"
	"estimator/internal/log"
	"estimator/internal/services"
)

// TestClientAgainstServer drives the REST client and the collection cache
// against a live server.
func TestClientAgainstServer(t *testing.T) {
	srv, _ := newTestServer(t, Options{RequireAuth: true})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	ctx := context.Background()

	session := gateway.NewSession()
	client, err := rest.New(ts.URL, session)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	store := services.FileCredentialStore{Path: filepath.Join(t.TempDir(), "credentials.json")}
	authSvc := services.NewAuthService(client, session, store)
	ws := cache.NewWorkspace(client, cache.WithLogger(log.Discard()))

	if err := ws.Refresh(ctx); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("anonymous refresh should be unauthorized, got %v", err)
	}
	if _, err := authSvc.Register(ctx, "Ann", "ann@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}

	p, err := ws.Projects.Create(ctx, core.Project{
		Name: "Website", Client: "ACME", Status: core.ProjectActive,
		StartDate: core.NewDate(2025, 1, 1), EndDate: core.NewDate(2025, 6, 1),
	})
	if err != nil || p.ID == "" {
		t.Fatalf("create project: %+v %v", p, err)
	}

	e, err := ws.Estimations.Create(ctx, core.Estimation{
		Name:      "Quote",
		ProjectID: p.ID,
		Sections: []core.Section{{Name: "Build", Items: []core.Item{
			{Title: "Dev", Quantity: 10, Price: 50, Margin: 20},
		}}},
	})
	if err != nil {
		t.Fatalf("create estimation: %v", err)
	}
	if _, err := ws.Estimations.Get(ctx, e.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := ws.Estimations.AddItem(ctx, e.ID, e.Sections[0].ID, core.Item{Title: "QA", Quantity: 2, Price: 100}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	sum, err := client.Summary(ctx, e.ID)
	if err != nil || sum.Total != 800 {
		t.Fatalf("summary %+v %v", sum, err)
	}

	ws.Estimations.SetFilters(core.EstimationFilters{Search: "quo"})
	if err := ws.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if ws.Estimations.Total() != 1 || ws.Projects.Total() != 1 {
		t.Fatalf("estimations=%d projects=%d", ws.Estimations.Total(), ws.Projects.Total())
	}

	_, err = ws.Estimations.Get(ctx, "missing")
	if !errors.Is(err, gateway.ErrNotFound) || gateway.Message(err, "") != "Estimation not found" {
		t.Fatalf("missing estimation: %v", err)
	}

	authSvc.Logout(ctx)
	_, err = ws.Projects.Load(ctx)
	if !authSvc.HandleUnauthorized(ctx, err) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
	if _, err := authSvc.Login(ctx, "ann@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := ws.Estimations.Remove(ctx, e.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ws.Estimations.Total() != 0 {
		t.Fatalf("total after remove = %d", ws.Estimations.Total())
	}
}
