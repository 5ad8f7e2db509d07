package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"estimator/internal/core"
	"estimator/internal/gateway"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *gateway.Session) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	session := gateway.NewSession()
	c, err := New(srv.URL+"/", session)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, session
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:3001", nil); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}

func TestListEstimationsQueryAndBearer(t *testing.T) {
	var gotQuery, gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /estimations", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{{"id": "e1", "name": "Quote"}},
			"total": 7,
		})
	})
	c, session := newTestClient(t, mux)
	session.SetCredential("tok", core.User{ID: "u1"})

	page, err := c.ListEstimations(context.Background(), core.EstimationQuery{
		EstimationFilters: core.EstimationFilters{
			Search:    "web site",
			StartDate: core.NewDate(2025, 1, 1),
			Status:    "draft",
		},
		Page:  2,
		Limit: 5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 7 || len(page.Items) != 1 || page.Items[0].ID != "e1" {
		t.Fatalf("unexpected page %+v", page)
	}
	want := "limit=5&page=2&search=web+site&startDate=2025-01-01&status=draft"
	if gotQuery != want {
		t.Fatalf("query = %q, want %q", gotQuery, want)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})
	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	})
	mux.HandleFunc("DELETE /estimations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "a/b" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c, session := newTestClient(t, mux)
	session.SetCredential("tok", core.User{ID: "u1"})
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.c", "bad")
	if !errors.Is(err, gateway.ErrUnauthorized) || gateway.Message(err, "") != "Invalid credentials" {
		t.Fatalf("login error = %v", err)
	}
	if !session.Authenticated() {
		t.Fatalf("client must not clear the session on 401")
	}

	_, err = c.ListProjects(ctx)
	var ge *gateway.Error
	if !errors.As(err, &ge) || ge.Status != 500 || ge.Message != "Failed to fetch projects" {
		t.Fatalf("expected fallback message, got %v", err)
	}

	if err := c.DeleteEstimation(ctx, "a/b"); err != nil {
		t.Fatalf("escaped id delete: %v", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.GetEstimation(context.Background(), "e1")
	var ge *gateway.Error
	if !errors.As(err, &ge) || ge.Status != 0 || ge.Message != "Failed to fetch estimation" || ge.Err == nil {
		t.Fatalf("unexpected network error %#v", err)
	}
}

func TestNestedRoutes(t *testing.T) {
	var paths []string
	mux := http.NewServeMux()
	record := func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = "new"
		_ = json.NewEncoder(w).Encode(body)
	}
	mux.HandleFunc("/estimations/", record)
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	sec, err := c.AddSection(ctx, "e1", core.NewSection())
	if err != nil || sec.ID != "new" || len(sec.Items) != 1 {
		t.Fatalf("add section: %+v %v", sec, err)
	}
	it, err := c.UpdateItem(ctx, "e1", "s1", "i1", core.Item{Title: "t", Quantity: 2})
	if err != nil || it.ID != "new" || it.Quantity != 2 {
		t.Fatalf("update item: %+v %v", it, err)
	}
	if err := c.DeleteSection(ctx, "e1", "s1"); err != nil {
		t.Fatalf("delete section: %v", err)
	}
	want := []string{
		"POST /estimations/e1/sections",
		"PUT /estimations/e1/sections/s1/items/i1",
		"DELETE /estimations/e1/sections/s1",
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d = %q, want %q", i, paths[i], want[i])
		}
	}
}
