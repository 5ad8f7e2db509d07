// Package memory is a goroutine-safe in-memory resource store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"estimator/internal/auth"
	"estimator/internal/core"
	"estimator/internal/gateway"
)

// Seed is the shape of a db.json style seed file.
type Seed struct {
	Users       []auth.Account    `json:"users"`
	Projects    []core.Project    `json:"projects"`
	Estimations []core.Estimation `json:"estimations"`
}

type Store struct {
	mu          sync.Mutex
	accounts    []auth.Account
	projects    []core.Project
	estimations []core.Estimation
	now         func() time.Time
}

var (
	_ gateway.Resources = (*Store)(nil)
	_ auth.AccountStore = (*Store)(nil)
)

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromSeed returns a store preloaded with seed. Records without ids get one.
func NewFromSeed(seed Seed) *Store {
	s := New()
	for _, a := range seed.Users {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.Email = strings.ToLower(strings.TrimSpace(a.Email))
		s.accounts = append(s.accounts, a)
	}
	for _, p := range seed.Projects {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.projects = append(s.projects, p)
	}
	for _, e := range seed.Estimations {
		e = e.Clone()
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Sections == nil {
			e.Sections = []core.Section{}
		}
		assignSectionIDs(e.Sections)
		s.estimations = append(s.estimations, e)
	}
	return s
}

// NewFromFile loads a seed file. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return NewFromSeed(seed), nil
}

// SetClock replaces the clock used to stamp new estimations.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a auth.Account) (auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.accounts {
		if x.Email == a.Email {
			return auth.Account{}, gateway.NewError(http.StatusConflict, "User already exists")
		}
	}
	a.ID = uuid.NewString()
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *Store) AccountByEmail(_ context.Context, email string) (auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return auth.Account{}, gateway.NotFound("User")
}

// Projects

func (s *Store) ListProjects(_ context.Context) ([]core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Project{}, s.projects...), nil
}

func (s *Store) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	s.projects = append(s.projects, p)
	return p, nil
}

func (s *Store) UpdateProject(_ context.Context, id string, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			p.ID = id
			s.projects[i] = p
			return p, nil
		}
	}
	return core.Project{}, gateway.NotFound("Project")
}

func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.projects {
		if s.projects[i].ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			return nil
		}
	}
	return gateway.NotFound("Project")
}

// Estimations

func (s *Store) ListEstimations(_ context.Context, q core.EstimationQuery) (core.EstimationPage, error) {
	q = q.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.Estimation
	for _, e := range s.estimations {
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}
	page := core.EstimationPage{Items: []core.Estimation{}, Total: len(matched)}
	off := q.Offset()
	if off >= len(matched) {
		return page, nil
	}
	end := off + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	for _, e := range matched[off:end] {
		page.Items = append(page.Items, e.Clone())
	}
	return page, nil
}

func (s *Store) GetEstimation(_ context.Context, id string) (core.Estimation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Estimation{}, gateway.NotFound("Estimation")
	}
	return s.estimations[i].Clone(), nil
}

func (s *Store) CreateEstimation(_ context.Context, e core.Estimation) (core.Estimation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e = e.Clone()
	e.ID = uuid.NewString()
	if e.CreatedAt.IsEmpty() {
		t := s.now().UTC()
		e.CreatedAt = core.NewDate(t.Year(), int(t.Month()), t.Day())
	}
	if e.Sections == nil {
		e.Sections = []core.Section{}
	}
	assignSectionIDs(e.Sections)
	s.estimations = append(s.estimations, e)
	return e.Clone(), nil
}

func (s *Store) UpdateEstimation(_ context.Context, id string, e core.Estimation) (core.Estimation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Estimation{}, gateway.NotFound("Estimation")
	}
	e = e.Clone()
	e.ID = id
	if e.CreatedAt.IsEmpty() {
		e.CreatedAt = s.estimations[i].CreatedAt
	}
	if e.Sections == nil {
		e.Sections = []core.Section{}
	}
	assignSectionIDs(e.Sections)
	s.estimations[i] = e
	return e.Clone(), nil
}

func (s *Store) DeleteEstimation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return gateway.NotFound("Estimation")
	}
	s.estimations = append(s.estimations[:i], s.estimations[i+1:]...)
	return nil
}

// Sections

func (s *Store) AddSection(_ context.Context, estimationID string, sec core.Section) (core.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(estimationID)
	if i < 0 {
		return core.Section{}, gateway.NotFound("Estimation")
	}
	sec = sec.Clone()
	sec.ID = uuid.NewString()
	if sec.Items == nil {
		sec.Items = []core.Item{}
	}
	assignItemIDs(sec.Items)
	s.estimations[i].Sections = append(s.estimations[i].Sections, sec)
	return sec.Clone(), nil
}

func (s *Store) UpdateSection(_ context.Context, estimationID, sectionID string, sec core.Section) (core.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, j, err := s.section(estimationID, sectionID)
	if err != nil {
		return core.Section{}, err
	}
	sec = sec.Clone()
	sec.ID = sectionID
	if sec.Items == nil {
		sec.Items = []core.Item{}
	}
	assignItemIDs(sec.Items)
	e.Sections[j] = sec
	return sec.Clone(), nil
}

func (s *Store) DeleteSection(_ context.Context, estimationID, sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, j, err := s.section(estimationID, sectionID)
	if err != nil {
		return err
	}
	e.Sections = append(e.Sections[:j], e.Sections[j+1:]...)
	return nil
}

// Items

func (s *Store) AddItem(_ context.Context, estimationID, sectionID string, it core.Item) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, j, err := s.section(estimationID, sectionID)
	if err != nil {
		return core.Item{}, err
	}
	it.ID = uuid.NewString()
	e.Sections[j].Items = append(e.Sections[j].Items, it)
	return it, nil
}

func (s *Store) UpdateItem(_ context.Context, estimationID, sectionID, itemID string, it core.Item) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, j, err := s.section(estimationID, sectionID)
	if err != nil {
		return core.Item{}, err
	}
	k := e.Sections[j].FindItem(itemID)
	if k < 0 {
		return core.Item{}, gateway.NotFound("Item")
	}
	it.ID = itemID
	e.Sections[j].Items[k] = it
	return it, nil
}

func (s *Store) DeleteItem(_ context.Context, estimationID, sectionID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, j, err := s.section(estimationID, sectionID)
	if err != nil {
		return err
	}
	items := e.Sections[j].Items
	k := e.Sections[j].FindItem(itemID)
	if k < 0 {
		return gateway.NotFound("Item")
	}
	e.Sections[j].Items = append(items[:k], items[k+1:]...)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.estimations {
		if s.estimations[i].ID == id {
			return i
		}
	}
	return -1
}

// section locates a section; the caller must hold s.mu.
func (s *Store) section(estimationID, sectionID string) (*core.Estimation, int, error) {
	i := s.indexOf(estimationID)
	if i < 0 {
		return nil, -1, gateway.NotFound("Estimation")
	}
	e := &s.estimations[i]
	j := e.FindSection(sectionID)
	if j < 0 {
		return nil, -1, gateway.NotFound("Section")
	}
	return e, j, nil
}

func assignSectionIDs(sections []core.Section) {
	for i := range sections {
		if sections[i].ID == "" {
			sections[i].ID = uuid.NewString()
		}
		if sections[i].Items == nil {
			sections[i].Items = []core.Item{}
		}
		assignItemIDs(sections[i].Items)
	}
}

func assignItemIDs(items []core.Item) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
	}
}
