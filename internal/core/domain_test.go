package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDateJSON(t *testing.T) {
	d := NewDate(2025, 3, 9)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-03-09"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v vs %v", back, d)
	}

	b, _ = json.Marshal(Date{})
	if string(b) != "null" {
		t.Fatalf("zero date should encode as null, got %s", b)
	}
	if err := json.Unmarshal([]byte(`"2025-03-09T10:00:00Z"`), &back); err != nil {
		t.Fatalf("timestamp should parse: %v", err)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &back); err == nil {
		t.Fatalf("expected error for garbage date")
	}
}

func TestNewSectionHasOneBlankItem(t *testing.T) {
	s := NewSection()
	if len(s.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(s.Items))
	}
	if s.Items[0] != (Item{}) {
		t.Fatalf("expected blank item, got %+v", s.Items[0])
	}
	if s.Total() != 0 {
		t.Fatalf("blank section total should be 0")
	}
}

func TestEstimationCloneIsDeep(t *testing.T) {
	e := Estimation{
		ID:   "e1",
		Name: "Website",
		Sections: []Section{
			{ID: "s1", Items: []Item{{ID: "i1", Quantity: 1, Price: 2}}},
		},
	}
	c := e.Clone()
	c.Sections[0].Items[0].Price = 99
	c.Sections[0].Name = "changed"
	if e.Sections[0].Items[0].Price != 2 || e.Sections[0].Name != "" {
		t.Fatalf("clone aliases the original: %+v", e)
	}
}

func TestFindSectionAndItem(t *testing.T) {
	e := Estimation{Sections: []Section{
		{ID: "a", Items: []Item{{ID: "x"}, {ID: "y"}}},
		{ID: "b"},
	}}
	if i := e.FindSection("b"); i != 1 {
		t.Fatalf("FindSection(b) = %d", i)
	}
	if i := e.FindSection("zzz"); i != -1 {
		t.Fatalf("FindSection(zzz) = %d", i)
	}
	if i := e.Sections[0].FindItem("y"); i != 1 {
		t.Fatalf("FindItem(y) = %d", i)
	}
	if i := e.Sections[1].FindItem("y"); i != -1 {
		t.Fatalf("FindItem on empty section = %d", i)
	}
}

func TestItemValidate(t *testing.T) {
	cases := []struct {
		it  Item
		err error
	}{
		{Item{Quantity: 1, Price: 1, Margin: 0}, nil},
		{Item{Quantity: 0, Price: 0, Margin: 100}, nil},
		{Item{Quantity: -1}, ErrNegativeQuantity},
		{Item{Price: -0.01}, ErrNegativePrice},
		{Item{Margin: 101}, ErrMarginOutOfRange},
		{Item{Margin: -1}, ErrMarginOutOfRange},
	}
	for i, tc := range cases {
		if err := tc.it.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestProjectValidate(t *testing.T) {
	good := Project{
		Name:      "Website",
		Client:    "ACME",
		StartDate: NewDate(2025, 1, 1),
		EndDate:   NewDate(2025, 2, 1),
		Status:    ProjectActive,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	sameDay := good
	sameDay.EndDate = good.StartDate
	if err := sameDay.Validate(); err != nil {
		t.Fatalf("end == start should be valid, got %v", err)
	}

	cases := []struct {
		mut func(*Project)
		err error
	}{
		{func(p *Project) { p.Name = "" }, ErrEmptyName},
		{func(p *Project) { p.Name = "ab" }, ErrNameTooShort},
		{func(p *Project) { p.Client = " " }, ErrEmptyClient},
		{func(p *Project) { p.StartDate = Date{} }, ErrMissingStartDate},
		{func(p *Project) { p.EndDate = Date{} }, ErrMissingEndDate},
		{func(p *Project) { p.EndDate = NewDate(2024, 12, 31) }, ErrEndBeforeStart},
		{func(p *Project) { p.Status = "archived" }, ErrInvalidStatus},
	}
	for i, tc := range cases {
		p := good
		tc.mut(&p)
		if err := p.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestEstimationQueryNormalize(t *testing.T) {
	q := EstimationQuery{}.Normalize()
	if q.Page != DefaultPage || q.Limit != DefaultItemsPerPage {
		t.Fatalf("unexpected defaults %+v", q)
	}
	if off := (EstimationQuery{Page: 3, Limit: 25}).Offset(); off != 50 {
		t.Fatalf("offset = %d, want 50", off)
	}
}

func TestEstimationFiltersMatches(t *testing.T) {
	e := Estimation{
		Name:        "Mobile App",
		Description: "iOS and Android",
		Status:      "draft",
		CreatedAt:   NewDate(2025, 5, 10),
	}
	cases := []struct {
		f  EstimationFilters
		ok bool
	}{
		{EstimationFilters{}, true},
		{EstimationFilters{Search: "mobile"}, true},
		{EstimationFilters{Search: "android"}, true},
		{EstimationFilters{Search: "web"}, false},
		{EstimationFilters{StartDate: NewDate(2025, 5, 1)}, true},
		{EstimationFilters{StartDate: NewDate(2025, 6, 1)}, false},
		{EstimationFilters{EndDate: NewDate(2025, 5, 10)}, true},
		{EstimationFilters{EndDate: NewDate(2025, 5, 9)}, false},
		{EstimationFilters{Status: "draft"}, true},
		{EstimationFilters{Status: "approved"}, false},
	}
	for i, tc := range cases {
		if got := tc.f.Matches(e); got != tc.ok {
			t.Fatalf("case %d: Matches = %v, want %v", i, got, tc.ok)
		}
	}
}
