package core

import "testing"

func TestSummarize(t *testing.T) {
	e := Estimation{
		ID:   "e1",
		Name: "Website",
		Sections: []Section{
			{ID: "a", Name: "Design", Items: []Item{
				{ID: "1", Title: "Mockups", Quantity: 3, Price: 10, Margin: 10},
				{ID: "2", Title: "Review", Quantity: 1, Price: 100},
			}},
			{ID: "b", Name: "Build", Items: []Item{
				{ID: "3", Title: "Pages", Quantity: 5, Price: 2, Margin: 50},
			}},
		},
	}
	s := Summarize(e)
	if s.Total != 148 || s.Total != EstimationTotal(e.Sections) {
		t.Fatalf("grand total = %v", s.Total)
	}
	if len(s.Sections) != 2 || s.Sections[0].Total != 133 || s.Sections[1].Total != 15 {
		t.Fatalf("unexpected sections: %+v", s.Sections)
	}
	if s.Sections[0].Items[0].Total != 33 {
		t.Fatalf("item total = %v", s.Sections[0].Items[0].Total)
	}

	// totals follow the current values, nothing is cached
	e.Sections[1].Items[0].Quantity = 10
	if got := Summarize(e).Total; got != 163 {
		t.Fatalf("recomputed total = %v, want 163", got)
	}
}
