package core

// ItemSummary is one priced line of an estimation.
type ItemSummary struct {
	ID       string  `json:"id,omitempty"`
	Title    string  `json:"title"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Margin   float64 `json:"margin"`
	Total    float64 `json:"total"`
}

// SectionSummary carries a section subtotal and its item lines.
type SectionSummary struct {
	ID    string        `json:"id,omitempty"`
	Name  string        `json:"name"`
	Items []ItemSummary `json:"items"`
	Total float64       `json:"total"`
}

// EstimationSummary is a derived, read-only view of an estimation's totals.
type EstimationSummary struct {
	ID       string           `json:"id,omitempty"`
	Name     string           `json:"name"`
	Sections []SectionSummary `json:"sections"`
	Total    float64          `json:"total"`
}

// Summarize computes every total of e. The grand total equals
// EstimationTotal(e.Sections).
func Summarize(e Estimation) EstimationSummary {
	out := EstimationSummary{
		ID:       e.ID,
		Name:     e.Name,
		Sections: make([]SectionSummary, 0, len(e.Sections)),
	}
	for _, s := range e.Sections {
		ss := SectionSummary{
			ID:    s.ID,
			Name:  s.Name,
			Items: make([]ItemSummary, 0, len(s.Items)),
		}
		for _, it := range s.Items {
			ss.Items = append(ss.Items, ItemSummary{
				ID:       it.ID,
				Title:    it.Title,
				Unit:     it.Unit,
				Quantity: it.Quantity,
				Price:    it.Price,
				Margin:   it.Margin,
				Total:    it.Total(),
			})
		}
		ss.Total = SectionTotal(s.Items)
		out.Sections = append(out.Sections, ss)
	}
	out.Total = EstimationTotal(e.Sections)
	return out
}
