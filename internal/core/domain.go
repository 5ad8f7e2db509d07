package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "onHold"
)

// DateLayout is the wire format used for every Date field.
const DateLayout = "2006-01-02"

const (
	DefaultPage         = 1
	DefaultItemsPerPage = 10
)

// PageSizeOptions lists the page sizes offered to callers.
var PageSizeOptions = []int{5, 10, 25, 50}

type (
	ProjectStatus string

	Date struct {
		time.Time
	}

	// Item is a single billable line.
	Item struct {
		ID          string  `json:"id,omitempty"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Unit        string  `json:"unit"`
		Quantity    float64 `json:"quantity"`
		Price       float64 `json:"price"`
		Margin      float64 `json:"margin"` // percentage, 0-100
	}

	// Section groups items inside an estimation. Items keep insertion order.
	Section struct {
		ID          string `json:"id,omitempty"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Items       []Item `json:"items"`
	}

	// Estimation owns its sections exclusively.
	Estimation struct {
		ID          string    `json:"id,omitempty"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		ProjectID   string    `json:"projectId,omitempty"`
		Status      string    `json:"status,omitempty"`
		CreatedAt   Date      `json:"createdAt"`
		Sections    []Section `json:"sections"`
	}

	// User is the public view of an account. Credentials never leave the
	// auth layer.
	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Project struct {
		ID          string        `json:"id,omitempty"`
		Name        string        `json:"name"`
		Description string        `json:"description"`
		Client      string        `json:"client"`
		StartDate   Date          `json:"startDate"`
		EndDate     Date          `json:"endDate"`
		Status      ProjectStatus `json:"status"`
	}

	// EstimationFilters are evaluated by the remote store, never client side.
	// Zero values mean "no constraint".
	EstimationFilters struct {
		Search    string `json:"search"`
		StartDate Date   `json:"startDate"`
		EndDate   Date   `json:"endDate"`
		Status    string `json:"status"`
	}

	EstimationQuery struct {
		EstimationFilters
		Page  int // 1-based
		Limit int
	}

	// EstimationPage is one page of a filtered listing. Total counts every
	// matching record, not just the ones in Items.
	EstimationPage struct {
		Items []Estimation `json:"items"`
		Total int          `json:"total"`
	}
)

var (
	ErrEmptyName        = errors.New("name is required")
	ErrNameTooShort     = errors.New("name must be at least 3 characters")
	ErrEmptyClient      = errors.New("client is required")
	ErrMissingStartDate = errors.New("start date is required")
	ErrMissingEndDate   = errors.New("end date is required")
	ErrEndBeforeStart   = errors.New("end date must be after start date")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNegativeQuantity = errors.New("quantity must be greater than or equal to 0")
	ErrNegativePrice    = errors.New("price must be greater than or equal to 0")
	ErrMarginOutOfRange = errors.New("margin must be between 0 and 100")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		// Accept full timestamps too, the UI date pickers send them.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return Date{}, err
		}
	}
	return Date{Time: t.UTC()}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String returns the date in YYYY-MM-DD form, or "" when empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsValid reports whether s is one of the known project statuses.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	default:
		return false
	}
}

// Label returns the human readable status name.
func (s ProjectStatus) Label() string {
	switch s {
	case ProjectActive:
		return "Active"
	case ProjectCompleted:
		return "Completed"
	case ProjectOnHold:
		return "On Hold"
	default:
		return string(s)
	}
}

// NewItem returns the blank row added by the "add item" action.
func NewItem() Item {
	return Item{}
}

// NewSection returns a blank section pre-populated with exactly one blank item.
func NewSection() Section {
	return Section{Items: []Item{NewItem()}}
}

// Total is the item's derived total including margin.
func (i Item) Total() float64 {
	return ItemTotal(i.Quantity, i.Price, i.Margin)
}

// Total is the section's derived subtotal.
func (s Section) Total() float64 {
	return SectionTotal(s.Items)
}

// Total is the estimation's derived grand total.
func (e Estimation) Total() float64 {
	return EstimationTotal(e.Sections)
}

// FindItem returns the index of the item with the given id, or -1.
func (s Section) FindItem(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// FindSection returns the index of the section with the given id, or -1.
func (e Estimation) FindSection(id string) int {
	for i := range e.Sections {
		if e.Sections[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	if s.Items != nil {
		out.Items = append([]Item(nil), s.Items...)
	}
	return out
}

// Clone returns a deep copy of the estimation, sections and items included.
func (e Estimation) Clone() Estimation {
	out := e
	if e.Sections != nil {
		out.Sections = make([]Section, len(e.Sections))
		for i, s := range e.Sections {
			out.Sections[i] = s.Clone()
		}
	}
	return out
}

func (i Item) Validate() error {
	if i.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if i.Price < 0 {
		return ErrNegativePrice
	}
	if i.Margin < 0 || i.Margin > 100 {
		return ErrMarginOutOfRange
	}
	return nil
}

func (s Section) Validate() error {
	for _, it := range s.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e Estimation) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	for _, s := range e.Sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p Project) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len([]rune(name)) < 3 {
		return ErrNameTooShort
	}
	if strings.TrimSpace(p.Client) == "" {
		return ErrEmptyClient
	}
	if p.StartDate.IsEmpty() {
		return ErrMissingStartDate
	}
	if p.EndDate.IsEmpty() {
		return ErrMissingEndDate
	}
	if p.EndDate.Before(p.StartDate.Time) {
		return ErrEndBeforeStart
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Normalize fills in default paging values.
func (q EstimationQuery) Normalize() EstimationQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultItemsPerPage
	}
	return q
}

// Offset returns the zero-based index of the first record on the page.
func (q EstimationQuery) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Limit
}

// Matches reports whether e satisfies the filters. Remote stores use it; the
// client cache never filters locally.
func (f EstimationFilters) Matches(e Estimation) bool {
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		if !strings.Contains(strings.ToLower(e.Name), s) &&
			!strings.Contains(strings.ToLower(e.Description), s) {
			return false
		}
	}
	if !f.StartDate.IsEmpty() && e.CreatedAt.Before(f.StartDate.Time) {
		return false
	}
	if !f.EndDate.IsEmpty() && e.CreatedAt.After(f.EndDate.Time) {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}
