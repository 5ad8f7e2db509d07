package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	"estimator/internal/core"
	"estimator/internal/gateway"
)

const estimationColumns = `id, name, description, project_id, status, created_at`

func (r *SQLiteRepository) ListEstimations(ctx context.Context, q core.EstimationQuery) (core.EstimationPage, error) {
	q = q.Normalize()
	where, args := filterClause(q.EstimationFilters)

	page := core.EstimationPage{Items: []core.Estimation{}}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM estimations`+where, args...).Scan(&page.Total); err != nil {
		return core.EstimationPage{}, fmt.Errorf("count estimations: %w", err)
	}
	if q.Offset() >= page.Total {
		return page, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+estimationColumns+` FROM estimations`+where+` ORDER BY position LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset())...)
	if err != nil {
		return core.EstimationPage{}, fmt.Errorf("list estimations: %w", err)
	}
	items, err := scanEstimations(rows)
	if err != nil {
		return core.EstimationPage{}, err
	}

	for i := range items {
		if items[i].Sections, err = loadSections(ctx, r.db, items[i].ID); err != nil {
			return core.EstimationPage{}, err
		}
	}
	page.Items = items
	return page, nil
}

// filterClause renders f as a WHERE clause. Dates are stored as YYYY-MM-DD so
// string comparison orders them.
func filterClause(f core.EstimationFilters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		conds = append(conds, `(`+foldFunc+`(name) LIKE ? ESCAPE '\' OR `+foldFunc+`(description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if !f.StartDate.IsEmpty() {
		conds = append(conds, `created_at >= ?`)
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsEmpty() {
		conds = append(conds, `created_at <= ?`)
		args = append(args, f.EndDate.String())
	}
	if f.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, f.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// foldFunc lowercases text with Go's Unicode case mapping, so SQL search
// agrees with core.EstimationFilters.Matches. SQLite's LOWER only folds ASCII.
const foldFunc = "go_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanEstimations(rows *sql.Rows) ([]core.Estimation, error) {
	defer rows.Close()
	out := []core.Estimation{}
	for rows.Next() {
		var (
			e       core.Estimation
			created string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.ProjectID, &e.Status, &created); err != nil {
			return nil, fmt.Errorf("scan estimation: %w", err)
		}
		e.CreatedAt = parseStoredDate(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimations: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetEstimation(ctx context.Context, id string) (core.Estimation, error) {
	return getEstimation(ctx, r.db, id)
}

func getEstimation(ctx context.Context, q querier, id string) (core.Estimation, error) {
	var (
		e       core.Estimation
		created string
	)
	err := q.QueryRowContext(ctx, `SELECT `+estimationColumns+` FROM estimations WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Description, &e.ProjectID, &e.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Estimation{}, gateway.NotFound("Estimation")
	}
	if err != nil {
		return core.Estimation{}, fmt.Errorf("get estimation: %w", err)
	}
	e.CreatedAt = parseStoredDate(created)
	if e.Sections, err = loadSections(ctx, q, id); err != nil {
		return core.Estimation{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) CreateEstimation(ctx context.Context, e core.Estimation) (core.Estimation, error) {
	e = e.Clone()
	e.ID = uuid.NewString()
	if e.CreatedAt.IsEmpty() {
		t := time.Now().UTC()
		e.CreatedAt = core.NewDate(t.Year(), int(t.Month()), t.Day())
	}
	if e.Sections == nil {
		e.Sections = []core.Section{}
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		pos, err := nextPosition(ctx, tx, `SELECT COALESCE(MAX(position), 0) + 1 FROM estimations`)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO estimations (id, name, description, project_id, status, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Name, e.Description, e.ProjectID, e.Status, e.CreatedAt.String(), pos)
		if err != nil {
			return fmt.Errorf("insert estimation: %w", err)
		}
		return insertSections(ctx, tx, e.ID, e.Sections)
	})
	if err != nil {
		return core.Estimation{}, err
	}

	slog.InfoContext(ctx, "Estimation saved to SQLite",
		"estimation_id", e.ID,
		"name", e.Name,
		"sections", len(e.Sections))
	return e, nil
}

// UpdateEstimation replaces the estimation and its whole section tree.
func (r *SQLiteRepository) UpdateEstimation(ctx context.Context, id string, e core.Estimation) (core.Estimation, error) {
	e = e.Clone()
	e.ID = id
	if e.Sections == nil {
		e.Sections = []core.Section{}
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var created string
		err := tx.QueryRowContext(ctx, `SELECT created_at FROM estimations WHERE id = ?`, id).Scan(&created)
		if errors.Is(err, sql.ErrNoRows) {
			return gateway.NotFound("Estimation")
		}
		if err != nil {
			return fmt.Errorf("get estimation: %w", err)
		}
		if e.CreatedAt.IsEmpty() {
			e.CreatedAt = parseStoredDate(created)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE estimations SET name = ?, description = ?, project_id = ?, status = ?, created_at = ?
			 WHERE id = ?`,
			e.Name, e.Description, e.ProjectID, e.Status, e.CreatedAt.String(), id)
		if err != nil {
			return fmt.Errorf("update estimation: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE estimation_id = ?`, id); err != nil {
			return fmt.Errorf("clear sections: %w", err)
		}
		return insertSections(ctx, tx, id, e.Sections)
	})
	if err != nil {
		return core.Estimation{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteEstimation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM estimations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete estimation: %w", err)
	}
	return requireAffected(res, "Estimation")
}

// Sections

func (r *SQLiteRepository) AddSection(ctx context.Context, estimationID string, s core.Section) (core.Section, error) {
	s = s.Clone()
	s.ID = uuid.NewString()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireEstimation(ctx, tx, estimationID); err != nil {
			return err
		}
		return insertSections(ctx, tx, estimationID, []core.Section{s})
	})
	if err != nil {
		return core.Section{}, err
	}
	return getSection(ctx, r.db, estimationID, s.ID)
}

func (r *SQLiteRepository) UpdateSection(ctx context.Context, estimationID, sectionID string, s core.Section) (core.Section, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireSection(ctx, tx, estimationID, sectionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sections SET name = ?, description = ? WHERE id = ?`,
			s.Name, s.Description, sectionID)
		if err != nil {
			return fmt.Errorf("update section: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE section_id = ?`, sectionID); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}
		return insertItems(ctx, tx, sectionID, s.Items)
	})
	if err != nil {
		return core.Section{}, err
	}
	return getSection(ctx, r.db, estimationID, sectionID)
}

func (r *SQLiteRepository) DeleteSection(ctx context.Context, estimationID, sectionID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireSection(ctx, tx, estimationID, sectionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, sectionID); err != nil {
			return fmt.Errorf("delete section: %w", err)
		}
		return nil
	})
}

// Items

func (r *SQLiteRepository) AddItem(ctx context.Context, estimationID, sectionID string, it core.Item) (core.Item, error) {
	it.ID = uuid.NewString()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireSection(ctx, tx, estimationID, sectionID); err != nil {
			return err
		}
		return insertItems(ctx, tx, sectionID, []core.Item{it})
	})
	if err != nil {
		return core.Item{}, err
	}
	return it, nil
}

func (r *SQLiteRepository) UpdateItem(ctx context.Context, estimationID, sectionID, itemID string, it core.Item) (core.Item, error) {
	it.ID = itemID
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireSection(ctx, tx, estimationID, sectionID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET title = ?, description = ?, unit = ?, quantity = ?, price = ?, margin = ?
			 WHERE id = ? AND section_id = ?`,
			it.Title, it.Description, it.Unit, it.Quantity, it.Price, it.Margin, itemID, sectionID)
		if err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		return requireAffected(res, "Item")
	})
	if err != nil {
		return core.Item{}, err
	}
	return it, nil
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, estimationID, sectionID, itemID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireSection(ctx, tx, estimationID, sectionID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND section_id = ?`, itemID, sectionID)
		if err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return requireAffected(res, "Item")
	})
}

func requireEstimation(ctx context.Context, q querier, estimationID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM estimations WHERE id = ?`, estimationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return gateway.NotFound("Estimation")
	}
	if err != nil {
		return fmt.Errorf("check estimation: %w", err)
	}
	return nil
}

func requireSection(ctx context.Context, q querier, estimationID, sectionID string) error {
	if err := requireEstimation(ctx, q, estimationID); err != nil {
		return err
	}
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM sections WHERE id = ? AND estimation_id = ?`, sectionID, estimationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return gateway.NotFound("Section")
	}
	if err != nil {
		return fmt.Errorf("check section: %w", err)
	}
	return nil
}

// insertSections appends sections after the estimation's existing ones.
// Sections and items without an id get one, written back into the slice.
func insertSections(ctx context.Context, tx *sql.Tx, estimationID string, sections []core.Section) error {
	pos, err := nextPosition(ctx, tx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM sections WHERE estimation_id = ?`, estimationID)
	if err != nil {
		return err
	}
	for i := range sections {
		s := &sections[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Items == nil {
			s.Items = []core.Item{}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sections (id, estimation_id, name, description, position) VALUES (?, ?, ?, ?, ?)`,
			s.ID, estimationID, s.Name, s.Description, pos+int64(i))
		if err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
		if err := insertItems(ctx, tx, s.ID, s.Items); err != nil {
			return err
		}
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, sectionID string, items []core.Item) error {
	pos, err := nextPosition(ctx, tx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM items WHERE section_id = ?`, sectionID)
	if err != nil {
		return err
	}
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, section_id, title, description, unit, quantity, price, margin, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, sectionID, it.Title, it.Description, it.Unit, it.Quantity, it.Price, it.Margin, pos+int64(i))
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
	}
	return nil
}

func getSection(ctx context.Context, q querier, estimationID, sectionID string) (core.Section, error) {
	sections, err := loadSections(ctx, q, estimationID)
	if err != nil {
		return core.Section{}, err
	}
	for _, s := range sections {
		if s.ID == sectionID {
			return s, nil
		}
	}
	return core.Section{}, gateway.NotFound("Section")
}

// loadSections reads the ordered section tree of one estimation.
func loadSections(ctx context.Context, q querier, estimationID string) ([]core.Section, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, description FROM sections WHERE estimation_id = ? ORDER BY position`, estimationID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	sections := []core.Section{}
	index := map[string]int{}
	for rows.Next() {
		s := core.Section{Items: []core.Item{}}
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan section: %w", err)
		}
		index[s.ID] = len(sections)
		sections = append(sections, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	if len(sections) == 0 {
		return sections, nil
	}

	rows, err = q.QueryContext(ctx,
		`SELECT i.section_id, i.id, i.title, i.description, i.unit, i.quantity, i.price, i.margin
		 FROM items i JOIN sections s ON s.id = i.section_id
		 WHERE s.estimation_id = ?
		 ORDER BY i.position`, estimationID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sectionID string
			it        core.Item
		)
		if err := rows.Scan(&sectionID, &it.ID, &it.Title, &it.Description, &it.Unit, &it.Quantity, &it.Price, &it.Margin); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if j, ok := index[sectionID]; ok {
			sections[j].Items = append(sections[j].Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return sections, nil
}
