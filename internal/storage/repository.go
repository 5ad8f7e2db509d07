// Package storage is the SQLite resource store used by the API server.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"estimator/internal/auth"
	"estimator/internal/core"
	"estimator/internal/gateway"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ gateway.Resources = (*SQLiteRepository)(nil)
	_ auth.AccountStore = (*SQLiteRepository)(nil)
)

// DSN returns the connection string for dbPath with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Accounts

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a auth.Account) (auth.Account, error) {
	a.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash) VALUES (?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, a.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Account{}, gateway.NewError(http.StatusConflict, "User already exists")
		}
		return auth.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "user_id", a.ID)
	return a, nil
}

func (r *SQLiteRepository) AccountByEmail(ctx context.Context, email string) (auth.Account, error) {
	var a auth.Account
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = ?`, email).
		Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, gateway.NotFound("User")
	}
	if err != nil {
		return auth.Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// Projects

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, client, start_date, end_date, status
		 FROM projects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []core.Project{}
	for rows.Next() {
		var (
			p          core.Project
			start, end string
			status     string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Client, &start, &end, &status); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.StartDate = parseStoredDate(start)
		p.EndDate = parseStoredDate(end)
		p.Status = core.ProjectStatus(status)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	p.ID = uuid.NewString()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		pos, err := nextPosition(ctx, tx, `SELECT COALESCE(MAX(position), 0) + 1 FROM projects`)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO projects (id, name, description, client, start_date, end_date, status, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, p.Client, p.StartDate.String(), p.EndDate.String(), string(p.Status), pos)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Project{}, err
	}
	slog.InfoContext(ctx, "Project saved to SQLite", "project_id", p.ID, "name", p.Name)
	return p, nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, id string, p core.Project) (core.Project, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, client = ?, start_date = ?, end_date = ?, status = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Client, p.StartDate.String(), p.EndDate.String(), string(p.Status), id)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := requireAffected(res, "Project"); err != nil {
		return core.Project{}, err
	}
	p.ID = id
	return p, nil
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireAffected(res, "Project")
}

func nextPosition(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	var pos int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&pos); err != nil {
		return 0, fmt.Errorf("next position: %w", err)
	}
	return pos, nil
}

// requireAffected turns an UPDATE or DELETE that matched no row into a 404.
func requireAffected(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return gateway.NotFound(resource)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// parseStoredDate reads a YYYY-MM-DD column. Unparseable values read as empty.
func parseStoredDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}
