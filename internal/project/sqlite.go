package project

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maauso/autocut/internal/cutlist"
	"github.com/maauso/autocut/internal/export"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Compile-time check that SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository persists projects in a SQLite database so cut-list
// reviews survive restarts.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at dbPath, applies
// pending migrations and fails projects left ANALYZING by a previous process.
func OpenSQLite(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	r := &SQLiteRepository{db: db, logger: logger}

	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if n, err := r.failInterrupted(context.Background()); err != nil {
		logger.Warn("failed to mark interrupted projects", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Warn("marked interrupted projects as failed", slog.Int64("count", n))
	}

	return r, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}

		name := m.Name()
		if r.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := r.db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}

		if _, err := r.db.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		r.logger.Info("applied migration", slog.String("name", name))
	}

	return nil
}

func (r *SQLiteRepository) isMigrationApplied(name string) bool {
	var exists int
	err := r.db.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return false
	}

	var applied int
	err = r.db.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

func (r *SQLiteRepository) failInterrupted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET status = ?, error = 'interrupted by restart', updated_at = ?
		WHERE status = ?
	`, StatusFailed, formatTime(time.Now()), StatusAnalyzing)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Save upserts the project row and replaces its export records.
func (r *SQLiteRepository) Save(ctx context.Context, p *Project) error {
	snap := p.Clone()

	cfg, err := json.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	md, err := json.Marshal(snap.Media)
	if err != nil {
		return fmt.Errorf("encode media: %w", err)
	}
	var cl sql.NullString
	if snap.cutList != nil {
		data, err := json.Marshal(snap.cutList)
		if err != nil {
			return fmt.Errorf("encode cut list: %w", err)
		}
		cl = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, status, media_path, title, preset, config, media, cut_list, error, created_at, updated_at, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			media_path = excluded.media_path,
			title = excluded.title,
			preset = excluded.preset,
			config = excluded.config,
			media = excluded.media,
			cut_list = excluded.cut_list,
			error = excluded.error,
			updated_at = excluded.updated_at,
			analyzed_at = excluded.analyzed_at
	`, snap.ID, snap.Status, snap.MediaPath, snap.Title, snap.Preset, string(cfg), string(md), cl,
		nullString(snap.Error), formatTime(snap.CreatedAt), formatTime(snap.UpdatedAt), nullTime(snap.AnalyzedAt))
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM exports WHERE project_id = ?", snap.ID); err != nil {
		return fmt.Errorf("clear exports: %w", err)
	}
	for i, e := range snap.Exports {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exports (project_id, seq, format, path, url, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, snap.ID, i, e.Format, e.Path, nullString(e.URL), formatTime(e.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert export: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const projectColumns = `id, status, media_path, title, preset, config, media, cut_list, error, created_at, updated_at, analyzed_at`

// FindByID loads a project and its exports.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadExports(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns all projects, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := make([]*Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range projects {
		if err := r.loadExports(ctx, p); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// Delete removes a project and, through the foreign key, its exports.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (r *SQLiteRepository) loadExports(ctx context.Context, p *Project) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT format, path, url, created_at FROM exports WHERE project_id = ? ORDER BY seq
	`, p.ID)
	if err != nil {
		return fmt.Errorf("query exports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e Export
		var format, createdAt string
		var url sql.NullString
		if err := rows.Scan(&format, &e.Path, &url, &createdAt); err != nil {
			return err
		}
		e.Format = export.Format(format)
		e.URL = url.String
		e.CreatedAt = parseTime(createdAt)
		p.Exports = append(p.Exports, e)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var status, cfg, md, createdAt, updatedAt string
	var cl, errMsg, analyzedAt sql.NullString

	err := row.Scan(&p.ID, &status, &p.MediaPath, &p.Title, &p.Preset, &cfg, &md, &cl, &errMsg, &createdAt, &updatedAt, &analyzedAt)
	if err != nil {
		return nil, err
	}

	p.Status = Status(status)
	if err := json.Unmarshal([]byte(cfg), &p.Config); err != nil {
		return nil, fmt.Errorf("decode config of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(md), &p.Media); err != nil {
		return nil, fmt.Errorf("decode media of %s: %w", p.ID, err)
	}
	if cl.Valid {
		var list cutlist.CutList
		if err := json.Unmarshal([]byte(cl.String), &list); err != nil {
			return nil, fmt.Errorf("decode cut list of %s: %w", p.ID, err)
		}
		p.cutList = &list
	}
	p.Error = errMsg.String
	p.Exports = make([]Export, 0)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	if analyzedAt.Valid {
		p.AnalyzedAt = parseTime(analyzedAt.String)
	}
	return &p, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
