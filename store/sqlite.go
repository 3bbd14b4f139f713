package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aluiziolira/okawa-catalog/models"
	_ "github.com/mattn/go-sqlite3"
)

const articleColumns = `
	position INTEGER NOT NULL,
	code TEXT NOT NULL,
	description TEXT NOT NULL,
	price REAL NOT NULL,
	availability TEXT NOT NULL,
	category TEXT NOT NULL,
	brand TEXT NOT NULL,
	price_list TEXT NOT NULL,
	equivalent_code TEXT NOT NULL`

// SQLite stores the catalog in a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating when needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=30000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; the swap relies on it.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS articles (` + articleColumns + `
		);

		CREATE TABLE IF NOT EXISTS refresh_status (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			source TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			state TEXT NOT NULL,
			details TEXT NOT NULL,
			run_id TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

// ReplaceArticles writes articles into a staging table in batches and then
// renames it over the live table inside one transaction.
func (s *SQLite) ReplaceArticles(ctx context.Context, articles []models.Article, batchSize int) (err error) {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS articles_staging`); err != nil {
		return fmt.Errorf("drop stale staging table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE articles_staging (`+articleColumns+`)`); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	defer func() {
		if err != nil {
			if _, dropErr := s.db.Exec(`DROP TABLE IF EXISTS articles_staging`); dropErr != nil {
				err = errors.Join(err, fmt.Errorf("drop staging table: %w", dropErr))
			}
		}
	}()

	for _, c := range chunks(len(articles), batchSize) {
		if err := s.insertBatch(ctx, articles[c[0]:c[1]], c[0]); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", c[0], c[1], err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin swap: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS articles`); err != nil {
		return fmt.Errorf("drop live table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE articles_staging RENAME TO articles`); err != nil {
		return fmt.Errorf("rename staging table: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}

func (s *SQLite) insertBatch(ctx context.Context, batch []models.Article, offset int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles_staging
		(position, code, description, price, availability, category, brand, price_list, equivalent_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, a := range batch {
		if _, err := stmt.ExecContext(ctx,
			offset+i, a.Code, a.Description, a.Price, string(a.Availability),
			a.Category, a.Brand, a.PriceList, a.EquivalentCode,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadArticles returns the live set in feed order.
func (s *SQLite) LoadArticles(ctx context.Context) ([]models.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, description, price, availability, category, brand, price_list, equivalent_code
		FROM articles
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		var (
			a            models.Article
			availability string
		)
		if err := rows.Scan(&a.Code, &a.Description, &a.Price, &availability,
			&a.Category, &a.Brand, &a.PriceList, &a.EquivalentCode); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Availability = models.Availability(availability)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}

func (s *SQLite) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// SaveStatus overwrites the singleton status row.
func (s *SQLite) SaveStatus(ctx context.Context, status models.RefreshStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_status (id, source, updated_at, state, details, run_id, duration_ms)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			updated_at = excluded.updated_at,
			state = excluded.state,
			details = excluded.details,
			run_id = excluded.run_id,
			duration_ms = excluded.duration_ms`,
		status.Source, status.UpdatedAt.UTC().Format(time.RFC3339Nano), status.State,
		status.Details, status.RunID, status.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

func (s *SQLite) LoadStatus(ctx context.Context) (*models.RefreshStatus, error) {
	var (
		status    models.RefreshStatus
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT source, updated_at, state, details, run_id, duration_ms
		FROM refresh_status WHERE id = 1`,
	).Scan(&status.Source, &updatedAt, &status.State, &status.Details, &status.RunID, &status.DurationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load status: %w", err)
	}
	status.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse status timestamp: %w", err)
	}
	return &status, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
