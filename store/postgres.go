package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/okawa-catalog/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores the catalog in a PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS articles (
			position INTEGER NOT NULL,
			code TEXT NOT NULL,
			description TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			availability TEXT NOT NULL,
			category TEXT NOT NULL,
			brand TEXT NOT NULL,
			price_list TEXT NOT NULL,
			equivalent_code TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS refresh_status (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			source TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			state TEXT NOT NULL,
			details TEXT NOT NULL,
			run_id TEXT NOT NULL,
			duration_ms BIGINT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

// ReplaceArticles fills a staging table with batched inserts and renames it
// over the live table in one transaction. Postgres DDL is transactional, so
// readers see either the old set or the new one.
func (p *Postgres) ReplaceArticles(ctx context.Context, articles []models.Article, batchSize int) (err error) {
	if _, err := p.pool.Exec(ctx, `DROP TABLE IF EXISTS articles_staging`); err != nil {
		return fmt.Errorf("drop stale staging table: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `CREATE TABLE articles_staging (LIKE articles INCLUDING ALL)`); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	defer func() {
		if err != nil {
			if _, dropErr := p.pool.Exec(context.Background(), `DROP TABLE IF EXISTS articles_staging`); dropErr != nil {
				err = errors.Join(err, fmt.Errorf("drop staging table: %w", dropErr))
			}
		}
	}()

	for _, c := range chunks(len(articles), batchSize) {
		b := &pgx.Batch{}
		for i, a := range articles[c[0]:c[1]] {
			b.Queue(`
				INSERT INTO articles_staging
				(position, code, description, price, availability, category, brand, price_list, equivalent_code)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				c[0]+i, a.Code, a.Description, a.Price, string(a.Availability),
				a.Category, a.Brand, a.PriceList, a.EquivalentCode,
			)
		}
		br := p.pool.SendBatch(ctx, b)
		for k := 0; k < b.Len(); k++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert rows %d-%d: %w", c[0], c[1], err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch %d-%d: %w", c[0], c[1], err)
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin swap: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS articles`); err != nil {
		return fmt.Errorf("drop live table: %w", err)
	}
	if _, err := tx.Exec(ctx, `ALTER TABLE articles_staging RENAME TO articles`); err != nil {
		return fmt.Errorf("rename staging table: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}

// LoadArticles returns the live set in feed order.
func (p *Postgres) LoadArticles(ctx context.Context) ([]models.Article, error) {
	rows, err := p.pool.Query(ctx, `
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

func (p *Postgres) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// SaveStatus overwrites the singleton status row.
func (p *Postgres) SaveStatus(ctx context.Context, status models.RefreshStatus) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO refresh_status (id, source, updated_at, state, details, run_id, duration_ms)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at,
			state = EXCLUDED.state,
			details = EXCLUDED.details,
			run_id = EXCLUDED.run_id,
			duration_ms = EXCLUDED.duration_ms`,
		status.Source, status.UpdatedAt, status.State, status.Details, status.RunID, status.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return nil
}

func (p *Postgres) LoadStatus(ctx context.Context) (*models.RefreshStatus, error) {
	var status models.RefreshStatus
	err := p.pool.QueryRow(ctx, `
		SELECT source, updated_at, state, details, run_id, duration_ms
		FROM refresh_status WHERE id = 1`,
	).Scan(&status.Source, &status.UpdatedAt, &status.State, &status.Details, &status.RunID, &status.DurationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load status: %w", err)
	}
	return &status, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
