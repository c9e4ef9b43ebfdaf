// Package store archives crawled records in Postgres, one row per record and
// run.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sjsage522/pricecrawler/internal/crawler"
	"sjsage522/pricecrawler/pkg/errors"
)

const defaultBatch = 200

// Store persists the records of a crawl
type Store interface {
	Save(ctx context.Context, runID uuid.UUID, source string, records []crawler.ProductRecord) (int, error)
	Close()
}

// PostgresStore writes records into <schema>.price_records
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	batch  int
	now    func() time.Time
}

// NewPostgresStore connects to dsn. The pool is small because sources are
// archived one after another.
func NewPostgresStore(ctx context.Context, dsn, schema string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.NewConfiguration("postgres", "parse dsn", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.NewStorage("postgres", "connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewStorage("postgres", "ping", err)
	}

	return &PostgresStore{
		pool:   pool,
		schema: schema,
		batch:  defaultBatch,
		now:    time.Now,
	}, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "price_records"}.Sanitize()
}

// EnsureSchema creates the schema and the table when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{s.schema}.Sanitize(),
		`CREATE TABLE IF NOT EXISTS ` + s.table() + ` (
			run_id           uuid        NOT NULL,
			source           text        NOT NULL,
			detail_url       text        NOT NULL,
			source_url       text        NOT NULL DEFAULT '',
			title            text        NOT NULL DEFAULT '',
			price            numeric(12,2),
			price_text       text        NOT NULL DEFAULT '',
			original_price   numeric(12,2),
			discounted_price numeric(12,2),
			discount_rate    numeric(6,2),
			merchant         text        NOT NULL DEFAULT '',
			offer_url        text        NOT NULL DEFAULT '',
			crawled_at       timestamptz NOT NULL,
			PRIMARY KEY (run_id, source, detail_url)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return errors.NewStorage("postgres", "ensure schema", err)
		}
	}
	return nil
}

// Save inserts the records of one source in batches. Records without a
// detail URL are skipped, and rows already stored for the run are left
// alone. It returns the number of inserted rows.
func (s *PostgresStore) Save(ctx context.Context, runID uuid.UUID, source string, records []crawler.ProductRecord) (int, error) {
	crawledAt := s.now().UTC()
	total := 0

	for i := 0; i < len(records); i += s.batch {
		j := min(i+s.batch, len(records))

		b := &pgx.Batch{}
		for _, rec := range records[i:j] {
			if strings.TrimSpace(rec.DetailURL) == "" {
				continue
			}
			r := newRow(rec)
			b.Queue(
				`INSERT INTO `+s.table()+`
				(run_id, source, detail_url, source_url, title, price, price_text,
				 original_price, discounted_price, discount_rate, merchant, offer_url, crawled_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
				ON CONFLICT (run_id, source, detail_url) DO NOTHING`,
				runID, source, rec.DetailURL, rec.SourceURL, rec.Title, r.price, r.priceText,
				r.original, r.discounted, r.rate, rec.Merchant, rec.ExternalOfferURL, crawledAt,
			)
		}
		if b.Len() == 0 {
			continue
		}

		br := s.pool.SendBatch(ctx, b)
		for k := 0; k < b.Len(); k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, errors.NewStorage("postgres", fmt.Sprintf("insert %s", source), err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, errors.NewStorage("postgres", fmt.Sprintf("insert %s", source), err)
		}
	}
	return total, nil
}

// Close closes the pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// row holds the nullable price columns of a record
type row struct {
	price      *float64
	priceText  string
	original   *float64
	discounted *float64
	rate       *float64
}

func newRow(rec crawler.ProductRecord) row {
	var r row
	switch p := rec.Price.(type) {
	case crawler.PlainPrice:
		r.price = parseNullableFloat(p.Amount)
		r.priceText = p.Text
	case crawler.DiscountedPrice:
		r.original = parseNullableFloat(p.Original)
		r.discounted = parseNullableFloat(p.Discounted)
		r.rate = parseNullableFloat(strings.TrimSuffix(p.Rate, "%"))
		r.price = r.discounted
	}
	return r
}

func parseNullableFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
