package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricecrawler/internal/crawler"
)

func ptr(f float64) *float64 { return &f }

func TestNewRow(t *testing.T) {
	tests := []struct {
		name string
		rec  crawler.ProductRecord
		want row
	}{
		{
			name: "plain price",
			rec:  crawler.ProductRecord{Price: crawler.PlainPrice{Amount: "1299.00", Text: "1.299,00 €"}},
			want: row{price: ptr(1299), priceText: "1.299,00 €"},
		},
		{
			name: "discounted price",
			rec:  crawler.ProductRecord{Price: crawler.DiscountedPrice{Original: "199.00", Discounted: "149.00", Rate: "25.13%"}},
			want: row{price: ptr(149), original: ptr(199), discounted: ptr(149), rate: ptr(25.13)},
		},
		{
			name: "no price",
			rec:  crawler.ProductRecord{},
			want: row{},
		},
		{
			name: "unparseable amount",
			rec:  crawler.ProductRecord{Price: crawler.PlainPrice{Amount: "n/a", Text: "n/a"}},
			want: row{priceText: "n/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newRow(tt.rec))
		})
	}
}

func TestTableName(t *testing.T) {
	s := &PostgresStore{schema: "prices"}
	assert.Equal(t, `"prices"."price_records"`, s.table())
}

// This test requires a running Postgres reachable through
// PRICECRAWLER_TEST_POSTGRES_DSN; it is skipped otherwise
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PRICECRAWLER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PRICECRAWLER_TEST_POSTGRES_DSN not set, skipping test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewPostgresStore(ctx, dsn, "pricecrawler_test")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	runID := uuid.New()
	records := []crawler.ProductRecord{
		{Title: "Balkonkraftwerk 800W", DetailURL: "https://kleineskraftwerk.de/products/800w",
			Price: crawler.DiscountedPrice{Original: "199.00", Discounted: "149.00", Rate: "25.13%"}},
		{Title: "ohne Link"},
		{Title: "Balkonkraftwerk 600W", DetailURL: "https://kleineskraftwerk.de/products/600w"},
	}

	n, err := s.Save(ctx, runID, "kleineskraftwerk", records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Save(ctx, runID, "kleineskraftwerk", records)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "rows of the same run are not inserted twice")
}
