// Package output turns records into fixed-column rows and writes them as
// CSV files.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sjsage522/pricecrawler/internal/crawler"
)

// bom marks the files as UTF-8 for spreadsheet tools
const bom = "\ufeff"

var (
	comparisonColumns = []string{"name", "link", "priceAndShipping", "firstOfferUrl", "merchant"}
	catalogColumns    = []string{"sourceUrl", "title", "detailUrl", "originalPrice", "discountPrice", "discountRate"}
)

// Columns returns the header of a source kind
func Columns(kind crawler.Kind) []string {
	if kind == crawler.KindComparison {
		return append([]string(nil), comparisonColumns...)
	}
	return append([]string(nil), catalogColumns...)
}

// Values returns the row of rec in column order. Missing fields are empty
// strings.
func Values(kind crawler.Kind, rec crawler.ProductRecord) []string {
	if kind == crawler.KindComparison {
		var amount string
		if p, ok := rec.Price.(crawler.PlainPrice); ok {
			amount = p.Amount
		}
		return []string{rec.Title, rec.DetailURL, amount, rec.ExternalOfferURL, rec.Merchant}
	}

	var original, discounted, rate string
	if p, ok := rec.Price.(crawler.DiscountedPrice); ok {
		original, discounted, rate = p.Original, p.Discounted, p.Rate
	}
	return []string{rec.SourceURL, rec.Title, rec.DetailURL, original, discounted, rate}
}

// Fields returns the row of rec keyed by column name
func Fields(kind crawler.Kind, rec crawler.ProductRecord) map[string]string {
	cols := Columns(kind)
	vals := Values(kind, rec)
	fields := make(map[string]string, len(cols))
	for i, c := range cols {
		fields[c] = vals[i]
	}
	return fields
}

// WriteCSV writes a BOM, the header and one row per record to w
func WriteCSV(w io.Writer, kind crawler.Kind, records []crawler.ProductRecord) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(kind)); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(Values(kind, rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Path returns the CSV file of a source below dir
func Path(dir, source string) string {
	return filepath.Join(dir, source+".csv")
}

// WriteFile writes the records of a source to <dir>/<source>.csv. The file is
// written to a temporary name first so an earlier export is only replaced by
// a complete one.
func WriteFile(dir, source string, kind crawler.Kind, records []crawler.ProductRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+source+"-*.csv")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, kind, records); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", source, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", source, err)
	}

	path := Path(dir, source)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", source, err)
	}
	return path, nil
}
