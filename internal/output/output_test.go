package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricecrawler/internal/crawler"
)

func TestWriteCSVComparison(t *testing.T) {
	records := []crawler.ProductRecord{
		{
			Title:            "Anker SOLIX Solarbank 2 Pro, 1,6 kWh",
			DetailURL:        "https://www.idealo.de/preisvergleich/OffersOfProduct/123",
			Price:            crawler.PlainPrice{Amount: "1299.00", Text: "1.299,00 €"},
			ExternalOfferURL: "https://cheapgear.com/p/1",
			Merchant:         "cheapgear",
		},
		{
			Title:     "Anker SOLIX Solarbank 2 AC",
			DetailURL: "https://www.idealo.de/preisvergleich/OffersOfProduct/456",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, crawler.KindComparison, records))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, "\ufeff"), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,link,priceAndShipping,firstOfferUrl,merchant", lines[0])
	assert.Equal(t, `"Anker SOLIX Solarbank 2 Pro, 1,6 kWh",https://www.idealo.de/preisvergleich/OffersOfProduct/123,1299.00,https://cheapgear.com/p/1,cheapgear`, lines[1])
	assert.Equal(t, "Anker SOLIX Solarbank 2 AC,https://www.idealo.de/preisvergleich/OffersOfProduct/456,,,", lines[2])
}

func TestValuesCatalog(t *testing.T) {
	rec := crawler.ProductRecord{
		Title:     "Balkonkraftwerk 800W",
		DetailURL: "https://kleineskraftwerk.de/products/800w",
		SourceURL: "https://kleineskraftwerk.de/collections/garten",
		Price:     crawler.DiscountedPrice{Original: "199.00", Discounted: "149.00", Rate: "25.13%"},
	}
	assert.Equal(t, []string{
		"https://kleineskraftwerk.de/collections/garten",
		"Balkonkraftwerk 800W",
		"https://kleineskraftwerk.de/products/800w",
		"199.00", "149.00", "25.13%",
	}, Values(crawler.KindCatalog, rec))

	rec.Price = nil
	assert.Equal(t, []string{"", "", ""}, Values(crawler.KindCatalog, rec)[3:])

	// a price of the other kind is not mixed into the columns
	rec.Price = crawler.PlainPrice{Amount: "1.00"}
	assert.Equal(t, []string{"", "", ""}, Values(crawler.KindCatalog, rec)[3:])
}

func TestFields(t *testing.T) {
	f := Fields(crawler.KindComparison, crawler.ProductRecord{Title: "Solarbank", Merchant: "example"})
	assert.Equal(t, map[string]string{
		"name":             "Solarbank",
		"link":             "",
		"priceAndShipping": "",
		"firstOfferUrl":    "",
		"merchant":         "example",
	}, f)
}

func TestColumnsAreCopies(t *testing.T) {
	cols := Columns(crawler.KindCatalog)
	cols[0] = "changed"
	assert.Equal(t, "sourceUrl", Columns(crawler.KindCatalog)[0])
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	records := []crawler.ProductRecord{{Title: "Produkt", DetailURL: "https://priwatt.de/p/"}}

	path, err := WriteFile(dir, "priwatt", crawler.KindCatalog, records)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "priwatt.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sourceUrl,title,detailUrl")
	assert.Contains(t, string(data), "Produkt,https://priwatt.de/p/")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}
