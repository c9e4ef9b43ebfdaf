// Package aggregate merges the outcomes of one crawl into the flat record
// sequence that gets written out, plus per-listing groups for reporting.
package aggregate

import (
	"sjsage522/pricecrawler/internal/crawler"
)

// Group is the records found on one listing page
type Group struct {
	ListingURL string
	Records    []crawler.ProductRecord
}

// Failure is a page that could not be fetched
type Failure struct {
	Stage string
	URL   string
	Err   error
}

// Report is the merged result of a crawl
type Report struct {
	Source string
	Kind   crawler.Kind

	// Records holds every product once, in first-seen order
	Records []crawler.ProductRecord

	// Groups follows the configured listing order. Listings without
	// products are omitted.
	Groups []Group

	Failures []Failure

	// Pages is the number of configured listing pages
	Pages int
}

// Aggregate deduplicates the detail outcomes by detail URL, keeping the
// first occurrence, and groups them by the listing page they came from.
func Aggregate(res *crawler.Result) *Report {
	r := &Report{
		Source: res.Source.Name,
		Kind:   res.Source.Kind,
		Pages:  len(res.Listings),
	}

	for _, l := range res.Listings {
		if l.Err != nil {
			r.Failures = append(r.Failures, Failure{Stage: "listing", URL: l.URL, Err: l.Err})
		}
	}

	seen := make(map[string]struct{}, len(res.Details))
	for _, d := range res.Details {
		rec := d.Record
		if rec.DetailURL != "" {
			if _, dup := seen[rec.DetailURL]; dup {
				continue
			}
			seen[rec.DetailURL] = struct{}{}
		}
		if d.Err != nil {
			r.Failures = append(r.Failures, Failure{Stage: "detail", URL: rec.DetailURL, Err: d.Err})
		}
		r.Records = append(r.Records, rec)
	}

	r.Groups = group(res.Listings, r.Records)
	return r
}

// group buckets records by SourceURL in listing order. Records whose
// listing is unknown end up in a trailing group.
func group(listings []crawler.ListingOutcome, records []crawler.ProductRecord) []Group {
	index := make(map[string]int, len(listings))
	groups := make([]Group, 0, len(listings))
	for _, l := range listings {
		if _, ok := index[l.URL]; ok {
			continue
		}
		index[l.URL] = len(groups)
		groups = append(groups, Group{ListingURL: l.URL})
	}

	for _, rec := range records {
		i, ok := index[rec.SourceURL]
		if !ok {
			i = len(groups)
			index[rec.SourceURL] = i
			groups = append(groups, Group{ListingURL: rec.SourceURL})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Records) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Count returns the number of distinct records
func (r *Report) Count() int {
	return len(r.Records)
}

// Enriched returns the number of records that got a price
func (r *Report) Enriched() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Price != nil {
			n++
		}
	}
	return n
}

// Run sums up several reports
type Run struct {
	Reports []*Report
}

// Total returns the record count across all reports
func (run *Run) Total() int {
	n := 0
	for _, r := range run.Reports {
		n += r.Count()
	}
	return n
}

// PerSource returns the record count of each source in report order
func (run *Run) PerSource() map[string]int {
	counts := make(map[string]int, len(run.Reports))
	for _, r := range run.Reports {
		counts[r.Source] += r.Count()
	}
	return counts
}
