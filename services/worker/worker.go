package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"sjsage522/pricecrawler/internal/aggregate"
	"sjsage522/pricecrawler/internal/crawler"
	"sjsage522/pricecrawler/internal/output"
	"sjsage522/pricecrawler/logger"
	"sjsage522/pricecrawler/pkg/errors"
	"sjsage522/pricecrawler/services/publisher"
	"sjsage522/pricecrawler/services/store"
)

// Runner crawls one source
type Runner interface {
	Crawl(ctx context.Context) (*crawler.Result, error)
}

// Job is one selected source. Err is set when the source could not be
// configured; the job then fails without crawling.
type Job struct {
	Name   string
	Runner Runner
	Err    error
}

// Options configures the sinks of a worker. Publisher and Store are
// optional.
type Options struct {
	OutputDir string
	Publisher publisher.Publisher
	Store     store.Store
}

// Worker runs the selected sources one after another and writes their
// records to every configured sink
type Worker struct {
	outputDir string
	publisher publisher.Publisher
	store     store.Store
	log       *logger.Logger

	newRunID func() uuid.UUID
	now      func() time.Time
}

// NewWorker creates a new worker
func NewWorker(opts Options) *Worker {
	return &Worker{
		outputDir: opts.OutputDir,
		publisher: opts.Publisher,
		store:     opts.Store,
		log:       logger.ForWorker(),
		newRunID:  uuid.New,
		now:       time.Now,
	}
}

// Run crawls the jobs in order. After an interrupt the remaining jobs are
// skipped.
func (w *Worker) Run(ctx context.Context, jobs []Job) *Summary {
	start := w.now()
	summary := &Summary{RunID: w.newRunID()}
	log := w.log.WithField("run_id", summary.RunID.String())

	for _, job := range jobs {
		if summary.Interrupted {
			summary.Results = append(summary.Results, SourceResult{Name: job.Name, Status: StatusSkipped})
			continue
		}

		log.Info().Str("source", job.Name).Msg("Starting crawler")
		res := w.runJob(ctx, summary.RunID, job)
		summary.Results = append(summary.Results, res)

		switch res.Status {
		case StatusInterrupted:
			summary.Interrupted = true
			log.Warn().Str("source", job.Name).Msg("Interrupted by operator")
		case StatusFailed:
			log.Error().Err(res.Err).Str("source", job.Name).Msg("Crawler failed")
		default:
			log.Info().
				Str("source", job.Name).
				Int("records", res.Records).
				Int("failures", res.Failures).
				Str("file", res.Path).
				Msg("Crawler finished")
		}
	}

	if w.publisher != nil && !summary.Interrupted {
		if err := w.publisher.TrimStreams(ctx); err != nil {
			logger.LogError("StreamTrimming", err, "Failed to trim streams")
		}
	}

	summary.Elapsed = w.now().Sub(start)
	return summary
}

// runJob crawls one source and writes its records. Only the CSV export can
// fail a source; the stream and the archive are best effort.
func (w *Worker) runJob(ctx context.Context, runID uuid.UUID, job Job) SourceResult {
	res := SourceResult{Name: job.Name}
	if job.Err != nil {
		res.Status, res.Err = StatusFailed, job.Err
		return res
	}

	result, err := job.Runner.Crawl(ctx)
	if err != nil {
		res.Err = err
		res.Status = StatusFailed
		if errors.IsInterrupted(err) || ctx.Err() != nil {
			res.Status = StatusInterrupted
		}
		return res
	}

	report := aggregate.Aggregate(result)
	res.Records = report.Count()
	res.Failures = len(report.Failures)
	w.logReport(report)

	if report.Count() == 0 {
		w.log.Warn().Str("source", job.Name).Msg("No products to save")
		res.Status = StatusSuccess
		return res
	}

	path, err := output.WriteFile(w.outputDir, job.Name, report.Kind, report.Records)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	res.Path = path
	res.Status = StatusSuccess

	w.publish(ctx, runID, report)
	w.archive(ctx, runID, report)
	return res
}

// logReport logs the records of every listing page in listing order
func (w *Worker) logReport(r *aggregate.Report) {
	log := logger.ForCrawler(r.Source)
	for _, g := range r.Groups {
		log.Info().Str("listing", g.ListingURL).Int("records", len(g.Records)).Msg("Products of listing")
		if !logger.IsDebugEnabled() {
			continue
		}
		for _, rec := range g.Records {
			fields := make(map[string]interface{})
			for k, v := range output.Fields(r.Kind, rec) {
				fields[k] = v
			}
			log.Debug().Fields(fields).Msg("Product")
		}
	}
	for _, f := range r.Failures {
		log.Debug().Err(f.Err).Str("stage", f.Stage).Str("url", f.URL).Msg("Page failed")
	}
	log.Info().
		Int("records", r.Count()).
		Int("enriched", r.Enriched()).
		Int("pages", r.Pages).
		Msg("Crawl complete")
}

// message is the JSON published per record
type message struct {
	RunID     string            `json:"run_id"`
	Source    string            `json:"source"`
	CrawledAt time.Time         `json:"crawled_at"`
	Fields    map[string]string `json:"fields"`
}

func (w *Worker) publish(ctx context.Context, runID uuid.UUID, r *aggregate.Report) {
	if w.publisher == nil {
		return
	}

	crawledAt := w.now().UTC()
	messages := make([][]byte, 0, len(r.Records))
	for _, rec := range r.Records {
		data, err := json.Marshal(message{
			RunID:     runID.String(),
			Source:    r.Source,
			CrawledAt: crawledAt,
			Fields:    output.Fields(r.Kind, rec),
		})
		if err != nil {
			logger.LogError(r.Source, err, "Failed to encode record")
			continue
		}
		messages = append(messages, data)
	}

	if err := w.publisher.Publish(ctx, r.Source, messages...); err != nil {
		logger.LogError(r.Source, err, "Failed to publish records")
	}
}

func (w *Worker) archive(ctx context.Context, runID uuid.UUID, r *aggregate.Report) {
	if w.store == nil {
		return
	}
	n, err := w.store.Save(ctx, runID, r.Source, r.Records)
	if err != nil {
		logger.LogError(r.Source, err, "Failed to archive records")
		return
	}
	logger.ForSink("postgres").Debug().Str("source", r.Source).Int("rows", n).Msg("Records archived")
}
