package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/dvloznov/bookkeeper/internal/reconcile"
	"github.com/rs/zerolog"
)

// ReportSource computes reconciliation reports.
type ReportSource interface {
	ProviderReport(ctx context.Context, provider string) (reconcile.Report, error)
	AssociationReport(ctx context.Context) (reconcile.Report, error)
}

// Snapshot is the stored document.
type Snapshot struct {
	Provider    string           `json:"provider,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Report      reconcile.Report `json:"report"`
}

// Exporter recomputes reports and hands them to a Writer.
type Exporter struct {
	reports ReportSource
	writer  Writer
	log     zerolog.Logger
	now     func() time.Time
}

// NewExporter creates a new Exporter.
func NewExporter(reports ReportSource, writer Writer, log zerolog.Logger) *Exporter {
	return &Exporter{
		reports: reports,
		writer:  writer,
		log:     log.With().Str("component", "export").Logger(),
		now:     time.Now,
	}
}

// ObjectName returns the object path of a job's report.
func ObjectName(at time.Time, jobID string) string {
	return fmt.Sprintf("reports/%s/%s.json", at.UTC().Format("2006-01-02"), jobID)
}

// Export writes the report of provider, or the association report when
// provider is empty, under name.
func (e *Exporter) Export(ctx context.Context, provider, name string) (string, error) {
	var (
		report reconcile.Report
		err    error
	)
	if provider == "" {
		report, err = e.reports.AssociationReport(ctx)
	} else {
		report, err = e.reports.ProviderReport(ctx, provider)
	}
	if err != nil {
		return "", fmt.Errorf("compute report: %w", err)
	}

	data, err := json.MarshalIndent(Snapshot{
		Provider:    provider,
		GeneratedAt: e.now().UTC(),
		Report:      report,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	uri, err := e.writer.Write(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	e.log.Info().
		Str("provider", provider).
		Str("uri", uri).
		Int("bytes", len(data)).
		Msg("Report exported")

	return uri, nil
}

// Handle is the queue handler for export jobs.
func (e *Exporter) Handle(ctx context.Context, job *jobs.ExportReportJob) error {
	uri, err := e.Export(ctx, job.Provider, ObjectName(job.CreatedAt, job.JobID))
	if err != nil {
		e.log.Warn().Err(err).Str("job_id", job.JobID).Int("attempt", job.RetryCount+1).Msg("Export failed")
		return err
	}
	job.Output = uri
	return nil
}
