package reconcile

import (
	"context"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/rs/zerolog"
)

// Service answers reconciliation requests. Every call refetches from the
// upstream sources; nothing is cached between calls.
type Service struct {
	banking    BankingSource
	billing    BillingSource
	aggregator *Aggregator
	log        zerolog.Logger
}

// NewService creates a new reconciliation Service.
func NewService(banking BankingSource, billing BillingSource, aggregator *Aggregator, log zerolog.Logger) *Service {
	return &Service{
		banking:    banking,
		billing:    billing,
		aggregator: aggregator,
		log:        log,
	}
}

// Overview returns the classified bank statement, narrowed to tag when non-empty.
func (s *Service) Overview(ctx context.Context, tag string) (Overview, error) {
	state := &PipelineState{Tag: tag}
	p := NewPipeline(
		&ParallelStep{Steps: []PipelineStep{
			&FetchMembersStep{Billing: s.billing},
			&FetchStatementStep{Banking: s.banking},
		}},
		&OverviewStep{Aggregator: s.aggregator},
	)
	if err := p.Execute(ctx, state); err != nil {
		return Overview{}, err
	}
	s.log.Debug().
		Str("tag", tag).
		Int("transactions", len(state.Overview.Transactions)).
		Msg("Built bank overview")
	return state.Overview, nil
}

// ProviderReport reconciles a single provider.
func (s *Service) ProviderReport(ctx context.Context, provider string) (Report, error) {
	state := &PipelineState{Provider: provider}
	p := NewPipeline(
		s.fetchLedger(),
		&ProviderReportStep{Aggregator: s.aggregator},
	)
	if err := p.Execute(ctx, state); err != nil {
		return Report{}, err
	}
	s.log.Debug().
		Str("provider", provider).
		Int64("balance", state.Report.Balance).
		Msg("Reconciled provider")
	return state.Report, nil
}

// AssociationReport reconciles the association aggregate.
func (s *Service) AssociationReport(ctx context.Context) (Report, error) {
	state := &PipelineState{}
	p := NewPipeline(
		s.fetchLedger(),
		&AssociationReportStep{Aggregator: s.aggregator},
	)
	if err := p.Execute(ctx, state); err != nil {
		return Report{}, err
	}
	s.log.Debug().
		Int64("balance", state.Report.Balance).
		Msg("Reconciled association")
	return state.Report, nil
}

// Rates returns the tax schedule.
func (s *Service) Rates() Schedule {
	return s.aggregator.Schedule()
}

// AttachmentURL resolves a bank attachment to its download URL.
func (s *Service) AttachmentURL(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", domain.Invalid("Not valid attachmentId")
	}
	url, err := s.banking.AttachmentURL(ctx, id)
	if err != nil {
		return "", domain.Upstream("get attachment", err)
	}
	return url, nil
}

// fetchLedger loads invoices and the bank statement together, all or nothing.
func (s *Service) fetchLedger() PipelineStep {
	return &ParallelStep{Steps: []PipelineStep{
		&FetchInvoicesStep{Billing: s.billing},
		&FetchStatementStep{Banking: s.banking},
	}}
}
