package reconcile

import (
	"context"
	"fmt"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"golang.org/x/sync/errgroup"
)

// PipelineStep represents a single step of a reconciliation request.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Provider string
	Tag      string

	Members   MemberSet
	Invoices  []domain.Invoice
	Statement domain.Statement

	Report   Report
	Overview Overview
}

// FetchMembersStep loads the billing customers flagged as members.
type FetchMembersStep struct {
	Billing BillingSource
}

func (s *FetchMembersStep) Execute(ctx context.Context, state *PipelineState) error {
	customers, err := s.Billing.Customers(ctx)
	if err != nil {
		return domain.Upstream("list customers", err)
	}
	state.Members = NewMemberSet(domain.Members(customers))
	return nil
}

// FetchInvoicesStep loads every paid invoice.
type FetchInvoicesStep struct {
	Billing BillingSource
}

func (s *FetchInvoicesStep) Execute(ctx context.Context, state *PipelineState) error {
	invoices, err := s.Billing.PaidInvoices(ctx)
	if err != nil {
		return domain.Upstream("list invoices", err)
	}
	state.Invoices = invoices
	return nil
}

// FetchStatementStep drains the bank statement.
type FetchStatementStep struct {
	Banking BankingSource
}

func (s *FetchStatementStep) Execute(ctx context.Context, state *PipelineState) error {
	st, err := s.Banking.Statement(ctx)
	if err != nil {
		return domain.Upstream("fetch bank statement", err)
	}
	state.Statement = st
	return nil
}

// ParallelStep runs independent fetch steps concurrently. The first failure
// cancels the others and fails the step. Sub-steps must write disjoint fields.
type ParallelStep struct {
	Steps []PipelineStep
}

func (s *ParallelStep) Execute(ctx context.Context, state *PipelineState) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, step := range s.Steps {
		g.Go(func() error {
			return step.Execute(gctx, state)
		})
	}
	return g.Wait()
}

// ProviderReportStep reconciles state.Provider.
type ProviderReportStep struct {
	Aggregator *Aggregator
}

func (s *ProviderReportStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Report = s.Aggregator.Provider(state.Provider, state.Invoices, state.Statement.Transactions)
	return nil
}

// AssociationReportStep reconciles the association aggregate.
type AssociationReportStep struct {
	Aggregator *Aggregator
}

func (s *AssociationReportStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Report = s.Aggregator.Association(state.Invoices, state.Statement.Transactions)
	return nil
}

// OverviewStep classifies the statement for display.
type OverviewStep struct {
	Aggregator *Aggregator
}

func (s *OverviewStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Overview = s.Aggregator.Overview(state.Statement, state.Members, state.Tag)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially and stops at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
