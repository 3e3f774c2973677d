package reconcile

import (
	"fmt"
	"slices"
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// Entry is one line of a merged statement.
type Entry interface {
	EntryDate() time.Time
}

// YearRollup is the revenue and computed tax of one calendar year.
type YearRollup struct {
	Tax   int64 `json:"tax"`
	Total int64 `json:"total"`
}

// Report is the reconciled statement of a provider or of the association.
type Report struct {
	Balance      int64              `json:"balance"`
	BBFees       map[int]YearRollup `json:"bbFees"`
	BBFeeAverage int64              `json:"bbFeeAverage"`
	Transactions []Entry            `json:"transactions"`
}

// Overview is the organization's bank statement, optionally narrowed to a tag.
type Overview struct {
	Balance      int64                   `json:"balance"`
	Transactions []ClassifiedTransaction `json:"transactions"`
}

// AttachmentPath is where a transaction's first attachment is served from.
func AttachmentPath(id string) string {
	return "/bank/attachments/" + id
}

// rollupKey identifies one provider-year accumulator.
type rollupKey struct {
	provider string
	year     int
}

// rollups accumulates net revenue per provider and year. Keys keep insertion
// order so the finalized output does not depend on map iteration.
type rollups struct {
	totals map[rollupKey]int64
	keys   []rollupKey
}

func newRollups() *rollups {
	return &rollups{totals: make(map[rollupKey]int64)}
}

func (r *rollups) add(provider string, year int, net int64) {
	k := rollupKey{provider: provider, year: year}
	if _, ok := r.totals[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.totals[k] += net
}

// ensure registers an empty accumulator so the year shows up in the output.
func (r *rollups) ensure(provider string, year int) {
	r.add(provider, year, 0)
}

// finalize taxes every provider-year separately and folds the results per year.
func (r *rollups) finalize(s Schedule) (byYear map[int]YearRollup, taxTotal, netTotal int64) {
	byYear = make(map[int]YearRollup)
	for _, k := range r.keys {
		net := r.totals[k]
		tax := s.TaxAmount(net)

		y := byYear[k.year]
		y.Tax += tax
		y.Total += net
		byYear[k.year] = y

		taxTotal += tax
		netTotal += net
	}
	return byYear, taxTotal, netTotal
}

// Aggregator reconciles invoice revenue with bank transactions.
type Aggregator struct {
	schedule   Schedule
	classifier *Classifier
	startYear  int
	now        func() time.Time
}

// NewAggregator creates an Aggregator. Provider reports list every year from
// startYear to the current one.
func NewAggregator(schedule Schedule, classifier *Classifier, startYear int) (*Aggregator, error) {
	if err := schedule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tax schedule: %w", err)
	}
	return &Aggregator{
		schedule:   schedule,
		classifier: classifier,
		startYear:  startYear,
		now:        time.Now,
	}, nil
}

// Schedule returns the tax schedule in use.
func (a *Aggregator) Schedule() Schedule {
	return a.schedule
}

// invoiceYear is the calendar year of an invoice, always taken in UTC.
func invoiceYear(inv domain.Invoice) int {
	return inv.Date.UTC().Year()
}

// Provider reconciles one provider: its invoices net of fees and tax against
// the debit transactions whose note names it as claimant.
//
// balance = invoice net - claimed transactions - tax on the provider's yearly revenue.
func (a *Aggregator) Provider(provider string, invoices []domain.Invoice, txs []domain.Transaction) Report {
	acc := newRollups()
	for y := a.startYear; y <= a.now().UTC().Year(); y++ {
		acc.ensure(provider, y)
	}

	var nets []NetInvoice
	for _, inv := range invoices {
		if !inv.Eligible() || inv.Metadata.Provider != provider {
			continue
		}
		n := NewNetInvoice(inv)
		acc.add(provider, invoiceYear(inv), n.Amount)
		nets = append(nets, n)
	}
	bbFees, taxTotal, netTotal := acc.finalize(a.schedule)

	var claimed []domain.Transaction
	for _, tx := range txs {
		if c, ok := claimantOf(tx); ok && c != "" && c == provider {
			claimed = append(claimed, tx)
		}
	}
	classified := a.classifier.ClassifyAll(claimed, nil)

	return Report{
		Balance:      netTotal - sumAmounts(classified) - taxTotal,
		BBFees:       bbFees,
		BBFeeAverage: EffectiveRate(netTotal, taxTotal),
		Transactions: merge(classified, nets),
	}
}

// Association reconciles the association's own revenue: invoices without a
// provider against unclaimed debit transactions. Provider invoices contribute
// only the tax computed on each provider's yearly revenue, owed back to the
// association.
func (a *Aggregator) Association(invoices []domain.Invoice, txs []domain.Transaction) Report {
	acc := newRollups()
	var (
		nets  []NetInvoice
		total int64
	)
	for _, inv := range invoices {
		if !inv.Eligible() {
			continue
		}
		net, _ := ComputeNet(inv)
		if inv.HasProvider() {
			acc.add(inv.Metadata.Provider, invoiceYear(inv), net)
			continue
		}
		nets = append(nets, associationEntry(inv, net))
		total += net
	}
	bbFees, taxTotal, providerTotal := acc.finalize(a.schedule)

	var expenses []domain.Transaction
	for _, tx := range txs {
		if tx.Side == domain.SideDebit && unclaimed(tx) {
			expenses = append(expenses, tx)
		}
	}
	classified := a.classifier.ClassifyAll(expenses, nil)

	return Report{
		Balance:      total - sumAmounts(classified) + taxTotal,
		BBFees:       bbFees,
		BBFeeAverage: EffectiveRate(providerTotal, taxTotal),
		Transactions: merge(classified, nets),
	}
}

// associationEntry labels dues invoices by their period and others by number.
// Fee detail is not shown in the association view.
func associationEntry(inv domain.Invoice, net int64) NetInvoice {
	label := inv.Number
	if inv.Metadata.Cotisation != "" {
		label = "Cotisation " + inv.Metadata.Cotisation
	}
	return NetInvoice{
		Date:   inv.Date,
		Amount: net,
		Label:  label,
		Type:   domain.SideCredit,
		Fees:   []domain.Fee{},
	}
}

// Overview classifies the whole statement. Transactions without a proof get a
// link to their first attachment. With a non-empty tag only transactions
// carrying it are kept and the balance becomes their VAT-exclusive sum,
// credits minus debits; otherwise it is the summed account balance.
func (a *Aggregator) Overview(st domain.Statement, members MemberSet, tag string) Overview {
	classified := make([]ClassifiedTransaction, 0, len(st.Transactions))
	for _, tx := range st.Transactions {
		c := a.classifier.Classify(tx, members)
		if c.Label.Proof == "" {
			if id := tx.FirstAttachment(); id != "" {
				c.Label.Proof = AttachmentPath(id)
			}
		}
		classified = append(classified, c)
	}

	if tag == "" {
		return Overview{Balance: st.BalanceCents, Transactions: classified}
	}

	filtered := []ClassifiedTransaction{}
	var balance int64
	for _, c := range classified {
		if c.Tag == nil || *c.Tag != tag {
			continue
		}
		filtered = append(filtered, c)
		excl := c.Amount - c.VATAmount
		if c.Type == domain.SideCredit {
			balance += excl
		} else {
			balance -= excl
		}
	}
	return Overview{Balance: balance, Transactions: filtered}
}

func sumAmounts(txs []ClassifiedTransaction) int64 {
	var sum int64
	for _, t := range txs {
		sum += t.Amount
	}
	return sum
}

// merge concatenates transactions then invoices and orders them newest first.
// Entries on the same date keep that order.
func merge(txs []ClassifiedTransaction, nets []NetInvoice) []Entry {
	out := make([]Entry, 0, len(txs)+len(nets))
	for _, t := range txs {
		out = append(out, t)
	}
	for _, n := range nets {
		out = append(out, n)
	}
	slices.SortStableFunc(out, func(x, y Entry) int {
		return y.EntryDate().Compare(x.EntryDate())
	})
	return out
}
