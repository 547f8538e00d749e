package reconcile

import (
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
)

// ContractMetrics holds the derived contract fields plus the milestones with
// freshly derived statuses. Callers persist both together.
type ContractMetrics struct {
	AccumulatedPayment int64                   `json:"accumulated_payment"`
	Balance            int64                   `json:"balance"`
	RegisteredBalance  int64                   `json:"registered_balance"`
	Status             contractdomain.Status   `json:"status"`
	Payments           []paymentdomain.Payment `json:"payments"`
}

// AggregateContract recomputes every milestone status and the contract's
// accumulated payment, balance, registered balance and status. Balance is
// always >= RegisteredBalance because completed amounts are a subset of all
// registered amounts.
func AggregateContract(c contractdomain.Contract, payments []paymentdomain.Payment, today time.Time) ContractMetrics {
	updated := make([]paymentdomain.Payment, len(payments))
	var completed, registered int64
	for i, p := range payments {
		p.Status = PaymentStatus(p, today)
		updated[i] = p

		registered += p.Amount
		if p.Status == paymentdomain.StatusCompleted {
			completed += p.Amount
		}
	}

	return ContractMetrics{
		AccumulatedPayment: completed,
		Balance:            c.Amount - completed,
		RegisteredBalance:  c.Amount - registered,
		Status:             ContractStatus(c, completed, today),
		Payments:           updated,
	}
}

// Apply copies the derived fields onto c.
func (m ContractMetrics) Apply(c *contractdomain.Contract) {
	c.AccumulatedPayment = m.AccumulatedPayment
	c.Balance = m.Balance
	c.RegisteredBalance = m.RegisteredBalance
	c.Status = m.Status
}

// Recompute returns a copy of c with its derived fields recomputed from
// payments.
func Recompute(c contractdomain.Contract, payments []paymentdomain.Payment, today time.Time) contractdomain.Contract {
	AggregateContract(c, payments, today).Apply(&c)
	return c
}

// RecomputeContracts recomputes the derived fields of every contract from the
// payments that reference it. Payments of unknown contracts are ignored.
func RecomputeContracts(contracts []contractdomain.Contract, payments []paymentdomain.Payment, today time.Time) []contractdomain.Contract {
	byContract := GroupByContract(payments)
	out := make([]contractdomain.Contract, len(contracts))
	for i, c := range contracts {
		out[i] = Recompute(c, byContract[c.ID], today)
	}
	return out
}

// GroupByContract buckets payments by contract id.
func GroupByContract(payments []paymentdomain.Payment) map[snowflake.ID][]paymentdomain.Payment {
	grouped := make(map[snowflake.ID][]paymentdomain.Payment)
	for _, p := range payments {
		grouped[p.ContractID] = append(grouped[p.ContractID], p)
	}
	return grouped
}
