package reconcile

import (
	"time"

	"github.com/smallbiznis/milestone/internal/clock"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
)

// PaymentStatus derives a milestone status. Completion wins over invoicing,
// and invoicing wins over lateness.
func PaymentStatus(p paymentdomain.Payment, today time.Time) paymentdomain.Status {
	switch {
	case p.CompletionDate != nil:
		return paymentdomain.StatusCompleted
	case p.InvoiceDate != nil:
		return paymentdomain.StatusInvoiced
	case clock.DateOf(p.ScheduledDate).Before(clock.DateOf(today)):
		return paymentdomain.StatusOverdue
	default:
		return paymentdomain.StatusScheduled
	}
}

// ContractStatus derives a contract status from its dates and the sum of its
// completed milestone amounts. A zero-amount contract is never Closed.
func ContractStatus(c contractdomain.Contract, completedSum int64, today time.Time) contractdomain.Status {
	today = clock.DateOf(today)
	balance := c.Amount - completedSum

	if c.Amount > 0 && balance <= 0 {
		return contractdomain.StatusClosed
	}
	if c.EndDate != nil && today.After(clock.DateOf(*c.EndDate)) && balance > 0 {
		return contractdomain.StatusCompletedUnpaid
	}
	if c.StartDate != nil && c.EndDate != nil &&
		!today.Before(clock.DateOf(*c.StartDate)) && !today.After(clock.DateOf(*c.EndDate)) {
		return contractdomain.StatusInProgress
	}
	if c.SignedDate != nil && (c.StartDate == nil || today.Before(clock.DateOf(*c.StartDate))) {
		return contractdomain.StatusContracted
	}
	return contractdomain.StatusPreparing
}

// ProjectStatus derives a project status from its period and the statuses of
// its contracts. Contract statuses must already be derived. A project without
// contracts whose period has passed is Delayed, never Completed.
func ProjectStatus(p projectdomain.Project, contracts []contractdomain.Contract, today time.Time) projectdomain.Status {
	today = clock.DateOf(today)

	allClosed := len(contracts) > 0
	for _, c := range contracts {
		if c.Status != contractdomain.StatusClosed {
			allClosed = false
			break
		}
	}
	periodPassed := p.EndDate != nil && today.After(clock.DateOf(*p.EndDate))
	notStarted := p.StartDate != nil && today.Before(clock.DateOf(*p.StartDate))

	switch {
	case allClosed && periodPassed:
		return projectdomain.StatusCompleted
	case periodPassed:
		return projectdomain.StatusDelayed
	case notStarted:
		return projectdomain.StatusPreparing
	default:
		return projectdomain.StatusInProgress
	}
}
