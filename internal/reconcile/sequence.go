package reconcile

import (
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/clock"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
)

// EditResult is the contract's milestone set after an accepted edit.
type EditResult struct {
	// Payments is the full milestone set in milestone order with derived
	// statuses.
	Payments []paymentdomain.Payment
	// Changed lists the milestones whose stored fields must be rewritten,
	// the edited one first.
	Changed []paymentdomain.Payment
	// Reverted is set when the edit removed a completion date and the
	// reversion cascaded to later milestones.
	Reverted bool
}

// CompareMilestones orders milestones by item rank, then scheduled date. IDs
// break remaining ties so the order is stable across calls.
func CompareMilestones(a, b paymentdomain.Payment) int {
	if ra, rb := a.Item.Rank(), b.Item.Rank(); ra != rb {
		return ra - rb
	}
	if c := clock.DateOf(a.ScheduledDate).Compare(clock.DateOf(b.ScheduledDate)); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// SortMilestones returns a sorted copy of milestones.
func SortMilestones(milestones []paymentdomain.Payment) []paymentdomain.Payment {
	sorted := slices.Clone(milestones)
	slices.SortStableFunc(sorted, CompareMilestones)
	return sorted
}

// ApplyMilestoneEdit validates and applies an edit to one milestone of a
// contract.
//
// Completing a milestone is rejected with a *SequenceViolationError while an
// earlier milestone has no completion date; nothing is changed in that case.
// Removing a completion date reverts the edited milestone and every later one:
// their completion and invoice dates are cleared. Any other edit replaces the
// edited milestone only.
func ApplyMilestoneEdit(milestones []paymentdomain.Payment, edited paymentdomain.Payment, today time.Time) (EditResult, error) {
	ordered := SortMilestones(milestones)
	idx := slices.IndexFunc(ordered, func(p paymentdomain.Payment) bool { return p.ID == edited.ID })
	if idx < 0 {
		return EditResult{}, ErrMilestoneNotFound
	}
	original := ordered[idx]
	edited.ContractID = original.ContractID

	// A completed status without a date only completes an open milestone.
	// Clearing the date of a completed one reverts it whatever status is sent.
	completing := edited.CompletionDate != nil ||
		(edited.Status == paymentdomain.StatusCompleted && !original.IsCompleted())
	if completing {
		for _, prior := range ordered[:idx] {
			if !prior.IsCompleted() {
				return EditResult{}, &SequenceViolationError{
					Blocking:   prior.Item,
					BlockingID: prior.ID,
					Target:     original.Item,
				}
			}
		}
		if edited.CompletionDate == nil {
			done := clock.DateOf(today)
			edited.CompletionDate = &done
		}
	}

	reverting := original.IsCompleted() && !edited.IsCompleted()

	next := slices.Clone(ordered)
	var changed []paymentdomain.Payment

	edited.Status = PaymentStatus(edited, today)
	next[idx] = edited
	changed = append(changed, edited)

	if reverting {
		next[idx] = revert(edited, today)
		changed[0] = next[idx]
		for i := idx + 1; i < len(next); i++ {
			p := next[i]
			if p.CompletionDate == nil && p.InvoiceDate == nil {
				continue
			}
			next[i] = revert(p, today)
			changed = append(changed, next[i])
		}
	}

	for i := range next {
		next[i].Status = PaymentStatus(next[i], today)
	}
	slices.SortStableFunc(next, CompareMilestones)

	return EditResult{
		Payments: next,
		Changed:  changed,
		Reverted: reverting,
	}, nil
}

func revert(p paymentdomain.Payment, today time.Time) paymentdomain.Payment {
	p.CompletionDate = nil
	p.InvoiceDate = nil
	p.Status = PaymentStatus(p, today)
	return p
}

// RemoveMilestone drops the milestone with the given id. Deletion skips the
// completion guard and does not cascade to later milestones.
func RemoveMilestone(milestones []paymentdomain.Payment, id snowflake.ID) ([]paymentdomain.Payment, bool) {
	out := make([]paymentdomain.Payment, 0, len(milestones))
	found := false
	for _, p := range milestones {
		if p.ID == id {
			found = true
			continue
		}
		out = append(out, p)
	}
	return out, found
}

// HasItem reports whether any milestone other than exceptID is of kind item.
func HasItem(milestones []paymentdomain.Payment, item paymentdomain.Item, exceptID snowflake.ID) bool {
	return slices.ContainsFunc(milestones, func(p paymentdomain.Payment) bool {
		return p.Item == item && p.ID != exceptID
	})
}
