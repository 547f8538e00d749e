package reconcile

import (
	"slices"
	"time"

	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	"github.com/smallbiznis/milestone/internal/workday"
)

// Direction is the money flow of a payment, inherited from its contract.
type Direction string

const (
	DirectionReceivable Direction = "receivable"
	DirectionPayable    Direction = "payable"
)

func DirectionOf(category contractdomain.Category) Direction {
	if category == contractdomain.CategoryPurchase {
		return DirectionPayable
	}
	return DirectionReceivable
}

type Bucket string

const (
	BucketUrgent    Bucket = "urgent"
	BucketImportant Bucket = "important"
	BucketUpcoming  Bucket = "upcoming"
)

// TriagePolicy holds the business-day windows and high-value threshold.
type TriagePolicy struct {
	UrgentDays         int   `json:"urgent_days"`
	ImportantDays      int   `json:"important_days"`
	UpcomingDays       int   `json:"upcoming_days"`
	HighValueThreshold int64 `json:"high_value_threshold"`
}

func DefaultTriagePolicy() TriagePolicy {
	return TriagePolicy{
		UrgentDays:         1,
		ImportantDays:      5,
		UpcomingDays:       10,
		HighValueThreshold: 10_000_000,
	}
}

// TriageInput is a payment enriched with its direction and display labels.
type TriageInput struct {
	Payment      paymentdomain.Payment `json:"payment"`
	Direction    Direction             `json:"direction"`
	ContractName string                `json:"contract_name,omitempty"`
	ProjectName  string                `json:"project_name,omitempty"`
	CustomerName string                `json:"customer_name,omitempty"`
}

type TriageItem struct {
	TriageInput
	Distance int    `json:"distance"`
	Bucket   Bucket `json:"bucket"`
}

// Board is a read-only snapshot of open payments needing attention.
type Board struct {
	Urgent    []TriageItem `json:"urgent"`
	Important []TriageItem `json:"important"`
	Upcoming  []TriageItem `json:"upcoming"`
	// OpenCount counts every non-completed payment, including the ones too
	// far out to be surfaced.
	OpenCount int `json:"open_count"`
}

// Classify places one open payment in a bucket. ok is false when the payment
// is further out than the upcoming window.
func Classify(p paymentdomain.Payment, distance int, policy TriagePolicy) (Bucket, bool) {
	switch {
	case distance <= policy.UrgentDays:
		return BucketUrgent, true
	case (distance <= policy.ImportantDays && p.InvoiceDate == nil) || p.Amount >= policy.HighValueThreshold:
		return BucketImportant, true
	case distance <= policy.UpcomingDays:
		return BucketUpcoming, true
	default:
		return "", false
	}
}

// Triage buckets every non-completed payment by its business-day distance
// from today. Statuses are re-derived first, so completed payments are skipped
// regardless of their stored status. Each bucket is ordered by distance.
func Triage(items []TriageInput, today time.Time, policy TriagePolicy) Board {
	board := Board{
		Urgent:    []TriageItem{},
		Important: []TriageItem{},
		Upcoming:  []TriageItem{},
	}

	for _, in := range items {
		in.Payment.Status = PaymentStatus(in.Payment, today)
		if in.Payment.Status == paymentdomain.StatusCompleted {
			continue
		}
		board.OpenCount++

		distance := workday.Distance(today, in.Payment.ScheduledDate)
		bucket, ok := Classify(in.Payment, distance, policy)
		if !ok {
			continue
		}

		item := TriageItem{TriageInput: in, Distance: distance, Bucket: bucket}
		switch bucket {
		case BucketUrgent:
			board.Urgent = append(board.Urgent, item)
		case BucketImportant:
			board.Important = append(board.Important, item)
		case BucketUpcoming:
			board.Upcoming = append(board.Upcoming, item)
		}
	}

	for _, bucket := range [][]TriageItem{board.Urgent, board.Important, board.Upcoming} {
		slices.SortStableFunc(bucket, compareTriageItems)
	}
	return board
}

func compareTriageItems(a, b TriageItem) int {
	if a.Distance != b.Distance {
		return a.Distance - b.Distance
	}
	return CompareMilestones(a.Payment, b.Payment)
}

// Sum adds up the amounts of items.
func Sum(items []TriageItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Payment.Amount
	}
	return total
}
