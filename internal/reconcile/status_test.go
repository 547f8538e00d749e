package reconcile

import (
	"testing"
	"time"

	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus(t *testing.T) {
	yesterday := daysFromToday(-1)

	cases := []struct {
		name string
		p    paymentdomain.Payment
		want paymentdomain.Status
	}{
		{
			name: "overdue",
			p:    paymentdomain.Payment{ScheduledDate: yesterday},
			want: paymentdomain.StatusOverdue,
		},
		{
			name: "invoice_beats_lateness",
			p:    paymentdomain.Payment{ScheduledDate: yesterday, InvoiceDate: datePtr(yesterday)},
			want: paymentdomain.StatusInvoiced,
		},
		{
			name: "completion_beats_invoice",
			p: paymentdomain.Payment{
				ScheduledDate:  yesterday,
				InvoiceDate:    datePtr(yesterday),
				CompletionDate: datePtr(today),
			},
			want: paymentdomain.StatusCompleted,
		},
		{
			name: "due_today_is_scheduled",
			p:    paymentdomain.Payment{ScheduledDate: today},
			want: paymentdomain.StatusScheduled,
		},
		{
			name: "future",
			p:    paymentdomain.Payment{ScheduledDate: daysFromToday(3)},
			want: paymentdomain.StatusScheduled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PaymentStatus(tc.p, today))
		})
	}
}

func TestPaymentStatusComparesCalendarDates(t *testing.T) {
	p := paymentdomain.Payment{ScheduledDate: today}
	lateEvening := today.Add(23 * time.Hour)
	assert.Equal(t, paymentdomain.StatusScheduled, PaymentStatus(p, lateEvening))
}

func TestContractStatus(t *testing.T) {
	cases := []struct {
		name      string
		contract  contractdomain.Contract
		completed int64
		want      contractdomain.Status
	}{
		{
			name:      "closed_when_fully_paid",
			contract:  contractdomain.Contract{Amount: 1000, EndDate: datePtr(daysFromToday(-10))},
			completed: 1000,
			want:      contractdomain.StatusClosed,
		},
		{
			name:      "completed_unpaid_after_end",
			contract:  contractdomain.Contract{Amount: 1000, StartDate: datePtr(daysFromToday(-40)), EndDate: datePtr(daysFromToday(-1))},
			completed: 400,
			want:      contractdomain.StatusCompletedUnpaid,
		},
		{
			name:      "in_progress_inclusive_start",
			contract:  contractdomain.Contract{Amount: 1000, StartDate: datePtr(today), EndDate: datePtr(daysFromToday(5))},
			completed: 0,
			want:      contractdomain.StatusInProgress,
		},
		{
			name:      "in_progress_inclusive_end",
			contract:  contractdomain.Contract{Amount: 1000, StartDate: datePtr(daysFromToday(-5)), EndDate: datePtr(today)},
			completed: 0,
			want:      contractdomain.StatusInProgress,
		},
		{
			name:      "contracted_before_start",
			contract:  contractdomain.Contract{Amount: 1000, SignedDate: datePtr(daysFromToday(-3)), StartDate: datePtr(daysFromToday(2))},
			completed: 0,
			want:      contractdomain.StatusContracted,
		},
		{
			name:      "contracted_without_start",
			contract:  contractdomain.Contract{Amount: 1000, SignedDate: datePtr(daysFromToday(-3))},
			completed: 0,
			want:      contractdomain.StatusContracted,
		},
		{
			name:      "preparing",
			contract:  contractdomain.Contract{Amount: 1000},
			completed: 0,
			want:      contractdomain.StatusPreparing,
		},
		{
			name:      "zero_amount_never_closes",
			contract:  contractdomain.Contract{Amount: 0},
			completed: 0,
			want:      contractdomain.StatusPreparing,
		},
		{
			name:      "zero_amount_after_end_stays_date_driven",
			contract:  contractdomain.Contract{Amount: 0, StartDate: datePtr(daysFromToday(-5)), EndDate: datePtr(daysFromToday(5))},
			completed: 0,
			want:      contractdomain.StatusInProgress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ContractStatus(tc.contract, tc.completed, today))
		})
	}
}

func TestProjectStatus(t *testing.T) {
	closed := contractdomain.Contract{Status: contractdomain.StatusClosed}
	open := contractdomain.Contract{Status: contractdomain.StatusInProgress}
	passed := projectdomain.Project{StartDate: datePtr(daysFromToday(-90)), EndDate: datePtr(daysFromToday(-1))}

	cases := []struct {
		name      string
		project   projectdomain.Project
		contracts []contractdomain.Contract
		want      projectdomain.Status
	}{
		{
			name:      "completed",
			project:   passed,
			contracts: []contractdomain.Contract{closed, closed},
			want:      projectdomain.StatusCompleted,
		},
		{
			name:      "delayed_with_open_contract",
			project:   passed,
			contracts: []contractdomain.Contract{closed, open},
			want:      projectdomain.StatusDelayed,
		},
		{
			name:      "delayed_without_contracts",
			project:   passed,
			contracts: nil,
			want:      projectdomain.StatusDelayed,
		},
		{
			name:    "preparing",
			project: projectdomain.Project{StartDate: datePtr(daysFromToday(1))},
			want:    projectdomain.StatusPreparing,
		},
		{
			name:      "in_progress_when_closed_but_period_running",
			project:   projectdomain.Project{StartDate: datePtr(daysFromToday(-1)), EndDate: datePtr(today)},
			contracts: []contractdomain.Contract{closed},
			want:      projectdomain.StatusInProgress,
		},
		{
			name:    "in_progress_without_dates",
			project: projectdomain.Project{},
			want:    projectdomain.StatusInProgress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProjectStatus(tc.project, tc.contracts, today))
		})
	}
}
