package service

import (
	"testing"
	"time"

	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/dashboard/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// portfolio has a finished-but-unpaid sales contract, an undated purchase
// contract and a project that has not started.
func portfolio() ([]projectdomain.Project, []contractdomain.Contract, []paymentdomain.Payment) {
	projects := []projectdomain.Project{
		{ID: 1, Name: "Fare system", StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31)},
		{ID: 2, Name: "Next year", StartDate: date(2027, 1, 1)},
	}
	contracts := []contractdomain.Contract{
		{ID: 10, ProjectID: 1, Category: contractdomain.CategorySales, Amount: 1_000_000, StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31), Status: contractdomain.StatusClosed},
		{ID: 11, ProjectID: 1, Category: contractdomain.CategoryPurchase, Amount: 400_000},
	}
	payments := []paymentdomain.Payment{
		{ID: 100, ContractID: 10, Item: paymentdomain.ItemDeposit, Amount: 300_000, ScheduledDate: *date(2025, 2, 1), CompletionDate: date(2025, 2, 1)},
		{ID: 101, ContractID: 10, Item: paymentdomain.ItemProgress, Amount: 200_000, ScheduledDate: *date(2026, 2, 10), InvoiceDate: date(2026, 2, 9)},
		{ID: 102, ContractID: 10, Item: paymentdomain.ItemFinalBalance, Amount: 500_000, ScheduledDate: *date(2026, 4, 15)},
		{ID: 110, ContractID: 11, Item: paymentdomain.ItemDeposit, Amount: 100_000, ScheduledDate: *date(2025, 6, 1), CompletionDate: date(2025, 6, 1)},
		{ID: 111, ContractID: 11, Item: paymentdomain.ItemFinalBalance, Amount: 300_000, ScheduledDate: *date(2026, 3, 1)},
	}
	return projects, contracts, payments
}

func TestSummarizeTotals(t *testing.T) {
	projects, contracts, payments := portfolio()
	s := Summarize(projects, contracts, payments, today)

	assert.Equal(t, int64(1_000_000), s.TotalSales)
	assert.Equal(t, int64(400_000), s.TotalPurchases)
	assert.Equal(t, int64(600_000), s.Margin)
	assert.InDelta(t, 60.0, s.MarginRate, 1e-9)
	assert.Equal(t, int64(300_000), s.Collected)
	assert.InDelta(t, 30.0, s.CollectionRate, 1e-9)
	assert.Equal(t, int64(100_000), s.Paid)
	assert.Equal(t, int64(300_000), s.Unpaid)

	assert.Equal(t, domain.Pipeline{Scheduled: 500_000, Invoiced: 200_000, Completed: 300_000, Total: 1_000_000}, s.Pipeline)
	assert.Equal(t, 1, s.OverduePayments)
	assert.Equal(t, 0, s.InProgressContracts)
}

func TestSummarizeStatusDistribution(t *testing.T) {
	projects, contracts, payments := portfolio()
	s := Summarize(projects, contracts, payments, today)

	assert.Equal(t, 2, s.ProjectCount)
	assert.Equal(t, []domain.StatusCount{
		{Status: "preparing", Count: 1},
		{Status: "in_progress", Count: 0},
		{Status: "delayed", Count: 1},
		{Status: "completed", Count: 0},
	}, s.ProjectStatus)
	assert.Equal(t, []domain.StatusCount{
		{Status: "preparing", Count: 1},
		{Status: "contracted", Count: 0},
		{Status: "in_progress", Count: 0},
		{Status: "completed_unpaid", Count: 1},
		{Status: "closed", Count: 0},
	}, s.ContractStatus)
}

func TestSummarizeCashFlowWindow(t *testing.T) {
	projects, contracts, payments := portfolio()
	s := Summarize(projects, contracts, payments, today)

	require.Len(t, s.CashFlow, domain.TrendMonths)
	assert.Equal(t, "2025-03", s.CashFlow[0].Month)
	assert.Equal(t, "2026-05", s.CashFlow[14].Month)

	assert.Equal(t, domain.MonthFlow{Month: "2025-06", Purchases: 100_000}, s.CashFlow[3])
	assert.Equal(t, domain.MonthFlow{Month: "2026-02", Sales: 200_000}, s.CashFlow[11])
	assert.Equal(t, domain.MonthFlow{Month: "2026-03", Purchases: 300_000}, s.CashFlow[12])
	assert.Equal(t, domain.MonthFlow{Month: "2026-04", Sales: 500_000}, s.CashFlow[13])

	// The February 2025 deposit falls before the window.
	var sales int64
	for _, m := range s.CashFlow {
		sales += m.Sales
	}
	assert.Equal(t, int64(700_000), sales)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil, nil, today)

	assert.Zero(t, s.MarginRate)
	assert.Zero(t, s.CollectionRate)
	require.Len(t, s.CashFlow, domain.TrendMonths)
	assert.Equal(t, "2025-02", s.CashFlow[0].Month)
	assert.Equal(t, "2026-04", s.CashFlow[14].Month)
}
