package domain

import "context"

// TrendMonths is the length of the cash-flow window.
const TrendMonths = 15

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// MonthFlow sums scheduled milestone amounts of one calendar month.
type MonthFlow struct {
	Month     string `json:"month"`
	Sales     int64  `json:"sales"`
	Purchases int64  `json:"purchases"`
}

// Pipeline splits sales milestone amounts by collection stage. Scheduled
// includes overdue milestones.
type Pipeline struct {
	Scheduled int64 `json:"scheduled"`
	Invoiced  int64 `json:"invoiced"`
	Completed int64 `json:"completed"`
	Total     int64 `json:"total"`
}

// Summary is the headline view of the whole portfolio. Rates are percentages.
type Summary struct {
	TotalSales          int64         `json:"total_sales"`
	TotalPurchases      int64         `json:"total_purchases"`
	Margin              int64         `json:"margin"`
	MarginRate          float64       `json:"margin_rate"`
	Collected           int64         `json:"collected"`
	Paid                int64         `json:"paid"`
	Unpaid              int64         `json:"unpaid"`
	CollectionRate      float64       `json:"collection_rate"`
	ProjectCount        int           `json:"project_count"`
	ProjectStatus       []StatusCount `json:"project_status"`
	ContractStatus      []StatusCount `json:"contract_status"`
	CashFlow            []MonthFlow   `json:"cash_flow"`
	Pipeline            Pipeline      `json:"pipeline"`
	OverduePayments     int           `json:"overdue_payments"`
	InProgressContracts int           `json:"in_progress_contracts"`
}

type Service interface {
	Summary(ctx context.Context) (Summary, error)
}
