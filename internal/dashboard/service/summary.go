package service

import (
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	"github.com/smallbiznis/milestone/internal/dashboard/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
)

var projectStatuses = []projectdomain.Status{
	projectdomain.StatusPreparing,
	projectdomain.StatusInProgress,
	projectdomain.StatusDelayed,
	projectdomain.StatusCompleted,
}

var contractStatuses = []contractdomain.Status{
	contractdomain.StatusPreparing,
	contractdomain.StatusContracted,
	contractdomain.StatusInProgress,
	contractdomain.StatusCompletedUnpaid,
	contractdomain.StatusClosed,
}

// Summarize derives every status from the raw rows before aggregating, so
// stored derived fields are never trusted. Payments of unknown contracts only
// count towards the cash-flow window bounds.
func Summarize(projects []projectdomain.Project, contracts []contractdomain.Contract, payments []paymentdomain.Payment, today time.Time) domain.Summary {
	for i := range payments {
		payments[i].Status = reconcile.PaymentStatus(payments[i], today)
	}
	contracts = reconcile.RecomputeContracts(contracts, payments, today)

	categories := make(map[snowflake.ID]contractdomain.Category, len(contracts))
	byProject := make(map[snowflake.ID][]contractdomain.Contract)
	var s domain.Summary
	contractCounts := make(map[contractdomain.Status]int)
	for _, c := range contracts {
		categories[c.ID] = c.Category
		byProject[c.ProjectID] = append(byProject[c.ProjectID], c)
		contractCounts[c.Status]++

		switch c.Category {
		case contractdomain.CategorySales:
			s.TotalSales += c.Amount
		case contractdomain.CategoryPurchase:
			s.TotalPurchases += c.Amount
		}
	}

	for _, p := range payments {
		if p.Status == paymentdomain.StatusOverdue {
			s.OverduePayments++
		}
		switch categories[p.ContractID] {
		case contractdomain.CategorySales:
			switch p.Status {
			case paymentdomain.StatusCompleted:
				s.Collected += p.Amount
				s.Pipeline.Completed += p.Amount
			case paymentdomain.StatusInvoiced:
				s.Pipeline.Invoiced += p.Amount
			default:
				s.Pipeline.Scheduled += p.Amount
			}
		case contractdomain.CategoryPurchase:
			if p.Status == paymentdomain.StatusCompleted {
				s.Paid += p.Amount
			}
		}
	}
	s.Pipeline.Total = s.Pipeline.Scheduled + s.Pipeline.Invoiced + s.Pipeline.Completed

	s.Margin = s.TotalSales - s.TotalPurchases
	s.Unpaid = s.TotalPurchases - s.Paid
	s.MarginRate = percent(s.Margin, s.TotalSales)
	s.CollectionRate = percent(s.Collected, s.TotalSales)

	projectCounts := make(map[projectdomain.Status]int)
	for _, p := range projects {
		projectCounts[reconcile.ProjectStatus(p, byProject[p.ID], today)]++
	}
	s.ProjectCount = len(projects)
	s.ProjectStatus = make([]domain.StatusCount, 0, len(projectStatuses))
	for _, status := range projectStatuses {
		s.ProjectStatus = append(s.ProjectStatus, domain.StatusCount{Status: string(status), Count: projectCounts[status]})
	}
	s.ContractStatus = make([]domain.StatusCount, 0, len(contractStatuses))
	for _, status := range contractStatuses {
		s.ContractStatus = append(s.ContractStatus, domain.StatusCount{Status: string(status), Count: contractCounts[status]})
	}
	s.InProgressContracts = contractCounts[contractdomain.StatusInProgress]

	s.CashFlow = cashFlow(payments, categories, today)
	return s
}

// cashFlow buckets scheduled amounts into the TrendMonths calendar months
// ending with the month after the latest scheduled date, or after today when
// there are no payments.
func cashFlow(payments []paymentdomain.Payment, categories map[snowflake.ID]contractdomain.Category, today time.Time) []domain.MonthFlow {
	latest := today
	if len(payments) > 0 {
		latest = payments[0].ScheduledDate
		for _, p := range payments[1:] {
			if p.ScheduledDate.After(latest) {
				latest = p.ScheduledDate
			}
		}
	}
	end := time.Date(latest.Year(), latest.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -(domain.TrendMonths - 1), 0)

	months := make([]domain.MonthFlow, domain.TrendMonths)
	index := make(map[string]int, domain.TrendMonths)
	for i := range months {
		key := start.AddDate(0, i, 0).Format("2006-01")
		months[i].Month = key
		index[key] = i
	}

	for _, p := range payments {
		i, ok := index[p.ScheduledDate.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		switch categories[p.ContractID] {
		case contractdomain.CategorySales:
			months[i].Sales += p.Amount
		case contractdomain.CategoryPurchase:
			months[i].Purchases += p.Amount
		}
	}
	return months
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
