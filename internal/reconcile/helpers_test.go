package reconcile

import (
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
)

// today is a Wednesday.
var today = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

func daysFromToday(n int) time.Time {
	return today.AddDate(0, 0, n)
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func milestone(id int64, item paymentdomain.Item, amount int64, scheduled time.Time) paymentdomain.Payment {
	return paymentdomain.Payment{
		ID:            snowflake.ID(id),
		ContractID:    snowflake.ID(100),
		Item:          item,
		Amount:        amount,
		ScheduledDate: scheduled,
	}
}

func completed(p paymentdomain.Payment, on time.Time) paymentdomain.Payment {
	p.CompletionDate = datePtr(on)
	p.InvoiceDate = datePtr(on.AddDate(0, 0, -1))
	return p
}

func salesContract(amount int64) contractdomain.Contract {
	return contractdomain.Contract{
		ID:        snowflake.ID(100),
		Name:      "platform build",
		Category:  contractdomain.CategorySales,
		Amount:    amount,
		StartDate: datePtr(daysFromToday(-30)),
		EndDate:   datePtr(daysFromToday(60)),
	}
}
