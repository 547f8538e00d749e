package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
)

type paymentRequest struct {
	Item           string  `json:"item" binding:"required"`
	Amount         int64   `json:"amount"`
	ScheduledDate  *string `json:"scheduled_date"`
	InvoiceDate    *string `json:"invoice_date"`
	CompletionDate *string `json:"completion_date"`
	Status         string  `json:"status"`
}

type createPaymentRequest struct {
	ContractID string `json:"contract_id" binding:"required"`
	paymentRequest
}

func (r paymentRequest) fields() (paymentdomain.PaymentFields, error) {
	scheduled, err := parseOptionalDate("scheduled_date", r.ScheduledDate)
	if err != nil {
		return paymentdomain.PaymentFields{}, err
	}
	invoiced, err := parseOptionalDate("invoice_date", r.InvoiceDate)
	if err != nil {
		return paymentdomain.PaymentFields{}, err
	}
	completed, err := parseOptionalDate("completion_date", r.CompletionDate)
	if err != nil {
		return paymentdomain.PaymentFields{}, err
	}
	return paymentdomain.PaymentFields{
		Item:           paymentdomain.Item(strings.TrimSpace(r.Item)),
		Amount:         r.Amount,
		ScheduledDate:  scheduled,
		InvoiceDate:    invoiced,
		CompletionDate: completed,
		Status:         paymentdomain.Status(strings.TrimSpace(r.Status)),
	}, nil
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.Create(c.Request.Context(), paymentdomain.CreatePaymentRequest{
		ContractID:    strings.TrimSpace(req.ContractID),
		PaymentFields: fields,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpdatePayment returns the edited milestone together with every milestone
// the edit cascaded to.
func (s *Server) UpdatePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.Update(c.Request.Context(), paymentdomain.UpdatePaymentRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		PaymentFields: fields,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePayment(c *gin.Context) {
	if err := s.paymentSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	resp, err := s.paymentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
