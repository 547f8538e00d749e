package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
)

type contractRequest struct {
	Name       string  `json:"name" binding:"required"`
	ProjectID  string  `json:"project_id" binding:"required"`
	Category   string  `json:"category" binding:"required"`
	Type       string  `json:"type" binding:"required"`
	Amount     int64   `json:"amount"`
	SignedDate *string `json:"signed_date"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	Notes      string  `json:"notes"`
}

func (r contractRequest) fields() (contractdomain.ContractFields, error) {
	signed, err := parseOptionalDate("signed_date", r.SignedDate)
	if err != nil {
		return contractdomain.ContractFields{}, err
	}
	start, err := parseOptionalDate("start_date", r.StartDate)
	if err != nil {
		return contractdomain.ContractFields{}, err
	}
	end, err := parseOptionalDate("end_date", r.EndDate)
	if err != nil {
		return contractdomain.ContractFields{}, err
	}
	return contractdomain.ContractFields{
		Name:       r.Name,
		ProjectID:  strings.TrimSpace(r.ProjectID),
		Category:   contractdomain.Category(strings.TrimSpace(r.Category)),
		Type:       contractdomain.Type(strings.TrimSpace(r.Type)),
		Amount:     r.Amount,
		SignedDate: signed,
		StartDate:  start,
		EndDate:    end,
		Notes:      r.Notes,
	}, nil
}

func (s *Server) CreateContract(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.contractSvc.Create(c.Request.Context(), contractdomain.CreateContractRequest{ContractFields: fields})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateContract(c *gin.Context) {
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.contractSvc.Update(c.Request.Context(), contractdomain.UpdateContractRequest{
		ID:             strings.TrimSpace(c.Param("id")),
		ContractFields: fields,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteContract(c *gin.Context) {
	if err := s.contractSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListContracts(c *gin.Context) {
	var query struct {
		ProjectID  string `form:"project_id"`
		CustomerID string `form:"customer_id"`
		Category   string `form:"category"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.List(c.Request.Context(), contractdomain.ListContractRequest{
		ProjectID:  strings.TrimSpace(query.ProjectID),
		CustomerID: strings.TrimSpace(query.CustomerID),
		Category:   strings.TrimSpace(query.Category),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContractByID(c *gin.Context) {
	resp, err := s.contractSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContractPayments(c *gin.Context) {
	resp, err := s.paymentSvc.ListByContract(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
