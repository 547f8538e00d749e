package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
)

type customerRequest struct {
	Name          string `json:"name" binding:"required"`
	RegNo         string `json:"reg_no" binding:"required"`
	Type          string `json:"type"`
	CEOName       string `json:"ceo_name"`
	BizType       string `json:"biz_type"`
	BizItem       string `json:"biz_item"`
	FinanceDept   string `json:"finance_dept"`
	ManagerName   string `json:"manager_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	BankName      string `json:"bank_name"`
	AccountNo     string `json:"account_no"`
	AccountHolder string `json:"account_holder"`
	ZipCode       string `json:"zip_code"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

func (r customerRequest) fields() customerdomain.CustomerFields {
	return customerdomain.CustomerFields{
		Name:          r.Name,
		RegNo:         r.RegNo,
		Type:          customerdomain.Type(strings.TrimSpace(r.Type)),
		CEOName:       r.CEOName,
		BizType:       r.BizType,
		BizItem:       r.BizItem,
		FinanceDept:   r.FinanceDept,
		ManagerName:   r.ManagerName,
		Phone:         r.Phone,
		Email:         r.Email,
		BankName:      r.BankName,
		AccountNo:     r.AccountNo,
		AccountHolder: r.AccountHolder,
		ZipCode:       r.ZipCode,
		Address:       r.Address,
		Notes:         r.Notes,
	}
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		CustomerFields: req.fields(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.customerSvc.Update(c.Request.Context(), customerdomain.UpdateCustomerRequest{
		ID:             strings.TrimSpace(c.Param("id")),
		CustomerFields: req.fields(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	if err := s.customerSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		Name string `form:"name"`
		Type string `form:"type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListCustomerRequest{
		Name: strings.TrimSpace(query.Name),
		Type: strings.TrimSpace(query.Type),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
