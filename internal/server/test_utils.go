package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type testCleanupRequest struct {
	Prefix string `json:"prefix"`
}

type testCleanupResult struct {
	Customers int64 `json:"customers"`
	Projects  int64 `json:"projects"`
	Contracts int64 `json:"contracts"`
	Payments  int64 `json:"payments"`
	Users     int64 `json:"users"`
}

// TestCleanup removes customers and users whose name starts with prefix,
// together with everything hanging off those customers. It is only routed
// outside production.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		AbortWithError(c, newValidationError("prefix", "required", "prefix is required"))
		return
	}
	like := prefix + "%"

	var result testCleanupResult
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		customerIDs := tx.Table("customers").Select("id").Where("name LIKE ?", like)
		projectIDs := tx.Table("projects").Select("id").Where("customer_id IN (?)", customerIDs)
		contractIDs := tx.Table("contracts").Select("id").Where("project_id IN (?)", projectIDs)

		res := tx.Exec(`DELETE FROM payments WHERE contract_id IN (?)`, contractIDs)
		if res.Error != nil {
			return res.Error
		}
		result.Payments = res.RowsAffected

		res = tx.Exec(`DELETE FROM contracts WHERE id IN (?)`, contractIDs)
		if res.Error != nil {
			return res.Error
		}
		result.Contracts = res.RowsAffected

		res = tx.Exec(`DELETE FROM projects WHERE id IN (?)`, projectIDs)
		if res.Error != nil {
			return res.Error
		}
		result.Projects = res.RowsAffected

		res = tx.Exec(`DELETE FROM customers WHERE name LIKE ?`, like)
		if res.Error != nil {
			return res.Error
		}
		result.Customers = res.RowsAffected

		res = tx.Exec(`DELETE FROM users WHERE username LIKE ?`, like)
		if res.Error != nil {
			return res.Error
		}
		result.Users = res.RowsAffected
		return nil
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
