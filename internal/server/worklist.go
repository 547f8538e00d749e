package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	worklistdomain "github.com/smallbiznis/milestone/internal/worklist/domain"
)

func (s *Server) GetWorklist(c *gin.Context) {
	resp, err := s.worklistSvc.Build(c.Request.Context(), worklistdomain.WorklistRequest{
		Direction: c.Query("direction"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDashboard(c *gin.Context) {
	resp, err := s.dashboardSvc.Summary(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
