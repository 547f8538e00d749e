package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
)

type projectRequest struct {
	Name         string         `json:"name" binding:"required"`
	CustomerID   string         `json:"customer_id" binding:"required"`
	StartDate    *string        `json:"start_date"`
	EndDate      *string        `json:"end_date"`
	Budget       int64          `json:"budget"`
	DeptName     string         `json:"dept_name"`
	ManagerName  string         `json:"manager_name"`
	ManagerPhone string         `json:"manager_phone"`
	Notes        string         `json:"notes"`
	Metadata     map[string]any `json:"metadata"`
}

func (r projectRequest) fields() (projectdomain.ProjectFields, error) {
	start, err := parseOptionalDate("start_date", r.StartDate)
	if err != nil {
		return projectdomain.ProjectFields{}, err
	}
	end, err := parseOptionalDate("end_date", r.EndDate)
	if err != nil {
		return projectdomain.ProjectFields{}, err
	}
	return projectdomain.ProjectFields{
		Name:         r.Name,
		CustomerID:   strings.TrimSpace(r.CustomerID),
		StartDate:    start,
		EndDate:      end,
		Budget:       r.Budget,
		DeptName:     r.DeptName,
		ManagerName:  r.ManagerName,
		ManagerPhone: r.ManagerPhone,
		Notes:        r.Notes,
		Metadata:     r.Metadata,
	}, nil
}

func (s *Server) CreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.Create(c.Request.Context(), projectdomain.CreateProjectRequest{ProjectFields: fields})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	fields, err := req.fields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.Update(c.Request.Context(), projectdomain.UpdateProjectRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		ProjectFields: fields,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProject(c *gin.Context) {
	if err := s.projectSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListProjects(c *gin.Context) {
	var query struct {
		CustomerID string `form:"customer_id"`
		Name       string `form:"name"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectSvc.List(c.Request.Context(), projectdomain.ListProjectRequest{
		CustomerID: strings.TrimSpace(query.CustomerID),
		Name:       strings.TrimSpace(query.Name),
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProjectByID(c *gin.Context) {
	resp, err := s.projectSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
