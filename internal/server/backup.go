package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	storedomain "github.com/smallbiznis/milestone/internal/store/domain"
)

// ExportBackup streams the full dataset as a downloadable JSON snapshot.
func (s *Server) ExportBackup(c *gin.Context) {
	snap, err := s.storeSvc.FetchAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("milestone-backup-%s.json", snap.ExportedAt.Format(dateOnlyLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.JSON(http.StatusOK, snap)
}

// RestoreBackup replaces the whole dataset with the uploaded snapshot.
func (s *Server) RestoreBackup(c *gin.Context) {
	var snap storedomain.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		AbortWithError(c, newValidationError("snapshot", "invalid_snapshot", "snapshot is not valid JSON"))
		return
	}

	resp, err := s.storeSvc.ReplaceAll(c.Request.Context(), snap)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
