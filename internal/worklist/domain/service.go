package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/milestone/internal/reconcile"
)

type WorklistRequest struct {
	// Direction narrows the board to receivable or payable payments. The
	// category names sales and purchase are accepted as aliases.
	Direction string
}

// Worklist is the triage board plus the totals shown above it.
type Worklist struct {
	reconcile.Board
	Today        time.Time              `json:"today"`
	UrgentAmount int64                  `json:"urgent_amount"`
	Policy       reconcile.TriagePolicy `json:"policy"`
}

type Service interface {
	Build(ctx context.Context, req WorklistRequest) (Worklist, error)
}

var ErrInvalidDirection = errors.New("invalid_direction")
