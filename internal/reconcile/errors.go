package reconcile

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
)

var (
	ErrSequenceViolation = errors.New("sequence_violation")
	ErrMilestoneNotFound = errors.New("milestone_not_found")
)

// SequenceViolationError names the earlier milestone that still lacks a
// completion date.
type SequenceViolationError struct {
	Blocking   paymentdomain.Item
	BlockingID snowflake.ID
	Target     paymentdomain.Item
}

func (e *SequenceViolationError) Error() string {
	return fmt.Sprintf("sequence_violation: %s must be completed before %s", e.Blocking, e.Target)
}

func (e *SequenceViolationError) Is(target error) bool {
	return target == ErrSequenceViolation
}
