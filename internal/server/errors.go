package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	activitydomain "github.com/smallbiznis/milestone/internal/activity/domain"
	contractdomain "github.com/smallbiznis/milestone/internal/contract/domain"
	customerdomain "github.com/smallbiznis/milestone/internal/customer/domain"
	"github.com/smallbiznis/milestone/internal/lock"
	paymentdomain "github.com/smallbiznis/milestone/internal/payment/domain"
	projectdomain "github.com/smallbiznis/milestone/internal/project/domain"
	"github.com/smallbiznis/milestone/internal/reconcile"
	storedomain "github.com/smallbiznis/milestone/internal/store/domain"
	userdomain "github.com/smallbiznis/milestone/internal/user/domain"
	worklistdomain "github.com/smallbiznis/milestone/internal/worklist/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationSentinels are domain errors reported as 400 with their own code.
var validationSentinels = []error{
	ErrInvalidRequest,
	customerdomain.ErrInvalidID,
	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidRegNo,
	customerdomain.ErrInvalidType,
	customerdomain.ErrInvalidEmail,
	projectdomain.ErrInvalidID,
	projectdomain.ErrInvalidName,
	projectdomain.ErrInvalidCustomer,
	projectdomain.ErrInvalidBudget,
	projectdomain.ErrInvalidPeriod,
	projectdomain.ErrInvalidStatus,
	contractdomain.ErrInvalidID,
	contractdomain.ErrInvalidName,
	contractdomain.ErrInvalidProject,
	contractdomain.ErrInvalidCategory,
	contractdomain.ErrInvalidType,
	contractdomain.ErrInvalidAmount,
	contractdomain.ErrInvalidPeriod,
	paymentdomain.ErrInvalidID,
	paymentdomain.ErrInvalidContract,
	paymentdomain.ErrInvalidItem,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidScheduledDate,
	userdomain.ErrInvalidID,
	userdomain.ErrInvalidUsername,
	userdomain.ErrInvalidName,
	userdomain.ErrInvalidPassword,
	userdomain.ErrInvalidEmail,
	activitydomain.ErrInvalidCategory,
	activitydomain.ErrInvalidType,
	activitydomain.ErrInvalidPageToken,
	storedomain.ErrInvalidSnapshot,
	storedomain.ErrUnsupportedVersion,
	worklistdomain.ErrInvalidDirection,
}

var conflictSentinels = []error{
	ErrConflict,
	customerdomain.ErrDuplicateName,
	customerdomain.ErrDuplicateRegNo,
	userdomain.ErrDuplicateUsername,
	paymentdomain.ErrDuplicateDeposit,
	paymentdomain.ErrExceedsRegisteredBalance,
	contractdomain.ErrAmountBelowRegistered,
	lock.ErrContractBusy,
}

var notFoundSentinels = []error{
	ErrNotFound,
	gorm.ErrRecordNotFound,
	customerdomain.ErrNotFound,
	projectdomain.ErrNotFound,
	projectdomain.ErrCustomerNotFound,
	contractdomain.ErrNotFound,
	contractdomain.ErrProjectNotFound,
	paymentdomain.ErrNotFound,
	paymentdomain.ErrContractNotFound,
	reconcile.ErrMilestoneNotFound,
	userdomain.ErrNotFound,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindError turns a binding failure into field-level validation errors.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		field := toSnake(fe.Field())
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    fe.Tag(),
			Message: field + " is " + fe.Tag(),
		})
	}
	return out
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var seqErr *reconcile.SequenceViolationError
	if errors.As(err, &seqErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "sequence_violation",
			Message: seqErr.Error(),
			Details: map[string]any{
				"blocking":    seqErr.Blocking,
				"blocking_id": seqErr.BlockingID.String(),
				"target":      seqErr.Target,
			},
		}
	}
	if errors.Is(err, reconcile.ErrSequenceViolation) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "sequence_violation",
			Message: "an earlier milestone must be completed first",
		}
	}

	if code, ok := matchSentinel(err, validationSentinels); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, userdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isConflictError(err):
		code, _ := matchSentinel(err, conflictSentinels)
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: code,
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, lock.ErrLockNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the response type and code logged with a
// failed request.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// matchSentinel returns the code of the first sentinel err wraps. Domain
// errors are often wrapped with context, so err.Error() is not a stable code.
func matchSentinel(err error, sentinels []error) (string, bool) {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func isConflictError(err error) bool {
	_, ok := matchSentinel(err, conflictSentinels)
	return ok
}

func isNotFoundError(err error) bool {
	_, ok := matchSentinel(err, notFoundSentinels)
	return ok
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_customer_type", "invalid_contract_type", "invalid_activity_type":
		return "type"
	case "invalid_project_status":
		return "status"
	case "invalid_activity_category":
		return "category"
	case "invalid_snapshot", "unsupported_snapshot_version":
		return "snapshot"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "unsupported_snapshot_version":
		return "snapshot was written by a newer version"
	default:
		return "invalid value"
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
