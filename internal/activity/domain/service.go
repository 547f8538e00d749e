package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/milestone/pkg/db/pagination"
)

// DefaultPageSize matches the length of the recent-activity panel.
const DefaultPageSize = 20

type RecordRequest struct {
	Type        Type
	Category    Category
	TargetName  string
	Description string
	Metadata    map[string]any
}

type ListActivityRequest struct {
	pagination.Pagination
	Category string
}

type ListActivityResponse struct {
	pagination.PageInfo
	Activities []Activity `json:"activities"`
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) error
	List(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
}

var (
	ErrInvalidType      = errors.New("invalid_activity_type")
	ErrInvalidCategory  = errors.New("invalid_activity_category")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
