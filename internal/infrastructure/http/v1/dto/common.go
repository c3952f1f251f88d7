// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
)

// --- Pagination ---

// PageQuery carries limit/offset paging from the query string.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=0,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// parseID parses a required identifier, naming field in the validation error.
func parseID(field, s string) (id.ID, error) {
	v, err := id.Parse(s)
	if err != nil || id.IsNil(v) {
		return id.Nil(), apperror.NewValidation("invalid identifier").
			WithDetail("field", field).
			WithDetail("value", s)
	}
	return v, nil
}

// parseOptionalID treats nil and empty strings as absent.
func parseOptionalID(field string, s *string) (*id.ID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	v, err := parseID(field, *s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func idString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
