package controllers

import (
	"net/http"
	"strings"

	"github.com/fabtrack/fabtrack-backend/api/validators"
	"github.com/fabtrack/fabtrack-backend/pkg/pagination"
	"github.com/fabtrack/fabtrack-backend/pkg/types"
)

const (
	actorHeader  = "X-Actor"
	defaultActor = "api"
)

// actorFrom resolves who performed the request for audit attribution. There
// is no authentication layer in front of this API, so the operator name rides
// in on a header and falls back to a generic marker.
func actorFrom(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(actorHeader)); actor != "" {
		return actor
	}
	return defaultActor
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func pageOf[T any](items []T, nextCursor string) types.Page[T] {
	page := types.Page[T]{Items: items}
	if items == nil {
		page.Items = []T{}
	}
	if nextCursor != "" {
		page.NextCursor = &nextCursor
	}
	return page
}
