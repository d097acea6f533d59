package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"reebalance/internal/balance"
	"reebalance/internal/dates"
	"reebalance/internal/models"
)

// parseQuery reads the dashboard inputs from the URL. Parameters that are
// absent keep their value from base. Without an explicit page the page
// goes back to 1 whenever another input changed.
func (s *Server) parseQuery(r *http.Request, base balance.Query) (balance.Query, error) {
	params := r.URL.Query()
	q := base

	if params.Has("start") || params.Has("end") {
		rng, err := dates.ParseInputRange(params.Get("start"), params.Get("end"), s.loc)
		if err != nil {
			return base, err
		}
		// a missing bound is passed through and simply fetches nothing
		if !rng.Start.IsZero() && !rng.End.IsZero() && rng.Start.After(rng.End) {
			return base, dates.ErrInvalidRange
		}
		q.Range = rng
	}

	if v := params.Get("scope"); v != "" {
		scope, err := models.ParseTimeScope(v)
		if err != nil {
			return base, err
		}
		q.Scope = scope
	}

	if v := params.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return base, fmt.Errorf("invalid pageSize %q", v)
		}
		q.Pagination.PageSize = n
	}
	if v := strings.TrimSpace(params.Get("orderBy")); v != "" {
		q.Pagination.OrderBy = v
	}
	if v := params.Get("orderDirection"); v != "" {
		dir, err := models.ParseOrderDirection(v)
		if err != nil {
			return base, err
		}
		q.Pagination.OrderDirection = dir
	}

	if v := params.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return base, fmt.Errorf("invalid page %q", v)
		}
		q.Pagination.Page = n
	} else {
		q = balance.ResetPage(base, q)
	}

	q.Pagination = q.Pagination.WithDefaults()
	if err := q.Pagination.Validate(); err != nil {
		return base, err
	}
	return q, nil
}

// baseQuery is the dashboard's current query, or the default one
func (s *Server) baseQuery() balance.Query {
	if q, ok := s.Dashboard.Query(); ok {
		return q
	}
	return s.DefaultQuery()
}

// safeRedirect accepts only local absolute paths
func safeRedirect(target string) (string, bool) {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return "", false
	}
	return target, true
}
