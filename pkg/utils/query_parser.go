package utils

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 25
	MaxPerPage     = 500
)

// QueryParams is the list query the shell sends:
// ?page=2&per_page=25&sort=date_demande&order=DESC&q=doli&filter[statut]=BROUILLON
type QueryParams struct {
	Filters   map[string]string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

func ParseQuery(query url.Values) QueryParams {
	params := QueryParams{
		Filters: make(map[string]string),
		Page:    1,
		PerPage: DefaultPerPage,
	}

	for key, values := range query {
		if strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]") && len(values) > 0 {
			filterKey := key[7 : len(key)-1]
			params.Filters[filterKey] = strings.Join(values, ",")
		}
	}

	if perPageStr := query.Get("per_page"); perPageStr != "" {
		if l, err := strconv.Atoi(perPageStr); err == nil && l > 0 {
			params.PerPage = min(l, MaxPerPage)
		}
	}
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			params.Page = p
		}
	}

	params.Search = strings.TrimSpace(query.Get("q"))
	params.SortBy = query.Get("sort")
	if order := strings.ToUpper(query.Get("order")); order == "ASC" || order == "DESC" {
		params.SortOrder = order
	}

	return params
}
