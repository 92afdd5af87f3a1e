// Package pagination implements page-number pagination for list
// endpoints.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 6
	MaxLimit     = 100
)

type Params struct {
	Page  int32
	Limit int32
}

// FromQuery reads page and limit query parameters, clamping them to
// sane bounds.
func FromQuery(q url.Values) Params {
	p := Params{Page: 1, Limit: DefaultLimit}

	if v, err := strconv.ParseInt(q.Get("page"), 10, 32); err == nil && v > 0 {
		p.Page = int32(v)
	}
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 32); err == nil && v > 0 {
		p.Limit = int32(min(v, MaxLimit))
	}
	return p
}

func (p Params) Offset() int32 {
	return (p.Page - 1) * p.Limit
}

// Page is the list envelope: total count, absolute next/previous links,
// and the page of results.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope. Links take their path and query from
// the request URL and are made absolute against origin, so clients get
// URIs they can follow directly.
func NewPage[T any](origin string, r *http.Request, params Params, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}

	if int64(params.Page)*int64(params.Limit) < count {
		page.Next = pageURL(origin, r, params.Page+1)
	}
	if params.Page > 1 {
		page.Previous = pageURL(origin, r, params.Page-1)
	}
	return page
}

func pageURL(origin string, r *http.Request, page int32) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.FormatInt(int64(page), 10))
	u.RawQuery = q.Encode()
	s := strings.TrimRight(origin, "/") + u.String()
	return &s
}
