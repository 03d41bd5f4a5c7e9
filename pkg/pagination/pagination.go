// Package pagination reads list paging from query strings and wraps paged
// results for templates and JSON clients.
package pagination

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?page= (1-based) or ?offset=, and ?limit=.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 1 {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// Page returns the 1-based page number.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// Response is a page of Data out of Total items.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Page    int         `json:"page"`
	HasMore bool        `json:"has_more"`
	NextURL string      `json:"next_url,omitempty"`
	PrevURL string      `json:"prev_url,omitempty"`
	Query   string      `json:"query,omitempty"`
}

// NewResponse builds a Response. basePath and query produce the next and
// previous page links; query is repeated as ?q=.
func NewResponse(data interface{}, total int, p Params, basePath, query string) *Response {
	filters := url.Values{}
	if query != "" {
		filters.Set("q", query)
	}
	r := NewFilteredResponse(data, total, p, basePath, filters)
	r.Query = query
	return r
}

// NewFilteredResponse is NewResponse for lists filtered by several query
// parameters, all of which are repeated in the page links.
func NewFilteredResponse(data interface{}, total int, p Params, basePath string, filters url.Values) *Response {
	r := &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		Page:    p.Page(),
		HasMore: p.HasNext(total),
	}
	if r.HasMore {
		r.NextURL = pageURL(basePath, filters, r.Page+1)
	}
	if p.HasPrevious() {
		r.PrevURL = pageURL(basePath, filters, r.Page-1)
	}
	return r
}

func pageURL(basePath string, filters url.Values, page int) string {
	v := url.Values{}
	for k, vals := range filters {
		for _, val := range vals {
			if val != "" {
				v.Add(k, val)
			}
		}
	}
	v.Set("page", strconv.Itoa(page))
	return basePath + "?" + v.Encode()
}
