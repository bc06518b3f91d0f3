package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const defaultPageSize = 100

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// paginate slices an already loaded list. Owners hold tens of parcels, so
// the repositories return whole lists and paging happens here.
func paginate[T any](c *fiber.Ctx, items []T, maxLimit int) PaginatedResponse {
	offset := max(c.QueryInt("offset", 0), 0)
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 || limit > maxLimit {
		limit = defaultPageSize
	}

	page := []T{}
	if offset < len(items) {
		page = items[offset:min(offset+limit, len(items))]
	}

	pg := Pagination{Offset: offset, Limit: limit, Total: len(items)}
	SetLinkHeaders(c, pg)
	return PaginatedResponse{Data: page, Pagination: pg}
}

// SetLinkHeaders appends RFC 8288 first/prev/next/last links. Filters such
// as owner= are carried into every link; a successor-version link set by
// the deprecation middleware is kept.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	q := url.Values{}
	for k, v := range c.Queries() {
		if k != "offset" && k != "limit" {
			q.Set(k, v)
		}
	}
	link := func(offset int, rel string) string {
		q.Set("offset", fmt.Sprint(offset))
		q.Set("limit", fmt.Sprint(p.Limit))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, c.Path(), q.Encode(), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Append("Link", strings.Join(links, ", "))
}
