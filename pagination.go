package main

import (
	"math"
	"net/url"
	"strconv"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// pageParams reads page/limit query values with clamping; page is 1-based.
func pageParams(q url.Values) (page, limit, offset int) {
	page = 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 1 {
		page = p
	}
	limit = defaultPageSize
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

// pageLinks builds prev/next URLs for a listing, keeping the rest of the
// query intact. Empty string means there is no such page.
func pageLinks(u *url.URL, page, limit, total int) (prev, next string) {
	pCount := int(math.Ceil(float64(total) / float64(limit)))
	val := u.Query()
	pageURL := func(n int) string {
		val.Set("page", strconv.Itoa(n))
		cp := *u
		cp.RawQuery = val.Encode()
		return cp.String()
	}
	if page > 1 && page <= pCount {
		prev = pageURL(page - 1)
	}
	if page < pCount {
		next = pageURL(page + 1)
	}
	return prev, next
}
