package main

import (
	"net/url"
	"testing"
)

func TestPageParams(t *testing.T) {
	tests := []struct {
		query  string
		page   int
		limit  int
		offset int
	}{
		{"", 1, 10, 0},
		{"page=3", 3, 10, 20},
		{"page=0", 1, 10, 0},
		{"page=abc", 1, 10, 0},
		{"limit=25", 1, 25, 0},
		{"limit=500", 1, 50, 0},
		{"limit=-1", 1, 10, 0},
		{"page=2&limit=5", 2, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			page, limit, offset := pageParams(q)
			if page != tt.page || limit != tt.limit || offset != tt.offset {
				t.Errorf("got (%d, %d, %d), want (%d, %d, %d)",
					page, limit, offset, tt.page, tt.limit, tt.offset)
			}
		})
	}
}

func TestPageLinks(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		total int
		prev  string
		next  string
	}{
		{"first of three", 1, 25, "", "/api/posts?page=2"},
		{"middle", 2, 25, "/api/posts?page=1", "/api/posts?page=3"},
		{"last", 3, 25, "/api/posts?page=2", ""},
		{"single page", 1, 5, "", ""},
		{"empty listing", 1, 0, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, _ := url.Parse("/api/posts")
			prev, next := pageLinks(u, tt.page, 10, tt.total)
			if prev != tt.prev {
				t.Errorf("prev = %q, want %q", prev, tt.prev)
			}
			if next != tt.next {
				t.Errorf("next = %q, want %q", next, tt.next)
			}
		})
	}
}

func TestPageLinksKeepQuery(t *testing.T) {
	u, _ := url.Parse("/api/posts?sort=date&page=2")
	prev, next := pageLinks(u, 2, 10, 30)
	if prev != "/api/posts?page=1&sort=date" {
		t.Errorf("prev = %q", prev)
	}
	if next != "/api/posts?page=3&sort=date" {
		t.Errorf("next = %q", next)
	}
}
