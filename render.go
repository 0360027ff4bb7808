package main

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// renderText turns user markdown into HTML safe to embed: markdown first,
// then the UGC sanitizer over the result.
func renderText(t string) string {
	unsafe := blackfriday.Run([]byte(t))
	return string(bluemonday.UGCPolicy().SanitizeBytes(unsafe))
}
