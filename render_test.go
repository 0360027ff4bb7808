package main

import (
	"strings"
	"testing"
)

func TestRenderText(t *testing.T) {
	got := renderText("hello *there*")
	if !strings.Contains(got, "<em>there</em>") {
		t.Errorf("markdown not rendered: %q", got)
	}
}

func TestRenderTextSanitizes(t *testing.T) {
	got := renderText("hi <script>alert(1)</script>")
	if strings.Contains(got, "<script>") {
		t.Errorf("script tag survived: %q", got)
	}
	got = renderText(`[x](javascript:alert(1))`)
	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript href survived: %q", got)
	}
}
