package meldtest

import (
	"strings"
	"testing"

	"github.com/vango-dev/meld/pkg/dom"
)

// ExpectContains asserts that the rendered markup of id contains expected.
//
// Example:
//
//	meldtest.ExpectContains(t, doc, root, "Hello Ada")
func ExpectContains(t testing.TB, doc *dom.Document, id dom.NodeID, expected string) {
	t.Helper()
	markup := doc.Render(id)
	if !strings.Contains(markup, expected) {
		t.Errorf("expected markup to contain %q, got:\n%s", expected, truncate(markup, 500))
	}
}

// ExpectNotContains asserts that the rendered markup of id lacks unexpected.
func ExpectNotContains(t testing.TB, doc *dom.Document, id dom.NodeID, unexpected string) {
	t.Helper()
	markup := doc.Render(id)
	if strings.Contains(markup, unexpected) {
		t.Errorf("expected markup to NOT contain %q, got:\n%s", unexpected, truncate(markup, 500))
	}
}

// ExpectAttribute asserts that id carries attr with value.
//
// Example:
//
//	meldtest.ExpectAttribute(t, doc, button, "disabled", "")
func ExpectAttribute(t testing.TB, doc *dom.Document, id dom.NodeID, attr, value string) {
	t.Helper()
	got, ok := doc.Attr(id, attr)
	if !ok {
		t.Errorf("expected attribute %s=%q not found on:\n%s", attr, value, truncate(doc.Render(id), 500))
		return
	}
	if got != value {
		t.Errorf("attribute %s = %q, want %q", attr, got, value)
	}
}

// ExpectText asserts the text content of id.
func ExpectText(t testing.TB, doc *dom.Document, id dom.NodeID, want string) {
	t.Helper()
	if got := doc.TextContent(id); got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
