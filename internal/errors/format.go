package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

// Format returns the error formatted for terminal display.
func (e *MeldError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(color(colorRed+colorBold, "ERROR "))
	if e.Code != "" {
		b.WriteString(color(colorBold, e.Code+": "))
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if e.Detail != "" {
		writeWrapped(&b, e.Detail)
	}
	if t, ok := registry[e.Code]; ok && t.Explain != "" {
		writeWrapped(&b, t.Explain)
	}
	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(color(colorGray, "Cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}
	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(color(colorCyan, "Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatCompact returns a compact single-line error format.
func (e *MeldError) FormatCompact() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Category, e.Message)
}

func writeWrapped(b *strings.Builder, text string) {
	for _, line := range wrapText(text, 70) {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Fprint writes err to w, formatted when it is a MeldError.
func Fprint(w io.Writer, err error) {
	var me *MeldError
	if errors.As(err, &me) {
		fmt.Fprint(w, me.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", color(colorRed+colorBold, "ERROR:"), err.Error())
}
