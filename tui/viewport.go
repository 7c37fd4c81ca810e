// viewport.go provides a reusable scrollable viewport component
// with vertical and horizontal scrolling and optional wrapping.
//
// Lines may carry ANSI styling; widths are measured in cells.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Viewport is a scrollable text area.
type Viewport struct {
	width    int
	height   int
	content  []string
	scrollY  int
	scrollX  int
	wrapText bool
}

// NewViewport creates a viewport with the given dimensions.
func NewViewport(width, height int) *Viewport {
	return &Viewport{
		width:  width,
		height: height,
	}
}

// SetContent replaces the viewport content.
func (v *Viewport) SetContent(content string) {
	v.content = strings.Split(content, "\n")
	v.clampScroll()
}

// SetContentLines replaces the viewport content with pre-split lines.
// Lines that contain newlines are split.
func (v *Viewport) SetContentLines(lines []string) {
	v.content = v.content[:0]
	for _, l := range lines {
		v.content = append(v.content, strings.Split(l, "\n")...)
	}
	v.clampScroll()
}

// SetSize updates viewport dimensions.
func (v *Viewport) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.clampScroll()
}

// ToggleWrap toggles text wrapping.
func (v *Viewport) ToggleWrap() {
	v.wrapText = !v.wrapText
	v.scrollX = 0
	v.clampScroll()
}

func (v *Viewport) ScrollUp(n int) {
	v.scrollY -= n
	v.clampScroll()
}

func (v *Viewport) ScrollDown(n int) {
	v.scrollY += n
	v.clampScroll()
}

func (v *Viewport) ScrollLeft(n int) {
	if !v.wrapText {
		v.scrollX = max(v.scrollX-n, 0)
	}
}

func (v *Viewport) ScrollRight(n int) {
	if !v.wrapText {
		v.scrollX += n
	}
}

func (v *Viewport) PageUp()   { v.ScrollUp(v.height) }
func (v *Viewport) PageDown() { v.ScrollDown(v.height) }

// Home scrolls to the top.
func (v *Viewport) Home() {
	v.scrollY = 0
	v.scrollX = 0
}

// End scrolls to the bottom.
func (v *Viewport) End() {
	v.scrollY = v.maxScrollY()
}

// Render returns the visible portion of the content.
func (v *Viewport) Render() string {
	if len(v.content) == 0 {
		return ""
	}

	lines := v.visible()
	for len(lines) < v.height {
		lines = append(lines, "")
	}

	content := strings.Join(lines, "\n")
	if indicator := v.scrollIndicator(); indicator != "" {
		return lipgloss.JoinVertical(lipgloss.Left, content, indicator)
	}
	return content
}

func (v *Viewport) visible() []string {
	all := v.lines()
	if v.scrollY >= len(all) {
		return nil
	}
	end := min(v.scrollY+v.height, len(all))
	out := make([]string, 0, end-v.scrollY)
	for _, line := range all[v.scrollY:end] {
		if !v.wrapText && v.width > 0 {
			line = ansi.Cut(line, v.scrollX, v.scrollX+v.width)
		}
		out = append(out, line)
	}
	return out
}

// lines is the content after wrapping.
func (v *Viewport) lines() []string {
	if !v.wrapText || v.width <= 0 {
		return v.content
	}
	var wrapped []string
	for _, line := range v.content {
		if ansi.StringWidth(line) <= v.width {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, strings.Split(ansi.Hardwrap(line, v.width, true), "\n")...)
	}
	return wrapped
}

func (v *Viewport) clampScroll() {
	v.scrollY = max(min(v.scrollY, v.maxScrollY()), 0)
}

func (v *Viewport) maxScrollY() int {
	return max(len(v.lines())-v.height, 0)
}

func (v *Viewport) scrollIndicator() string {
	total := len(v.lines())
	if total <= v.height {
		return ""
	}
	pct := (v.scrollY + v.height) * 100 / total
	label := fmt.Sprintf(" %d%% (%d/%d)", min(pct, 100), v.scrollY+1, total)
	rule := max(v.width-lipgloss.Width(label), 0)
	return StyleDimmed.Render(strings.Repeat("─", rule) + label)
}
