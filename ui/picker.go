package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/dgnsrekt/ttstudio/internal/voice"
	"github.com/muesli/reflow/truncate"
)

type pickItem struct {
	id     string
	label  string
	header bool
}

// picker is a scrolling single-choice list with group headers and an
// optional filter line.
type picker struct {
	title  string
	items  []pickItem
	cursor int
	offset int
	height int

	filterable bool
	filter     textinput.Model
}

func newPicker(title string, filterable bool) picker {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter"
	ti.CharLimit = 64
	return picker{title: title, height: 10, filterable: filterable, filter: ti}
}

// setItems replaces the list and puts the cursor on selected, or the first
// choosable item.
func (p *picker) setItems(items []pickItem, selected string) {
	p.items = items
	p.cursor = -1
	for i, it := range items {
		if !it.header && it.id == selected {
			p.cursor = i
			break
		}
	}
	if p.cursor < 0 {
		p.cursor = p.next(-1, 1)
	}
	p.scroll()
}

func (p *picker) query() string {
	if !p.filterable {
		return ""
	}
	return strings.TrimSpace(p.filter.Value())
}

// next returns the first choosable index after from in direction dir, or
// from when there is none.
func (p *picker) next(from, dir int) int {
	for i := from + dir; i >= 0 && i < len(p.items); i += dir {
		if !p.items[i].header {
			return i
		}
	}
	return from
}

func (p *picker) move(delta int) {
	dir := 1
	if delta < 0 {
		dir, delta = -1, -delta
	}
	for ; delta > 0; delta-- {
		p.cursor = p.next(p.cursor, dir)
	}
	p.scroll()
}

func (p *picker) scroll() {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+p.height {
		p.offset = p.cursor - p.height + 1
	}
	p.offset = max(0, p.offset)
}

func (p picker) current() (pickItem, bool) {
	if p.cursor < 0 || p.cursor >= len(p.items) || p.items[p.cursor].header {
		return pickItem{}, false
	}
	return p.items[p.cursor], true
}

func (p picker) view(width int, selected string) string {
	var b strings.Builder
	b.WriteString(headerStyle(p.title))
	b.WriteString("\n")
	if p.filterable {
		b.WriteString(p.filter.View())
		b.WriteString("\n")
	}
	if len(p.items) == 0 {
		b.WriteString(dimStyle("  nothing to choose"))
		return b.String()
	}

	end := min(len(p.items), p.offset+p.height)
	for i := p.offset; i < end; i++ {
		it := p.items[i]
		line := it.label
		if width > 4 {
			line = truncate.StringWithTail(line, uint(width-4), ellipsis) //nolint:gosec
		}
		switch {
		case it.header:
			line = headerStyle(line)
		case i == p.cursor:
			line = cursorStyle("▸ ") + selectedStyle(line)
		case it.id == selected:
			line = "  " + selectedStyle(line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		if i+1 < end {
			b.WriteString("\n")
		}
	}
	if len(p.items) > p.height {
		fmt.Fprintf(&b, "\n%s", dimStyle(fmt.Sprintf("  %d/%d", p.cursor+1, len(p.items))))
	}
	return b.String()
}

// voiceItems lists groups under their headers. A non-empty query flattens
// the list and ranks voices by fuzzy match.
func voiceItems(groups []voice.Group, hidden int, query string) []pickItem {
	var items []pickItem
	if query != "" {
		for _, v := range voice.Filter(voice.Flatten(groups), query) {
			items = append(items, pickItem{id: v.ID(), label: voice.OptionLabel(v) + "  " + dimStyle(v.ID())})
		}
		return items
	}
	for _, g := range groups {
		items = append(items, pickItem{label: g.Label, header: true})
		for _, v := range g.Voices {
			items = append(items, pickItem{id: v.ID(), label: voice.OptionLabel(v) + "  " + dimStyle(v.ID())})
		}
	}
	if hidden > 0 {
		items = append(items, pickItem{label: fmt.Sprintf("▼ %d more voices in other languages (o to show)", hidden), header: true})
	}
	return items
}

func stringItems(values []string) []pickItem {
	items := make([]pickItem, len(values))
	for i, v := range values {
		items[i] = pickItem{id: v, label: v}
	}
	return items
}
