package goldmark

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark/ast"
)

const minWrap = 10

func (w *writer) blocks(parent ast.Node, width int) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, width)
		if n.NextSibling() != nil {
			w.buf.WriteByte('\n')
		}
	}
}

func (w *writer) block(n ast.Node, width int) {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		w.wrapped(w.inline(n), width)
	case *ast.Heading:
		w.wrapped(w.styles.heading.Render(w.inline(n)), width)
	case *ast.List:
		w.list(n, width, "")
	case *ast.Blockquote:
		w.quote(n, width)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.literal(n)
	case *ast.ThematicBreak:
		w.buf.WriteString(w.styles.muted.Render(strings.Repeat("─", min(width, 40))))
		w.buf.WriteByte('\n')
	case *ast.HTMLBlock:
		// Raw HTML is shown as-is; replies rarely contain it.
		w.literal(n)
	default:
		w.blocks(n, width)
	}
}

func (w *writer) wrapped(s string, width int) {
	w.buf.WriteString(lipgloss.NewStyle().Width(max(width, minWrap)).Render(s))
	w.buf.WriteByte('\n')
}

// literal writes a block's lines without reflow, indented by two spaces.
func (w *writer) literal(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(w.source)), "\n")
		w.buf.WriteString("  " + w.styles.muted.Render(line) + "\n")
	}
}

// quote renders a blockquote with a colored bar in front of every line.
// Coaches use quotes for suggested phrasings ("try saying ...").
func (w *writer) quote(n *ast.Blockquote, width int) {
	inner := &writer{styles: w.styles, source: w.source}
	inner.blocks(n, width-2)
	bar := w.styles.quote.Render("┃") + " "
	for _, line := range strings.Split(strings.TrimRight(inner.buf.String(), "\n"), "\n") {
		w.buf.WriteString(bar + line + "\n")
	}
}

func (w *writer) list(n *ast.List, width int, indent string) {
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		item, ok := c.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + ". "
			num++
		}
		w.item(item, width, indent, marker)
	}
}

func (w *writer) item(item *ast.ListItem, width int, indent, marker string) {
	prefix := indent + marker
	hang := strings.Repeat(" ", runewidth.StringWidth(prefix))
	first := true
	emit := func(text string) {
		wrapped := lipgloss.NewStyle().Width(max(width-len(hang), minWrap)).Render(text)
		for _, line := range strings.Split(wrapped, "\n") {
			if first {
				w.buf.WriteString(prefix + line + "\n")
				first = false
				continue
			}
			w.buf.WriteString(hang + line + "\n")
		}
	}
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			emit(w.inline(c))
		case *ast.List:
			if first {
				emit("")
			}
			w.list(c, width, hang)
		default:
			nested := &writer{styles: w.styles, source: w.source}
			nested.block(c, width-len(hang))
			emit(strings.TrimRight(nested.buf.String(), "\n"))
		}
	}
	if first {
		emit("")
	}
}

// inline flattens a node's inline children into a single styled string.
func (w *writer) inline(n ast.Node) string {
	var b bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.span(c, &b)
	}
	return b.String()
}

func (w *writer) span(n ast.Node, b *bytes.Buffer) {
	switch n := n.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(w.source))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.Emphasis:
		if n.Level >= 2 {
			b.WriteString(w.styles.strong.Render(w.inline(n)))
		} else {
			b.WriteString(w.styles.em.Render(w.inline(n)))
		}
	case *ast.CodeSpan:
		b.WriteString(w.styles.strong.Render(w.inline(n)))
	case *ast.Link:
		label := w.inline(n)
		b.WriteString(w.styles.link.Render(label))
		if dest := string(n.Destination); dest != label {
			b.WriteString(" " + w.styles.muted.Render("("+dest+")"))
		}
	case *ast.AutoLink:
		b.WriteString(w.styles.link.Render(string(n.URL(w.source))))
	case *ast.Image:
		b.WriteString(w.styles.muted.Render("[image: " + w.inline(n) + "]"))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(w.source))
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.span(c, b)
		}
	}
}
