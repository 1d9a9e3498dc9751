package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	listStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderRight(true).PaddingRight(1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Faint(true)
)

const listWidth = 24

// View renders the list pane next to the detail pane.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	detailWidth := m.width - listWidth - 3
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(m.viewList()),
		m.viewDetail(detailWidth),
	)
	if !m.deps.UI.ShowFooter {
		return body
	}
	footer := footerStyle.Render("↑/↓ navigate · g/G first/last · r reload · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (m Model) viewList() string {
	if len(m.catalogKeys) == 0 {
		return dimStyle.Render("empty catalog")
	}

	visible := m.height - 3
	if visible < 1 {
		visible = len(m.catalogKeys)
	}
	start := 0
	if m.index >= visible {
		start = m.index - visible + 1
	}

	var b strings.Builder
	for i := start; i < len(m.catalogKeys) && i < start+visible; i++ {
		row := runewidth.Truncate(fmt.Sprintf("#%d  key %s", i, m.catalogKeys[i]), listWidth-2, "…")
		if i == m.index {
			b.WriteString(selectedStyle.Render("▸ " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) viewDetail(width int) string {
	switch {
	case m.loadErr != nil:
		// A failed current selection shows an explicit error state, never
		// stale data.
		return errorStyle.Render(fmt.Sprintf("load failed: %v", m.loadErr))
	case m.loading:
		return m.spin.View() + " assembling record..."
	case m.record == nil:
		return dimStyle.Render("record not found (it may appear after the next catalog update)")
	}

	rec := m.record
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(rec.Attributes.Accession))
	if rec.Attributes.Name != "" {
		fmt.Fprintf(&b, "%s\n", rec.Attributes.Name)
	}
	if rec.Attributes.Organism != "" {
		fmt.Fprintf(&b, "organism: %s\n", rec.Attributes.Organism)
	}
	fmt.Fprintf(&b, "length: %d bp   GC: %.1f%%   entropy: %.2f bits\n",
		rec.Stats.Length, rec.Stats.GCPercent, rec.Stats.Entropy)
	fmt.Fprintf(&b, "variants: %s   fingerprint: %016x\n",
		yesNo(rec.HasVariants), rec.Attributes.SeqHash)

	if len(rec.Genes) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render(fmt.Sprintf("genes (%d)", len(rec.Genes))))
		for i, g := range rec.Genes {
			if i == 8 {
				fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("… %d more", len(rec.Genes)-i)))
				break
			}
			line := fmt.Sprintf("%-12s %7d..%-7d %s %s", g.Locus, g.Start, g.End, strand(g.Strand), g.Product)
			fmt.Fprintf(&b, "%s\n", runewidth.Truncate(line, max(width, 20), "…"))
		}
	}

	if len(rec.Predictions) > 0 {
		fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("predictions"))
		for _, p := range rec.Predictions {
			fmt.Fprintf(&b, "%d. %-10s %.0f%%\n", p.Rank, p.Method, p.Confidence*100)
		}
	}

	if len(m.bias) > 0 {
		fmt.Fprintf(&b, "\n%s\n%s\n", titleStyle.Render("GC skew"), sparkline(m.bias, max(width, 20)))
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func strand(s int8) string {
	if s < 0 {
		return "-"
	}
	return "+"
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders values in [-1, 1] as a unicode bar strip.
func sparkline(values []float64, width int) string {
	if len(values) > width {
		values = values[:width]
	}
	var b strings.Builder
	for _, v := range values {
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		idx := int((v + 1) / 2 * float64(len(sparks)-1))
		b.WriteRune(sparks[idx])
	}
	return b.String()
}
