package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/keyledger/internal/database/repository"
	"github.com/jask/keyledger/internal/service"
)

const maxDetailsWidth = 40

// table renders aligned columns; right holds the indexes of numeric columns.
type table struct {
	headers []string
	rows    [][]string
	right   map[int]bool
}

func (t table) render() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(t.line(t.headers, widths, headerStyle))
	b.WriteByte('\n')
	for _, row := range t.rows {
		b.WriteString(t.line(row, widths, lipgloss.NewStyle()))
		b.WriteByte('\n')
	}
	return b.String()
}

func (t table) line(cells []string, widths []int, base lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		s := base.Width(widths[i])
		if t.right[i] {
			s = s.Align(lipgloss.Right)
		}
		parts[i] = s.Render(cell)
	}
	return strings.Join(parts, "  ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func directionStyle(d repository.Direction) lipgloss.Style {
	if d == repository.Credit {
		return creditStyle
	}
	return debitStyle
}

func renderTransactions(w io.Writer, txs []repository.Transaction, layout string) {
	if len(txs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No transactions"))
		return
	}
	t := table{
		headers: []string{"ID", "Date", "Details", "Amount", "Type", "Category"},
		right:   map[int]bool{0: true, 3: true},
	}
	for _, tx := range txs {
		t.rows = append(t.rows, []string{
			strconv.FormatInt(tx.ID, 10),
			tx.Date.Format(layout),
			cellStyle.Render(truncate(tx.Details, maxDetailsWidth)),
			directionStyle(tx.DebitOrCredit).Render(tx.Amount.StringFixed(2)),
			string(tx.DebitOrCredit),
			categoryStyle(tx.Category).Render(tx.Category),
		})
	}
	fmt.Fprint(w, t.render())
}

func renderImport(w io.Writer, res service.IngestResult, reapplied int) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("Imported %d transactions", len(res.Imported))))
	if res.Duplicates > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Skipped %d duplicates", res.Duplicates)))
	}
	if len(res.Rejected) > 0 {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Rejected %d rows", len(res.Rejected))))
		for _, err := range res.Rejected {
			fmt.Fprintln(w, errorStyle.Render("  "+err.Error()))
		}
	}
	if reapplied > 0 {
		fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("Reapplied dictionary: %d transactions recategorized", reapplied)))
	}
	fmt.Fprintln(w, mutedStyle.Render("batch "+res.BatchID))
}

func renderKeywords(w io.Writer, kws []repository.Keyword) {
	if len(kws) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No keywords"))
		return
	}
	var current string
	for _, k := range kws {
		if k.Category != current {
			current = k.Category
			fmt.Fprintln(w, titleStyle.Render(current))
		}
		fmt.Fprintln(w, "  "+k.Keyword)
	}
}

func renderKeywordResult(w io.Writer, res service.KeywordResult) {
	verb := "Added"
	if !res.Added {
		verb = "Already known:"
	}
	fmt.Fprintf(w, "%s %q under %s, %d transactions recategorized\n",
		verb, res.Keyword, categoryStyle(res.Category).Render(res.Category), len(res.Changes))
}

func renderSummary(w io.Writer, s service.Summary) {
	fmt.Fprintln(w, titleStyle.Render("Totals"))
	fmt.Fprint(w, table{
		headers: []string{"Debits", "Credits"},
		rows:    [][]string{{debitStyle.Render(s.Debits.StringFixed(2)), creditStyle.Render(s.Credits.StringFixed(2))}},
		right:   map[int]bool{0: true, 1: true},
	}.render())

	fmt.Fprintln(w, titleStyle.Render("Spending by category"))
	byCat := table{headers: []string{"Category", "Total"}, right: map[int]bool{1: true}}
	for _, ct := range s.ByCategory {
		byCat.rows = append(byCat.rows, []string{categoryStyle(ct.Category).Render(ct.Category), ct.Total.StringFixed(2)})
	}
	fmt.Fprint(w, byCat.render())

	fmt.Fprintln(w, titleStyle.Render("Spending by month"))
	byMonth := table{headers: []string{"Month", "Total"}, right: map[int]bool{1: true}}
	for _, mt := range s.ByMonth {
		byMonth.rows = append(byMonth.rows, []string{mt.Month, mt.Total.StringFixed(2)})
	}
	fmt.Fprint(w, byMonth.render())
}

func renderDuplicates(w io.Writer, pairs []service.DuplicatePair, layout string) {
	if len(pairs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No likely duplicates"))
		return
	}
	t := table{
		headers: []string{"A", "B", "Amount", "Days", "Similarity", "Details A", "Details B"},
		right:   map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true},
	}
	for _, p := range pairs {
		t.rows = append(t.rows, []string{
			strconv.FormatInt(p.A.ID, 10),
			strconv.FormatInt(p.B.ID, 10),
			p.A.Amount.StringFixed(2),
			strconv.Itoa(p.DaysApart),
			fmt.Sprintf("%.0f%%", p.Similarity*100),
			truncate(p.A.Details+" ("+p.A.Date.Format(layout)+")", maxDetailsWidth),
			truncate(p.B.Details+" ("+p.B.Date.Format(layout)+")", maxDetailsWidth),
		})
	}
	fmt.Fprint(w, t.render())
}

func renderHistory(w io.Writer, batches []repository.ImportBatch) {
	if len(batches) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No imports yet"))
		return
	}
	t := table{
		headers: []string{"Imported at", "Source", "Accepted", "Duplicates", "Rejected", "Batch"},
		right:   map[int]bool{2: true, 3: true, 4: true},
	}
	for _, b := range batches {
		t.rows = append(t.rows, []string{
			b.ImportedAt.Local().Format("2006-01-02 15:04"),
			b.Source,
			strconv.Itoa(b.Accepted),
			strconv.Itoa(b.Duplicates),
			strconv.Itoa(b.Rejected),
			mutedStyle.Render(b.ID),
		})
	}
	fmt.Fprint(w, t.render())
}
