package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"mailsorter/internal/dashboard"
	"mailsorter/internal/model"
)

const subjectWidth = 60

var headerStyle = lipgloss.NewStyle().Bold(true)

func renderEmails(w io.Writer, emails []model.Email) {
	if len(emails) == 0 {
		fmt.Fprintln(w, "No emails.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CATEGORY", "FROM", "SUBJECT", "DATE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})
	for _, e := range emails {
		category := "-"
		if e.IsClassified {
			category = e.Category.String()
		}
		t.Row(category, e.From, truncate(e.Subject, subjectWidth), e.Date)
	}
	fmt.Fprintln(w, t.String())
}

func renderCounts(w io.Writer, s dashboard.State) {
	counts := s.Counts()
	parts := []string{fmt.Sprintf("%s: %d", dashboard.FilterAll, counts[dashboard.FilterAll])}
	for _, c := range model.Categories() {
		parts = append(parts, fmt.Sprintf("%s: %d", c, counts[c.String()]))
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// maskKey 只显示前 3 位和后 4 位
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
