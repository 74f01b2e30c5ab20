package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"bondsim/internal/core"
)

// Markdown renders the summary followed by the monthly ledger.
func Markdown(doc Document, currency string) string {
	var b strings.Builder
	p := doc.Params
	s := doc.Result.Summary

	fmt.Fprintf(&b, "# Bond coupon reinvestment\n\n")
	if doc.RunID != "" {
		fmt.Fprintf(&b, "Run `%s`\n\n", doc.RunID)
	}
	fmt.Fprintf(&b, "%s per month for %d years into %d-year bonds, starting %04d-%02d.\n\n",
		FormatAmount(p.MonthlyInvestment, currency), p.InvestmentYears, p.BondTenorYears, p.StartYear, p.StartMonth)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Total invested | Total interest | Duration |\n")
	b.WriteString("|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %s | %s | %d months |\n\n",
		FormatAmount(s.TotalInvested, currency), FormatAmount(s.TotalInterest, currency), s.DurationMonths)

	b.WriteString("## Ledger\n\n")
	b.WriteString("| " + strings.Join(Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---:|", len(Columns)) + "\n")
	for _, r := range doc.Result.Records {
		fmt.Fprintf(&b, "| %d | %d | %d | %s | %s | %s | %s | %s | %s |\n",
			r.Month, r.Year, r.CalendarMonth,
			optionalString(r.PredictedAnnualYield, 3),
			optionalString(r.SemiAnnualRate, 5),
			FormatAmount(r.NewInvestment, currency),
			FormatAmount(r.CumulativeInvestment, currency),
			FormatAmount(r.InterestEarned, currency),
			FormatAmount(r.MaturedPrincipal, currency))
	}
	return b.String()
}

// HTML renders Markdown(doc) as an HTML fragment.
func HTML(doc Document, currency string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(doc, currency)), &buf); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

func optionalString(v *float64, places int) string {
	if v == nil {
		return "-"
	}
	return core.FormatFixed(*v, int32(places))
}
