package cmd

import (
	"strings"
	"testing"
	"text/template"

	"github.com/etnz/tradejournal/date"
)

func TestGeneratePeriods(t *testing.T) {
	tests := []struct {
		name          string
		start, end    date.Date
		wantMonthly   int
		wantQuarterly int
		wantYearly    int
	}{
		{
			name: "empty journal",
		},
		{
			name:          "single day",
			start:         date.New(2025, 8, 15),
			end:           date.New(2025, 8, 15),
			wantMonthly:   1,
			wantQuarterly: 1,
			wantYearly:    1,
		},
		{
			name:          "single quarter",
			start:         date.New(2025, 7, 10),
			end:           date.New(2025, 9, 25),
			wantMonthly:   3,
			wantQuarterly: 1,
			wantYearly:    1,
		},
		{
			name:          "cross-year boundary",
			start:         date.New(2024, 12, 30),
			end:           date.New(2025, 1, 2),
			wantMonthly:   2,
			wantQuarterly: 2,
			wantYearly:    2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			counts := make(map[date.Period]int)
			for _, r := range generatePeriods(tc.start, tc.end) {
				p, ok := r.Period()
				if !ok {
					t.Fatalf("%v..%v is not a standard period", r.From, r.To)
				}
				counts[p]++
			}
			if counts[date.Monthly] != tc.wantMonthly || counts[date.Quarterly] != tc.wantQuarterly || counts[date.Yearly] != tc.wantYearly {
				t.Errorf("generatePeriods() = %d months, %d quarters, %d years, want %d, %d, %d",
					counts[date.Monthly], counts[date.Quarterly], counts[date.Yearly],
					tc.wantMonthly, tc.wantQuarterly, tc.wantYearly)
			}
		})
	}
}

func TestRenderFrontMatter(t *testing.T) {
	tpl := template.Must(template.New("fm").Parse("---\ntitle: {{.Report}} {{.Period.Identifier}}\n---"))
	task := reportTask{Period: date.Monthly.Range(date.New(2025, 3, 12)), Report: "summary"}

	got, err := renderFrontMatter(tpl, task)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "title: summary 2025-03") {
		t.Errorf("renderFrontMatter() = %q, want the title of the report", got)
	}
}
