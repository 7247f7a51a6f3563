// Package verify loads a processed Parquet file and prints descriptive
// statistics about it.
package verify

import (
	"fmt"
	"io"
	"sort"

	gptable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/montanaflynn/stats"

	"foodfacts-pipeline/clean"
	"foodfacts-pipeline/table"
)

// Nutritional columns reported in the per-nutrient statistics section.
var nutritionCols = []string{"energy_100g", "fat_100g", "sugars_100g", "salt_100g", "proteins_100g"}

// Report analyses a cleaned table and renders every section to w.
func Report(w io.Writer, t *table.Table, path string, sampleRows int) error {
	if t == nil || t.NumRows() == 0 {
		return fmt.Errorf("no rows in %s", path)
	}

	fmt.Fprintf(w, "analysis of %s (%d rows, %d columns)\n\n", path, t.NumRows(), t.NumCols())

	writeSummary(w, t)
	writeNutrientStats(w, t)
	writeGradeDistribution(w, t)
	writeTopBrands(w, t)
	writeQuality(w, t)
	writeSample(w, t, sampleRows)
	return nil
}

func writeSummary(w io.Writer, t *table.Table) {
	fmt.Fprintln(w, "summary")
	render(w, gptable.Row{"total_products", "unique_brands", "unique_categories"}, []gptable.Row{{
		t.NumRows(),
		distinct(t, "brands"),
		distinct(t, "categories"),
	}})
}

func writeNutrientStats(w io.Writer, t *table.Table) {
	fmt.Fprintln(w, "nutrient statistics (per 100g)")
	var rows []gptable.Row
	for _, name := range nutritionCols {
		j := t.ColIndex(name)
		if j < 0 {
			continue
		}
		var vals []float64
		for _, row := range t.Rows {
			if f, ok := table.AsNumber(row[j]); ok {
				vals = append(vals, f)
			}
		}
		if len(vals) == 0 {
			rows = append(rows, gptable.Row{name, 0, "-", "-", "-", "-", "-"})
			continue
		}
		mean, _ := stats.Mean(vals)
		median, _ := stats.Median(vals)
		std, _ := stats.StandardDeviationSample(vals)
		min, _ := stats.Min(vals)
		max, _ := stats.Max(vals)
		rows = append(rows, gptable.Row{
			name, len(vals), num(mean), num(median), num(std), num(min), num(max),
		})
	}
	render(w, gptable.Row{"column", "count", "mean", "median", "stddev", "min", "max"}, rows)
}

func writeGradeDistribution(w io.Writer, t *table.Table) {
	j := t.ColIndex("nutriscore_grade")
	if j < 0 {
		return
	}
	fmt.Fprintln(w, "nutri-score distribution")

	counts := make(map[string]int)
	for _, row := range t.Rows {
		counts[table.Stringify(row[j])]++
	}
	grades := make([]string, 0, len(counts))
	for g := range counts {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(a, b int) bool {
		ra, rb := clean.GradeRank(grades[a]), clean.GradeRank(grades[b])
		if ra != rb {
			return ra < rb
		}
		return grades[a] < grades[b]
	})

	var rows []gptable.Row
	for _, g := range grades {
		pct := 100 * float64(counts[g]) / float64(t.NumRows())
		rows = append(rows, gptable.Row{g, counts[g], fmt.Sprintf("%.2f%%", pct)})
	}
	render(w, gptable.Row{"grade", "count", "share"}, rows)
}

func writeTopBrands(w io.Writer, t *table.Table) {
	j := t.ColIndex("brands")
	if j < 0 {
		return
	}
	fmt.Fprintln(w, "top brands")

	counts := make(map[string]int)
	for _, row := range t.Rows {
		b := table.Stringify(row[j])
		if b == "" || b == clean.Sentinel {
			continue
		}
		counts[b]++
	}
	type brandCount struct {
		brand string
		n     int
	}
	ranked := make([]brandCount, 0, len(counts))
	for b, n := range counts {
		ranked = append(ranked, brandCount{b, n})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].n != ranked[b].n {
			return ranked[a].n > ranked[b].n
		}
		return ranked[a].brand < ranked[b].brand
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	var rows []gptable.Row
	for _, bc := range ranked {
		rows = append(rows, gptable.Row{bc.brand, bc.n})
	}
	render(w, gptable.Row{"brand", "products"}, rows)
}

func writeQuality(w io.Writer, t *table.Table) {
	fmt.Fprintln(w, "data quality")
	rows := []gptable.Row{
		{"missing product_name", countSentinel(t, "product_name")},
		{"missing brands", countSentinel(t, "brands")},
		{"missing nutriscore_grade", countSentinel(t, "nutriscore_grade")},
		{"energy_100g null or zero", countNullOrZero(t, "energy_100g")},
	}
	render(w, gptable.Row{"check", "rows"}, rows)
}

func writeSample(w io.Writer, t *table.Table, n int) {
	if n <= 0 {
		return
	}
	if n > t.NumRows() {
		n = t.NumRows()
	}
	fmt.Fprintf(w, "sample (first %d rows)\n", n)

	header := make(gptable.Row, len(t.Cols))
	for i, c := range t.Cols {
		header[i] = c
	}
	var rows []gptable.Row
	for _, row := range t.Rows[:n] {
		rows = append(rows, gptable.Row(row))
	}
	render(w, header, rows)
}

// render draws one go-pretty table, light style, no outer border.
func render(w io.Writer, header gptable.Row, rows []gptable.Row) {
	tw := gptable.NewWriter()
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.SetStyle(gptable.StyleLight)
	tw.Style().Format = gptable.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	tw.Style().Options.DrawBorder = false
	fmt.Fprintln(w, tw.Render())
	fmt.Fprintln(w)
}

func distinct(t *table.Table, col string) int {
	j := t.ColIndex(col)
	if j < 0 {
		return 0
	}
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		seen[table.Stringify(row[j])] = true
	}
	return len(seen)
}

func countSentinel(t *table.Table, col string) int {
	j := t.ColIndex(col)
	if j < 0 {
		return 0
	}
	n := 0
	for _, row := range t.Rows {
		s := table.Stringify(row[j])
		if s == "" || s == clean.Sentinel {
			n++
		}
	}
	return n
}

func countNullOrZero(t *table.Table, col string) int {
	j := t.ColIndex(col)
	if j < 0 {
		return 0
	}
	n := 0
	for _, row := range t.Rows {
		f, ok := table.AsNumber(row[j])
		if !ok || f == 0 {
			n++
		}
	}
	return n
}

func num(f float64) string { return fmt.Sprintf("%.2f", f) }
