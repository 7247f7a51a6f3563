// Package clean applies the fixed, ordered cleaning rules to a product
// table. The rule order is load-bearing: median fill (rule 3) runs before the
// nutrition coercion/clipping (rule 7), which recomputes each column's
// distribution after its own null handling.
package clean

import (
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"foodfacts-pipeline/table"
)

// Sentinel replaces missing text values.
const Sentinel = "not provided"

var (
	// Columns trimmed and lower-cased by rule 4.
	normalizeCols = []string{"product_name", "brands", "categories"}

	// Ordered Nutri-Score domain for rule 6.
	gradeDomain = []string{"a", "b", "c", "d", "e", Sentinel}

	// Nutritional columns coerced and clipped by rule 7.
	nutritionCols = []string{"energy_100g", "fat_100g", "sugars_100g", "salt_100g", "proteins_100g"}

	// Tag/list-valued columns flattened by rule 8.
	tagCols = []string{"categories", "packaging_tags", "labels_tags", "countries_tags"}
)

// Clean returns a cleaned copy of t. It never fails: an empty table is
// returned unchanged, and every rule is idempotent once the data is clean.
func Clean(t *table.Table, log zerolog.Logger) *table.Table {
	log = log.With().Str("component", "clean").Logger()

	if t == nil || t.NumRows() == 0 {
		log.Warn().Msg("empty table, nothing to clean")
		return t
	}

	out := t.Clone()
	before := out.NumRows()

	dropDuplicates(out, log)
	fillMissingText(out, log)
	fillMissingNumeric(out, log)
	normalizeText(out)
	coerceCode(out)
	gradeCategorical(out)
	cleanNutrition(out, log)
	flattenTags(out)

	log.Info().
		Int("rows", out.NumRows()).
		Int("cols", out.NumCols()).
		Int("dropped", before-out.NumRows()).
		Msg("table cleaned")
	return out
}

// Rule 1: drop duplicate rows by code, keeping the first occurrence.
func dropDuplicates(t *table.Table, log zerolog.Logger) {
	j := t.ColIndex("code")
	if j < 0 {
		return
	}
	seen := make(map[string]bool, len(t.Rows))
	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		// Null codes count as duplicates of each other as well.
		key := table.Stringify(row[j])
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	t.Rows = kept
	if dropped > 0 {
		log.Info().Int("duplicates", dropped).Msg("duplicate codes dropped")
	}
}

// Rule 2: null entries in text-typed columns become the sentinel.
func fillMissingText(t *table.Table, log zerolog.Logger) {
	for j := range t.Cols {
		if t.ColKind(j) != table.KindText {
			continue
		}
		filled := 0
		for _, row := range t.Rows {
			if row[j] == nil {
				row[j] = Sentinel
				filled++
			}
		}
		if filled > 0 {
			log.Debug().Str("column", t.Cols[j]).Int("filled", filled).Msg("missing text filled")
		}
	}
}

// Rule 3: null entries in numeric-typed columns become the column median, or
// 0 when the median is undefined (all null).
func fillMissingNumeric(t *table.Table, log zerolog.Logger) {
	for j := range t.Cols {
		if t.ColKind(j) != table.KindNumber {
			continue
		}
		var vals []float64
		nulls := 0
		for _, row := range t.Rows {
			if row[j] == nil {
				nulls++
				continue
			}
			if f, ok := table.AsNumber(row[j]); ok {
				vals = append(vals, f)
			}
		}
		if nulls == 0 {
			continue
		}
		fill := 0.0
		if len(vals) > 0 {
			if m, err := stats.Median(vals); err == nil {
				fill = m
			}
		}
		for _, row := range t.Rows {
			if row[j] == nil {
				row[j] = fill
			}
		}
		log.Debug().Str("column", t.Cols[j]).Int("filled", nulls).Float64("value", fill).Msg("missing numbers filled")
	}
}

// Rule 4: trim and lower-case the designated text columns. List cells are
// normalized element-wise so rule 8 can still join them.
func normalizeText(t *table.Table) {
	for _, name := range normalizeCols {
		j := t.ColIndex(name)
		if j < 0 {
			continue
		}
		for _, row := range t.Rows {
			switch v := row[j].(type) {
			case []any:
				// Clone shares cell values, so replace the slice instead of
				// rewriting it in place.
				norm := make([]any, len(v))
				for i, el := range v {
					norm[i] = strings.ToLower(strings.TrimSpace(table.Stringify(el)))
				}
				row[j] = norm
			default:
				row[j] = strings.ToLower(strings.TrimSpace(table.Stringify(v)))
			}
		}
	}
}

// Rule 5: the code column is always a string.
func coerceCode(t *table.Table) {
	j := t.ColIndex("code")
	if j < 0 {
		return
	}
	for _, row := range t.Rows {
		row[j] = table.Stringify(row[j])
	}
}

// Rule 6: nutriscore_grade is restricted to the ordered domain
// {a,b,c,d,e,sentinel}; anything else maps to the sentinel so the domain
// stays closed under repeated cleaning.
func gradeCategorical(t *table.Table) {
	j := t.ColIndex("nutriscore_grade")
	if j < 0 {
		return
	}
	for _, row := range t.Rows {
		g := strings.ToLower(strings.TrimSpace(table.Stringify(row[j])))
		if !inDomain(g) {
			g = Sentinel
		}
		row[j] = g
	}
}

func inDomain(g string) bool {
	for _, d := range gradeDomain {
		if g == d {
			return true
		}
	}
	return false
}

// GradeRank orders a grade within the categorical domain; unknown values sort
// last. Exposed for the verifier.
func GradeRank(g string) int {
	for i, d := range gradeDomain {
		if g == d {
			return i
		}
	}
	return len(gradeDomain)
}

// Rule 7: nutritional columns are coerced to numeric (unparseable values
// become null), negatives clip to 0, and values beyond 3 sample standard
// deviations from the mean clip to the nearer bound. Bounds are only applied
// when the column has a positive, defined standard deviation.
func cleanNutrition(t *table.Table, log zerolog.Logger) {
	for _, name := range nutritionCols {
		j := t.ColIndex(name)
		if j < 0 {
			continue
		}

		negatives := 0
		for _, row := range t.Rows {
			f, ok := toNumber(row[j])
			if !ok {
				row[j] = nil
				continue
			}
			if f < 0 {
				f = 0
				negatives++
			}
			row[j] = f
		}
		if negatives > 0 {
			log.Debug().Str("column", name).Int("negatives", negatives).Msg("negative values clipped to 0")
		}

		var vals []float64
		for _, row := range t.Rows {
			if f, ok := table.AsNumber(row[j]); ok {
				vals = append(vals, f)
			}
		}
		if len(vals) == 0 {
			continue
		}
		mean, errM := stats.Mean(vals)
		std, errS := stats.StandardDeviationSample(vals)
		if errM != nil || errS != nil || std <= 0 {
			continue
		}

		lower, upper := mean-3*std, mean+3*std
		outliers := 0
		for _, row := range t.Rows {
			f, ok := table.AsNumber(row[j])
			if !ok {
				continue
			}
			switch {
			case f < lower:
				row[j] = lower
				outliers++
			case f > upper:
				row[j] = upper
				outliers++
			}
		}
		if outliers > 0 {
			log.Debug().Str("column", name).Int("outliers", outliers).Msg("outliers clipped to 3-sigma bounds")
		}
	}
}

// toNumber is rule 7's coercion: numbers pass through, numeric strings parse,
// everything else is null.
func toNumber(v any) (float64, bool) {
	if f, ok := table.AsNumber(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Rule 8: tag/list-valued columns join into one comma-separated string;
// scalar values are stringified as-is.
func flattenTags(t *table.Table) {
	for _, name := range tagCols {
		j := t.ColIndex(name)
		if j < 0 {
			continue
		}
		for _, row := range t.Rows {
			switch v := row[j].(type) {
			case []any:
				parts := make([]string, 0, len(v))
				for _, el := range v {
					parts = append(parts, table.Stringify(el))
				}
				row[j] = strings.Join(parts, ", ")
			case string:
				// already flat
			case nil:
				row[j] = Sentinel
			default:
				row[j] = table.Stringify(v)
			}
		}
	}
}
