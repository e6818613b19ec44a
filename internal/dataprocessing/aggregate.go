package dataprocessing

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"acidentes/pkg/contracts/domain"
)

// FrequencyRow is one group of a frequency table.
type FrequencyRow struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// FrequencyTable holds group counts over one or more columns. Rows are
// ordered by key, compared column by column.
type FrequencyTable struct {
	Name    string         `json:"name"`
	Columns []string       `json:"columns"`
	Rows    []FrequencyRow `json:"rows"`
}

// Total returns the number of rows that were counted.
func (f *FrequencyTable) Total() int {
	n := 0
	for _, r := range f.Rows {
		n += r.Count
	}
	return n
}

// Aggregation names a frequency table and the columns it groups by.
type Aggregation struct {
	Name    string
	Columns []string
}

// StandardAggregations are the frequency tables reported after derivation.
var StandardAggregations = []Aggregation{
	{Name: "tipo_gravidade", Columns: []string{domain.ColumnType, domain.ColumnSeverity}},
	{Name: "por_uf", Columns: []string{domain.ColumnState}},
	{Name: "por_clima", Columns: []string{domain.ColumnWeather}},
	{Name: "por_gravidade", Columns: []string{domain.ColumnSeverity}},
	{Name: "por_periodo", Columns: []string{domain.ColumnPeriodOfDay}},
}

// CountBy counts rows per distinct key over the given columns. Rows with a
// null in any key column are not counted.
func CountBy(t *Table, name string, columns ...string) (*FrequencyTable, error) {
	positions := make([]int, len(columns))
	for k, col := range columns {
		j, ok := t.index[col]
		if !ok {
			return nil, &MissingColumnError{Column: col, Stage: "aggregate"}
		}
		positions[k] = j
	}

	counts := make(map[string]*FrequencyRow)
	for _, row := range t.rows {
		keys := make([]string, len(positions))
		skip := false
		for k, j := range positions {
			if !row[j].Valid {
				skip = true
				break
			}
			keys[k] = row[j].Value
		}
		if skip {
			continue
		}
		id := strings.Join(keys, "\x1f")
		if fr, ok := counts[id]; ok {
			fr.Count++
			continue
		}
		counts[id] = &FrequencyRow{Keys: keys, Count: 1}
	}

	out := &FrequencyTable{
		Name:    name,
		Columns: append([]string(nil), columns...),
		Rows:    make([]FrequencyRow, 0, len(counts)),
	}
	for _, fr := range counts {
		out.Rows = append(out.Rows, *fr)
	}
	sort.Slice(out.Rows, func(a, b int) bool {
		return lessKeys(out.Rows[a].Keys, out.Rows[b].Keys)
	})
	return out, nil
}

func lessKeys(a, b []string) bool {
	for k := range a {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

// Aggregator computes the reporting frequency tables. It never changes the
// table it reads.
type Aggregator struct {
	logger       *slog.Logger
	aggregations []Aggregation
}

// NewAggregator creates an aggregator for the standard tables, or for aggs
// when given.
func NewAggregator(logger *slog.Logger, aggs ...Aggregation) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if len(aggs) == 0 {
		aggs = StandardAggregations
	}
	return &Aggregator{
		logger:       logger.With(slog.String("component", "aggregator")),
		aggregations: aggs,
	}
}

// Aggregate computes every configured frequency table and logs each one.
func (a *Aggregator) Aggregate(ctx context.Context, t *Table) ([]*FrequencyTable, error) {
	tables := make([]*FrequencyTable, 0, len(a.aggregations))
	for _, agg := range a.aggregations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ft, err := CountBy(t, agg.Name, agg.Columns...)
		if err != nil {
			return nil, err
		}
		tables = append(tables, ft)

		groups := make([]any, 0, len(ft.Rows))
		for _, r := range ft.Rows {
			groups = append(groups, slog.Int(strings.Join(r.Keys, " / "), r.Count))
		}
		a.logger.InfoContext(ctx, "Frequency table",
			slog.String("name", ft.Name),
			slog.Any("columns", ft.Columns),
			slog.Int("total", ft.Total()),
			slog.Group("counts", groups...))
	}
	return tables, nil
}
