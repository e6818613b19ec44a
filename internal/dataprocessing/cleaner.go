package dataprocessing

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"acidentes/pkg/contracts/domain"
)

// DateLayout is the canonical layout of data_inversa after cleaning.
const DateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing data_inversa. The PRF files
// switched from day-first to ISO dates over the years.
var dateLayouts = []string{
	DateLayout,
	"02/01/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
}

var timeLayouts = []string{
	"15:04:05",
	"15:04",
}

// ImputedColumn records the global fill applied to one column.
type ImputedColumn struct {
	Column    string            `json:"column"`
	Kind      domain.ColumnKind `json:"-"`
	KindName  string            `json:"kind"`
	NullCount int               `json:"null_count"`
	FillValue string            `json:"fill_value"`
}

// CleaningReport aggregates the recoverable conditions met while cleaning.
type CleaningReport struct {
	Imputed         []ImputedColumn        `json:"imputed"`
	AllNullColumns  []ColumnAllNullWarning `json:"all_null_columns,omitempty"`
	UnparsableDates int                    `json:"unparsable_dates"`
	FutureDates     int                    `json:"future_dates"`
	// FutureDateRows holds the first flagged row indexes, capped by the
	// cleaner's sample size.
	FutureDateRows []int `json:"future_date_rows,omitempty"`
	DuplicateRows  int   `json:"duplicate_rows"`
}

// CellsImputed returns the total number of cells filled.
func (r *CleaningReport) CellsImputed() int {
	n := 0
	for _, c := range r.Imputed {
		n += c.NullCount
	}
	return n
}

// Cleaner imputes missing values, coerces the date and time columns and
// flags inconsistent dates.
type Cleaner struct {
	logger     *slog.Logger
	schema     map[string]domain.ColumnKind
	now        func() time.Time
	sampleSize int
}

// CleanerOption configures a Cleaner
type CleanerOption func(*Cleaner)

// WithClock sets the clock the future-date check compares against.
func WithClock(now func() time.Time) CleanerOption {
	return func(c *Cleaner) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFutureDateSampleSize caps the number of flagged row indexes kept.
func WithFutureDateSampleSize(n int) CleanerOption {
	return func(c *Cleaner) {
		if n >= 0 {
			c.sampleSize = n
		}
	}
}

// WithSchema overrides the declared column kinds.
func WithSchema(schema map[string]domain.ColumnKind) CleanerOption {
	return func(c *Cleaner) {
		c.schema = schema
	}
}

// NewCleaner creates a cleaner with the domain schema and the wall clock.
func NewCleaner(logger *slog.Logger, opts ...CleanerOption) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cleaner{
		logger:     logger.With(slog.String("component", "cleaner")),
		schema:     domain.Schema,
		now:        time.Now,
		sampleSize: 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean returns a new table where every null has been imputed (except in
// all-null columns), data_inversa is normalized to DateLayout or nulled when
// unparsable, and an integer hora column derived from horario is appended.
func (c *Cleaner) Clean(ctx context.Context, in *Table) (*Table, *CleaningReport, error) {
	for _, required := range []string{domain.ColumnDate, domain.ColumnTime} {
		if !in.Has(required) {
			return nil, nil, &MissingColumnError{Column: required, Stage: "clean"}
		}
	}

	report := &CleaningReport{}
	out := in.Clone()

	c.impute(ctx, out, report)
	c.coerceDates(ctx, out, report)

	hours, err := c.parseHours(out)
	if err != nil {
		return nil, nil, err
	}
	out, err = out.WithColumn(domain.ColumnHour, hours)
	if err != nil {
		return nil, nil, err
	}

	c.validate(ctx, out, report)

	c.logger.InfoContext(ctx, "Table cleaned",
		slog.Int("rows", out.Len()),
		slog.Int("columns_imputed", len(report.Imputed)),
		slog.Int("cells_imputed", report.CellsImputed()),
		slog.Int("unparsable_dates", report.UnparsableDates),
		slog.Int("future_dates", report.FutureDates),
		slog.Int("duplicate_rows", report.DuplicateRows))

	return out, report, nil
}

// impute fills nulls column by column with a value computed once over the
// whole table: the mode for text columns, the mean for numeric columns.
func (c *Cleaner) impute(ctx context.Context, t *Table, report *CleaningReport) {
	for j, name := range t.columns {
		nulls := 0
		for _, row := range t.rows {
			if !row[j].Valid {
				nulls++
			}
		}
		if nulls == 0 {
			continue
		}

		kind := ColumnKindOf(t, name, c.schema)
		if nulls == t.Len() {
			warning := ColumnAllNullWarning{Column: name, Kind: kind, Rows: t.Len()}
			report.AllNullColumns = append(report.AllNullColumns, warning)
			c.logger.WarnContext(ctx, "Column has no values to impute from",
				slog.String("column", name),
				slog.String("kind", kind.String()),
				slog.Int("rows", t.Len()))
			continue
		}

		var fill string
		if kind == domain.KindNumeric {
			mean, ok := meanFill(t, j)
			if ok {
				fill = mean
			} else {
				// Values that are not numbers make the column text.
				c.logger.DebugContext(ctx, "Numeric column holds text values, imputing mode",
					slog.String("column", name))
				kind = domain.KindText
			}
		}
		if kind != domain.KindNumeric {
			fill, _ = modeFill(t, j)
		}

		for i, row := range t.rows {
			if !row[j].Valid {
				t.set(i, j, NewCell(fill))
			}
		}

		report.Imputed = append(report.Imputed, ImputedColumn{
			Column:    name,
			Kind:      kind,
			KindName:  kind.String(),
			NullCount: nulls,
			FillValue: fill,
		})
		c.logger.DebugContext(ctx, "Column imputed",
			slog.String("column", name),
			slog.String("kind", kind.String()),
			slog.Int("nulls", nulls),
			slog.String("fill_value", fill))
	}
}

// coerceDates normalizes data_inversa; unparsable values become the
// null-date marker and the row is kept.
func (c *Cleaner) coerceDates(ctx context.Context, t *Table, report *CleaningReport) {
	j := t.index[domain.ColumnDate]
	for i, row := range t.rows {
		if !row[j].Valid {
			continue
		}
		d, ok := ParseDate(row[j].Value)
		if !ok {
			report.UnparsableDates++
			if report.UnparsableDates <= c.sampleSize {
				c.logger.DebugContext(ctx, "Unparsable date coerced to null",
					slog.Int("row", i),
					slog.String("value", row[j].Value))
			}
			t.set(i, j, NullCell())
			continue
		}
		t.set(i, j, NewCell(d.Format(DateLayout)))
	}
	if report.UnparsableDates > 0 {
		c.logger.WarnContext(ctx, "Unparsable dates coerced to null",
			slog.String("column", domain.ColumnDate),
			slog.Int("count", report.UnparsableDates))
	}
}

// parseHours derives hora from horario. Any unparsable value is fatal.
func (c *Cleaner) parseHours(t *Table) ([]Cell, error) {
	j := t.index[domain.ColumnTime]
	hours := make([]Cell, t.Len())
	for i, row := range t.rows {
		hour, err := ParseHour(row[j])
		if err != nil {
			return nil, &TimeParseError{Row: i, Column: domain.ColumnTime, Value: row[j].Value, Err: err}
		}
		hours[i] = NewCell(strconv.Itoa(hour))
	}
	return hours, nil
}

// validate reports, without changing anything, rows dated after today and
// fully duplicated rows.
func (c *Cleaner) validate(ctx context.Context, t *Table, report *CleaningReport) {
	now := c.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	j := t.index[domain.ColumnDate]
	seen := make(map[string]struct{}, t.Len())
	for i, row := range t.rows {
		if row[j].Valid {
			if d, err := time.Parse(DateLayout, row[j].Value); err == nil && d.After(today) {
				report.FutureDates++
				if len(report.FutureDateRows) < c.sampleSize {
					report.FutureDateRows = append(report.FutureDateRows, i)
				}
			}
		}

		key := rowKey(row)
		if _, dup := seen[key]; dup {
			report.DuplicateRows++
			continue
		}
		seen[key] = struct{}{}
	}

	if report.FutureDates > 0 {
		c.logger.WarnContext(ctx, "Rows dated in the future flagged for review",
			slog.Int("count", report.FutureDates),
			slog.String("reference_date", today.Format(DateLayout)),
			slog.Any("sample_rows", report.FutureDateRows))
	}
}

// ColumnKindOf returns the declared kind of a column, or infers it: numeric
// when every present value parses as a float, text otherwise. A column with
// no values at all is numeric only if declared so.
func ColumnKindOf(t *Table, name string, schema map[string]domain.ColumnKind) domain.ColumnKind {
	if kind, ok := schema[name]; ok {
		return kind
	}
	j, ok := t.index[name]
	if !ok {
		return domain.KindText
	}
	present := 0
	for _, row := range t.rows {
		if !row[j].Valid {
			continue
		}
		present++
		if _, err := parseNumber(row[j].Value); err != nil {
			return domain.KindText
		}
	}
	if present == 0 {
		return domain.KindText
	}
	return domain.KindNumeric
}

// modeFill returns the most frequent present value; ties go to the value
// encountered first in table order.
func modeFill(t *Table, j int) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for _, row := range t.rows {
		if !row[j].Valid {
			continue
		}
		v := row[j].Value
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	if len(order) == 0 {
		return "", false
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, true
}

// meanFill returns the arithmetic mean of the present values. It reports
// false when there is no present value or when any of them is not a number.
func meanFill(t *Table, j int) (string, bool) {
	values := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if !row[j].Valid {
			continue
		}
		v, err := parseNumber(row[j].Value)
		if err != nil {
			return "", false
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return "", false
	}
	return FormatNumber(stat.Mean(values, nil)), true
}

// ParseDate parses a data_inversa value in any of the known layouts.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// ParseHour returns the hour of a horario cell. The result is always in
// [0, 23] because the layouts only accept valid clock times.
func ParseHour(c Cell) (int, error) {
	if !c.Valid {
		return 0, errNullTime
	}
	v := strings.TrimSpace(c.Value)
	var lastErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, v)
		if err == nil {
			return ts.Hour(), nil
		}
		lastErr = err
	}
	return 0, lastErr
}

func parseNumber(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v), 64)
}

// FormatNumber renders a float with the fewest digits that round-trip,
// without exponent: 2 -> "2", 2.5 -> "2.5".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
