package dataprocessing

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acidentes/internal/shared/testutil"
	"acidentes/pkg/contracts/domain"
)

var cleanerColumns = []string{
	domain.ColumnDate,
	domain.ColumnTime,
	domain.ColumnState,
	domain.ColumnMinorInjuries,
}

func fixedClock(day string) func() time.Time {
	return func() time.Time {
		ts, err := time.Parse(DateLayout, day)
		if err != nil {
			panic(err)
		}
		return ts.Add(15 * time.Hour)
	}
}

func newTestCleaner(t *testing.T, opts ...CleanerOption) (*Cleaner, *testutil.BufferedSlogHandler) {
	logger, logs := testutil.NewTestLogger(t)
	opts = append([]CleanerOption{WithClock(fixedClock("2024-06-30"))}, opts...)
	return NewCleaner(logger, opts...), logs
}

func TestCleaner_ImputesTextWithMode(t *testing.T) {
	in := buildTable(t, cleanerColumns,
		[]string{"2023-01-01", "10:00:00", "SP", "1"},
		[]string{"2023-01-02", "11:00:00", "SP", "1"},
		[]string{"2023-01-03", "12:00:00", "RJ", "1"},
		[]string{"2023-01-04", "13:00:00", "", "1"},
	)
	cleaner, _ := newTestCleaner(t)

	out, report, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	c, _ := out.Cell(3, domain.ColumnState)
	assert.Equal(t, "SP", c.Value)
	require.Len(t, report.Imputed, 1)
	assert.Equal(t, ImputedColumn{
		Column:    domain.ColumnState,
		Kind:      domain.KindText,
		KindName:  "text",
		NullCount: 1,
		FillValue: "SP",
	}, report.Imputed[0])

	// The input table is left as it was.
	assert.Equal(t, 1, in.NullCount(domain.ColumnState))
}

func TestCleaner_ModeTieGoesToFirstSeen(t *testing.T) {
	in := buildTable(t, cleanerColumns,
		[]string{"2023-01-01", "10:00", "RJ", "1"},
		[]string{"2023-01-01", "10:00", "SP", "1"},
		[]string{"2023-01-01", "10:00", "SP", "1"},
		[]string{"2023-01-01", "10:00", "RJ", "1"},
		[]string{"2023-01-01", "10:00", "", "1"},
	)
	cleaner, _ := newTestCleaner(t)

	out, _, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	c, _ := out.Cell(4, domain.ColumnState)
	assert.Equal(t, "RJ", c.Value)
}

func TestCleaner_ImputesNumericWithMean(t *testing.T) {
	in := buildTable(t, cleanerColumns,
		[]string{"2023-01-01", "10:00:00", "SP", "1"},
		[]string{"2023-01-01", "10:00:00", "SP", "2"},
		[]string{"2023-01-01", "10:00:00", "SP", ""},
	)
	cleaner, _ := newTestCleaner(t)

	out, report, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	c, _ := out.Cell(2, domain.ColumnMinorInjuries)
	assert.Equal(t, "1.5", c.Value)
	// Present values are not rewritten.
	c, _ = out.Cell(0, domain.ColumnMinorInjuries)
	assert.Equal(t, "1", c.Value)
	assert.Equal(t, 1, report.CellsImputed())
}

func TestCleaner_InfersKindOfUndeclaredColumns(t *testing.T) {
	columns := append(append([]string(nil), cleanerColumns...), "latitude", "veiculos")
	in := buildTable(t, columns,
		[]string{"2023-01-01", "10:00", "SP", "1", "-19,9", "2"},
		[]string{"2023-01-01", "10:00", "SP", "1", "-19,9", "4"},
		[]string{"2023-01-01", "10:00", "SP", "1", "-20,1", "3"},
		[]string{"2023-01-01", "10:00", "SP", "1", "", ""},
	)
	cleaner, _ := newTestCleaner(t)

	out, _, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	// Comma decimals do not parse as numbers: latitude is text, filled by mode.
	c, _ := out.Cell(3, "latitude")
	assert.Equal(t, "-19,9", c.Value)
	c, _ = out.Cell(3, "veiculos")
	assert.Equal(t, "3", c.Value)

	assert.Equal(t, domain.KindText, ColumnKindOf(in, "latitude", domain.Schema))
	assert.Equal(t, domain.KindNumeric, ColumnKindOf(in, "veiculos", domain.Schema))
	// Declared text even though every value looks numeric.
	highway := buildTable(t, []string{domain.ColumnHighway}, []string{"101"})
	assert.Equal(t, domain.KindText, ColumnKindOf(highway, domain.ColumnHighway, domain.Schema))
}

func TestCleaner_AllNullColumnIsLeftAndWarned(t *testing.T) {
	columns := append(append([]string(nil), cleanerColumns...), "vazio")
	in := buildTable(t, columns,
		[]string{"2023-01-01", "10:00", "SP", "1", ""},
		[]string{"2023-01-01", "10:00", "SP", "1", ""},
	)
	cleaner, logs := newTestCleaner(t)

	out, report, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, out.NullCount("vazio"))
	require.Len(t, report.AllNullColumns, 1)
	assert.Equal(t, "vazio", report.AllNullColumns[0].Column)
	assert.Equal(t, 2, report.AllNullColumns[0].Rows)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "no values to impute")
}

func TestCleaner_NumericColumnWithTextFallsBackToMode(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{name: "comma decimals", values: []string{"1,5", "2,5", ""}, expected: "1,5"},
		{name: "mixed text and numbers", values: []string{"abc", "4", ""}, expected: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{"2023-01-01", "10:00", "SP", v}
			}
			in := buildTable(t, cleanerColumns, rows...)
			cleaner, _ := newTestCleaner(t)

			out, report, err := cleaner.Clean(context.Background(), in)
			require.NoError(t, err)

			assert.Zero(t, out.NullCount(domain.ColumnMinorInjuries))
			c, _ := out.Cell(2, domain.ColumnMinorInjuries)
			assert.Equal(t, tt.expected, c.Value)
			assert.Empty(t, report.AllNullColumns)
			require.Len(t, report.Imputed, 1)
			assert.Equal(t, domain.KindText, report.Imputed[0].Kind)
			assert.Equal(t, tt.expected, report.Imputed[0].FillValue)
		})
	}
}

func TestCleaner_NoNullsRemainExceptDateMarkers(t *testing.T) {
	in := buildTable(t, cleanerColumns,
		[]string{"05/01/2023", "10:00:00", "", "1"},
		[]string{"not a date", "", "SP", ""},
		[]string{"", "22:10:00", "MG", "3"},
		[]string{"2023/01/07", "10:00:00", "SP", "2"},
	)
	cleaner, _ := newTestCleaner(t)

	out, report, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	for _, name := range out.Columns() {
		if name == domain.ColumnDate {
			continue
		}
		assert.Zero(t, out.NullCount(name), "column %s", name)
	}

	dates, _ := out.Column(domain.ColumnDate)
	assert.Equal(t, []Cell{
		NewCell("2023-01-05"),
		NullCell(),
		// The null was imputed with the raw mode before parsing.
		NewCell("2023-01-05"),
		NewCell("2023-01-07"),
	}, dates)
	assert.Equal(t, 1, report.UnparsableDates)
	assert.Equal(t, 4, out.Len())
}

func TestCleaner_DerivesHour(t *testing.T) {
	in := buildTable(t, cleanerColumns,
		[]string{"2023-01-01", "23:59:59", "SP", "1"},
		[]string{"2023-01-01", "00:00:00", "SP", "1"},
		[]string{"2023-01-01", "07:45", "SP", "1"},
	)
	cleaner, _ := newTestCleaner(t)

	out, _, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, append(append([]string(nil), cleanerColumns...), domain.ColumnHour), out.Columns())
	hours, _ := out.Column(domain.ColumnHour)
	assert.Equal(t, []Cell{NewCell("23"), NewCell("0"), NewCell("7")}, hours)
}

func TestCleaner_UnparsableTimeIsFatal(t *testing.T) {
	in := buildTable(t, cleanerColumns,
		[]string{"2023-01-01", "10:00:00", "SP", "1"},
		[]string{"2023-01-01", "25:00:00", "SP", "1"},
	)
	cleaner, _ := newTestCleaner(t)

	_, _, err := cleaner.Clean(context.Background(), in)

	var timeErr *TimeParseError
	require.ErrorAs(t, err, &timeErr)
	assert.Equal(t, 1, timeErr.Row)
	assert.Equal(t, "25:00:00", timeErr.Value)
}

func TestCleaner_RequiresDateAndTime(t *testing.T) {
	in := buildTable(t, []string{domain.ColumnDate, domain.ColumnState}, []string{"2023-01-01", "SP"})
	cleaner, _ := newTestCleaner(t)

	_, _, err := cleaner.Clean(context.Background(), in)

	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, domain.ColumnTime, missing.Column)
}

func TestCleaner_FlagsFutureDatesWithoutDropping(t *testing.T) {
	in := buildTable(t, cleanerColumns,
		[]string{"2024-06-30", "10:00", "SP", "1"},
		[]string{"2024-07-01", "10:00", "SP", "1"},
		[]string{"2030-01-01", "10:00", "SP", "1"},
		[]string{"2024-07-02", "10:00", "SP", "1"},
	)
	cleaner, logs := newTestCleaner(t, WithFutureDateSampleSize(1))

	out, report, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Len())
	assert.Equal(t, 3, report.FutureDates)
	assert.Equal(t, []int{1}, report.FutureDateRows)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "future")
}

func TestCleaner_CountsDuplicateRows(t *testing.T) {
	row := []string{"2023-01-01", "10:00", "SP", "1"}
	in := buildTable(t, cleanerColumns, row, row, row,
		[]string{"2023-01-02", "10:00", "SP", "1"},
	)
	cleaner, _ := newTestCleaner(t)

	out, report, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 2, report.DuplicateRows)
	assert.Equal(t, 4, out.Len())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2023-01-05", "2023-01-05", true},
		{"05/01/2023", "2023-01-05", true},
		{"2023/01/05", "2023-01-05", true},
		{" 2023-01-05 ", "2023-01-05", true},
		{"2023-02-30", "", false},
		{"janeiro", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format(DateLayout))
			}
		})
	}
}

func TestParseHour(t *testing.T) {
	h, err := ParseHour(NewCell("18:00:00"))
	require.NoError(t, err)
	assert.Equal(t, 18, h)

	_, err = ParseHour(NullCell())
	assert.Error(t, err)

	_, err = ParseHour(NewCell("6pm"))
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2", FormatNumber(2))
	assert.Equal(t, "2.5", FormatNumber(2.5))
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "1000000", FormatNumber(1e6))
}
