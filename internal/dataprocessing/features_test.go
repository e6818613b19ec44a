package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acidentes/internal/shared/testutil"
	"acidentes/pkg/contracts/domain"
)

func TestPeriodOfDay(t *testing.T) {
	hours := []int{0, 5, 6, 11, 12, 17, 18, 23}
	want := []string{
		domain.PeriodDawn, domain.PeriodDawn,
		domain.PeriodMorning, domain.PeriodMorning,
		domain.PeriodAfternoon, domain.PeriodAfternoon,
		domain.PeriodNight, domain.PeriodNight,
	}
	for i, h := range hours {
		assert.Equal(t, want[i], PeriodOfDay(h), "hour %d", h)
	}

	// Every hour maps to one of the four labels.
	labels := map[string]bool{
		domain.PeriodDawn: true, domain.PeriodMorning: true,
		domain.PeriodAfternoon: true, domain.PeriodNight: true,
	}
	for h := 0; h < 24; h++ {
		assert.True(t, labels[PeriodOfDay(h)], "hour %d", h)
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		classification string
		want           string
		known          bool
	}{
		{domain.ClassificationFatal, domain.SeveritySevere, true},
		{domain.ClassificationInjured, domain.SeverityModerate, true},
		{domain.ClassificationNone, domain.SeverityMinor, true},
		{"Ignorado", domain.UnknownSeverityDefault, false},
		{"com vítimas fatais", domain.UnknownSeverityDefault, false},
		{"", domain.UnknownSeverityDefault, false},
	}
	for _, tt := range tests {
		t.Run(tt.classification, func(t *testing.T) {
			got, known := Severity(tt.classification)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestInjuryBand(t *testing.T) {
	tests := []struct {
		injured float64
		want    string
		ok      bool
	}{
		{0, domain.InjuryBandFew, true},
		{2, domain.InjuryBandFew, true},
		{2.9, domain.InjuryBandFew, true},
		{3, domain.InjuryBandModerate, true},
		{9, domain.InjuryBandModerate, true},
		{10, domain.InjuryBandSevere, true},
		{250, domain.InjuryBandSevere, true},
		{-1, "", false},
		{math.NaN(), "", false},
	}
	for _, tt := range tests {
		got, ok := InjuryBand(tt.injured)
		assert.Equal(t, tt.want, got, "injured %v", tt.injured)
		assert.Equal(t, tt.ok, ok, "injured %v", tt.injured)
	}
}

var deriverColumns = []string{
	domain.ColumnDate,
	domain.ColumnHour,
	domain.ColumnClassification,
	domain.ColumnInjured,
	domain.ColumnMinorInjuries,
	domain.ColumnSevereInjuries,
}

func TestDeriver_AppendsColumnsInOrder(t *testing.T) {
	in := buildTable(t, deriverColumns,
		[]string{"2023-04-20", "23", domain.ClassificationFatal, "12", "10", "2"},
		[]string{"2023-12-01", "5", domain.ClassificationNone, "0", "0", "0"},
	)

	out, report, err := NewDeriver(nil).Derive(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, append(append([]string(nil), deriverColumns...),
		domain.ColumnDay, domain.ColumnMonth, domain.ColumnYear,
		domain.ColumnPeriodOfDay, domain.ColumnTotalInjured,
		domain.ColumnSeverity, domain.ColumnInjuryBand,
	), out.Columns())

	assert.Equal(t, []string{
		"2023-04-20", "23", domain.ClassificationFatal, "12", "10", "2",
		"20", "4", "2023", domain.PeriodNight, "12", domain.SeveritySevere, domain.InjuryBandSevere,
	}, out.Records()[0])
	assert.Equal(t, []string{
		"2023-12-01", "5", domain.ClassificationNone, "0", "0", "0",
		"1", "12", "2023", domain.PeriodDawn, "0", domain.SeverityMinor, domain.InjuryBandFew,
	}, out.Records()[1])

	assert.Zero(t, report.NullDates)
	assert.Zero(t, report.UnknownClassificationRows())
	assert.Equal(t, len(deriverColumns), in.Width())
}

func TestDeriver_TotalInjured(t *testing.T) {
	tests := []struct {
		name   string
		minor  string
		severe string
		want   string
	}{
		{name: "only severe", minor: "0", severe: "3", want: "3"},
		{name: "only minor", minor: "4", severe: "0", want: "4"},
		{name: "both zero", minor: "0", severe: "0", want: "0"},
		{name: "both present", minor: "10", severe: "2", want: "12"},
		{name: "fractional", minor: "1.5", severe: "2", want: "3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := buildTable(t, deriverColumns,
				[]string{"2023-04-20", "10", domain.ClassificationInjured, "1", tt.minor, tt.severe},
			)

			out, report, err := NewDeriver(nil).Derive(context.Background(), in)
			require.NoError(t, err)

			c, ok := out.Cell(0, domain.ColumnTotalInjured)
			require.True(t, ok)
			assert.Equal(t, NewCell(tt.want), c)
			assert.Zero(t, report.NullTotals)
		})
	}
}

func TestDeriver_NullsPropagate(t *testing.T) {
	in := buildTable(t, deriverColumns,
		[]string{"", "12", domain.ClassificationInjured, "", "1", ""},
		[]string{"2023-01-01", "12", domain.ClassificationInjured, "-2", "1", "1.5"},
	)

	out, report, err := NewDeriver(nil).Derive(context.Background(), in)
	require.NoError(t, err)

	for _, name := range []string{domain.ColumnDay, domain.ColumnMonth, domain.ColumnYear, domain.ColumnTotalInjured, domain.ColumnInjuryBand} {
		c, _ := out.Cell(0, name)
		assert.False(t, c.Valid, "column %s", name)
	}

	total, _ := out.Cell(1, domain.ColumnTotalInjured)
	assert.Equal(t, "2.5", total.Value)
	band, _ := out.Cell(1, domain.ColumnInjuryBand)
	assert.False(t, band.Valid)

	assert.Equal(t, 1, report.NullDates)
	assert.Equal(t, 1, report.NullTotals)
	assert.Equal(t, 1, report.InjuredOutOfDomain)
}

func TestDeriver_UnknownClassificationDefaults(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	in := buildTable(t, deriverColumns,
		[]string{"2023-01-01", "8", "Ignorado", "0", "0", "0"},
		[]string{"2023-01-01", "8", "Ignorado", "0", "0", "0"},
		[]string{"2023-01-01", "8", domain.ClassificationFatal, "0", "0", "0"},
	)

	out, report, err := NewDeriver(logger).Derive(context.Background(), in)
	require.NoError(t, err)

	severity, _ := out.Column(domain.ColumnSeverity)
	assert.Equal(t, []Cell{
		NewCell(domain.UnknownSeverityDefault),
		NewCell(domain.UnknownSeverityDefault),
		NewCell(domain.SeveritySevere),
	}, severity)
	assert.Equal(t, map[string]int{"Ignorado": 2}, report.UnknownClassifications)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "Unrecognized classification")
}

func TestDeriver_RejectsNonIntegerHour(t *testing.T) {
	in := buildTable(t, deriverColumns,
		[]string{"2023-01-01", "", domain.ClassificationFatal, "0", "0", "0"},
	)

	_, _, err := NewDeriver(nil).Derive(context.Background(), in)

	var timeErr *TimeParseError
	assert.ErrorAs(t, err, &timeErr)
}

func TestDeriver_RequiresInputs(t *testing.T) {
	in := buildTable(t, []string{domain.ColumnDate, domain.ColumnHour}, []string{"2023-01-01", "1"})

	_, _, err := NewDeriver(nil).Derive(context.Background(), in)

	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "derive", missing.Stage)
}

func TestCleanThenDerive(t *testing.T) {
	header := testutil.AccidentHeader
	var rows [][]string
	for _, r := range testutil.SampleAccidents() {
		rows = append(rows, r.Record())
	}
	in := buildTable(t, header, rows...)
	cleaner, _ := newTestCleaner(t)

	cleaned, _, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)
	out, _, err := NewDeriver(nil).Derive(context.Background(), cleaned)
	require.NoError(t, err)

	hours, _ := out.Column(domain.ColumnHour)
	periods, _ := out.Column(domain.ColumnPeriodOfDay)
	assert.Equal(t, []Cell{NewCell("5"), NewCell("6"), NewCell("12"), NewCell("23")}, hours)
	assert.Equal(t, []Cell{
		NewCell(domain.PeriodDawn),
		NewCell(domain.PeriodMorning),
		NewCell(domain.PeriodAfternoon),
		NewCell(domain.PeriodNight),
	}, periods)

	// total_feridos is never negative when both inputs are present.
	totals, _ := out.Column(domain.ColumnTotalInjured)
	for i, c := range totals {
		require.True(t, c.Valid)
		v, err := parseNumber(c.Value)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0, "row %d", i)
	}
}
