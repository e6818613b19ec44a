package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"acidentes/pkg/contracts/domain"
)

// PeriodOfDay buckets an hour: 6-11 Manhã, 12-17 Tarde, 18-23 Noite and
// Madrugada for everything else, which covers 0-5.
func PeriodOfDay(hour int) string {
	switch {
	case hour >= 6 && hour <= 11:
		return domain.PeriodMorning
	case hour >= 12 && hour <= 17:
		return domain.PeriodAfternoon
	case hour >= 18 && hour <= 23:
		return domain.PeriodNight
	default:
		return domain.PeriodDawn
	}
}

var severityByClassification = map[string]string{
	domain.ClassificationFatal:   domain.SeveritySevere,
	domain.ClassificationInjured: domain.SeverityModerate,
	domain.ClassificationNone:    domain.SeverityMinor,
}

// Severity maps a classification label to a severity by exact match.
// Unrecognized labels get domain.UnknownSeverityDefault and known is false.
func Severity(classification string) (severity string, known bool) {
	if s, ok := severityByClassification[classification]; ok {
		return s, true
	}
	return domain.UnknownSeverityDefault, false
}

// InjuryBand buckets an injured count into [0,3), [3,10) and [10,inf). The
// bool is false for values outside the domain (negative or NaN).
func InjuryBand(injured float64) (string, bool) {
	switch {
	case math.IsNaN(injured) || injured < 0:
		return "", false
	case injured < 3:
		return domain.InjuryBandFew, true
	case injured < 10:
		return domain.InjuryBandModerate, true
	default:
		return domain.InjuryBandSevere, true
	}
}

// DerivationReport counts the rows whose derived values needed a fallback.
type DerivationReport struct {
	// UnknownClassifications maps each unrecognized classification label to
	// the number of rows that received the default severity.
	UnknownClassifications map[string]int `json:"unknown_classifications,omitempty"`
	NullDates              int            `json:"null_dates"`
	NullTotals             int            `json:"null_totals"`
	// InjuredOutOfDomain counts feridos values that were present but negative
	// or not a number; their band is null.
	InjuredOutOfDomain int `json:"injured_out_of_domain"`
}

// UnknownClassificationRows returns the number of rows that fell back to the
// default severity.
func (r *DerivationReport) UnknownClassificationRows() int {
	n := 0
	for _, c := range r.UnknownClassifications {
		n += c
	}
	return n
}

// Deriver appends the derived feature columns to a cleaned table.
type Deriver struct {
	logger *slog.Logger
}

// NewDeriver creates a feature deriver
func NewDeriver(logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{logger: logger.With(slog.String("component", "deriver"))}
}

// derivedInputs are the columns Derive reads.
var derivedInputs = []string{
	domain.ColumnDate,
	domain.ColumnHour,
	domain.ColumnMinorInjuries,
	domain.ColumnSevereInjuries,
	domain.ColumnClassification,
	domain.ColumnInjured,
}

// Derive returns a new table with dia, mes, ano, periodo_dia, total_feridos,
// gravidade_acidente and faixa_feridos appended, in that order. Every
// function is row-local.
func (d *Deriver) Derive(ctx context.Context, in *Table) (*Table, *DerivationReport, error) {
	for _, name := range derivedInputs {
		if !in.Has(name) {
			return nil, nil, &MissingColumnError{Column: name, Stage: "derive"}
		}
	}

	n := in.Len()
	var (
		day      = make([]Cell, n)
		month    = make([]Cell, n)
		year     = make([]Cell, n)
		period   = make([]Cell, n)
		total    = make([]Cell, n)
		severity = make([]Cell, n)
		band     = make([]Cell, n)
	)
	report := &DerivationReport{UnknownClassifications: make(map[string]int)}

	var (
		dateIdx    = in.index[domain.ColumnDate]
		hourIdx    = in.index[domain.ColumnHour]
		minorIdx   = in.index[domain.ColumnMinorInjuries]
		severeIdx  = in.index[domain.ColumnSevereInjuries]
		classIdx   = in.index[domain.ColumnClassification]
		injuredIdx = in.index[domain.ColumnInjured]
	)

	for i, row := range in.rows {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if dt, ok := cellDate(row[dateIdx]); ok {
			day[i] = NewCell(strconv.Itoa(dt.Day()))
			month[i] = NewCell(strconv.Itoa(int(dt.Month())))
			year[i] = NewCell(strconv.Itoa(dt.Year()))
		} else {
			report.NullDates++
		}

		hour, err := strconv.Atoi(row[hourIdx].Value)
		if !row[hourIdx].Valid || err != nil {
			return nil, nil, &TimeParseError{Row: i, Column: domain.ColumnHour, Value: row[hourIdx].Value, Err: errHourNotInteger}
		}
		period[i] = NewCell(PeriodOfDay(hour))

		if sum, ok := sumCells(row[minorIdx], row[severeIdx]); ok {
			total[i] = NewCell(FormatNumber(sum))
		} else {
			report.NullTotals++
		}

		label := row[classIdx].String()
		s, known := Severity(label)
		if !known {
			report.UnknownClassifications[label]++
		}
		severity[i] = NewCell(s)

		if row[injuredIdx].Valid {
			injured, err := parseNumber(row[injuredIdx].Value)
			b, ok := InjuryBand(injured)
			if err != nil || !ok {
				report.InjuredOutOfDomain++
			} else {
				band[i] = NewCell(b)
			}
		}
	}

	out, err := in.WithColumns(
		[]string{
			domain.ColumnDay,
			domain.ColumnMonth,
			domain.ColumnYear,
			domain.ColumnPeriodOfDay,
			domain.ColumnTotalInjured,
			domain.ColumnSeverity,
			domain.ColumnInjuryBand,
		},
		[][]Cell{day, month, year, period, total, severity, band},
	)
	if err != nil {
		return nil, nil, err
	}

	if rows := report.UnknownClassificationRows(); rows > 0 {
		labels := make([]string, 0, len(report.UnknownClassifications))
		for label := range report.UnknownClassifications {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		d.logger.WarnContext(ctx, "Unrecognized classification labels defaulted",
			slog.String("default_severity", domain.UnknownSeverityDefault),
			slog.Int("rows", rows),
			slog.Any("labels", labels))
	}
	if report.InjuredOutOfDomain > 0 {
		d.logger.WarnContext(ctx, "Injured counts outside the band domain left unbanded",
			slog.String("column", domain.ColumnInjured),
			slog.Int("rows", report.InjuredOutOfDomain))
	}

	d.logger.InfoContext(ctx, "Features derived",
		slog.Int("rows", out.Len()),
		slog.Int("columns", out.Width()),
		slog.Int("null_dates", report.NullDates),
		slog.Int("null_totals", report.NullTotals))

	return out, report, nil
}

func cellDate(c Cell) (time.Time, bool) {
	if !c.Valid {
		return time.Time{}, false
	}
	dt, err := time.Parse(DateLayout, c.Value)
	if err != nil {
		return time.Time{}, false
	}
	return dt, true
}

// sumCells adds two numeric cells; the sum is null when either side is null
// or not a number.
func sumCells(a, b Cell) (float64, bool) {
	if !a.Valid || !b.Valid {
		return 0, false
	}
	x, err := parseNumber(a.Value)
	if err != nil {
		return 0, false
	}
	y, err := parseNumber(b.Value)
	if err != nil {
		return 0, false
	}
	return x + y, true
}
