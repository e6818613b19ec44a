package domain

// Column names of the PRF accident files. Only the columns the pipeline reads
// or derives are listed; any other column is carried through untouched.
const (
	ColumnID              = "id"
	ColumnDate            = "data_inversa"
	ColumnWeekday         = "dia_semana"
	ColumnTime            = "horario"
	ColumnState           = "uf"
	ColumnHighway         = "br"
	ColumnKilometer       = "km"
	ColumnCity            = "municipio"
	ColumnCause           = "causa_acidente"
	ColumnType            = "tipo_acidente"
	ColumnClassification  = "classificacao_acidente"
	ColumnWeather         = "condicao_metereologica"
	ColumnLatitude        = "latitude"
	ColumnLongitude       = "longitude"
	ColumnRegional        = "regional"
	ColumnPoliceStation   = "delegacia"
	ColumnOperationalUnit = "uop"
	ColumnPeople          = "pessoas"
	ColumnDeaths          = "mortos"
	ColumnMinorInjuries   = "feridos_leves"
	ColumnSevereInjuries  = "feridos_graves"
	ColumnUninjured       = "ilesos"
	ColumnIgnored         = "ignorados"
	ColumnInjured         = "feridos"
	ColumnVehicles        = "veiculos"
)

// Derived column names, in the order they are appended to the table.
const (
	ColumnHour         = "hora"
	ColumnDay          = "dia"
	ColumnMonth        = "mes"
	ColumnYear         = "ano"
	ColumnPeriodOfDay  = "periodo_dia"
	ColumnTotalInjured = "total_feridos"
	ColumnSeverity     = "gravidade_acidente"
	ColumnInjuryBand   = "faixa_feridos"
)

// DerivedColumns lists the columns the pipeline adds, in output order.
var DerivedColumns = []string{
	ColumnHour,
	ColumnDay,
	ColumnMonth,
	ColumnYear,
	ColumnPeriodOfDay,
	ColumnTotalInjured,
	ColumnSeverity,
	ColumnInjuryBand,
}

// Classification labels found in classificacao_acidente.
const (
	ClassificationFatal   = "Com Vítimas Fatais"
	ClassificationInjured = "Com Vítimas Feridas"
	ClassificationNone    = "Sem Vítimas"
)

// Severity labels for gravidade_acidente.
const (
	SeveritySevere   = "Grave"
	SeverityModerate = "Moderado"
	SeverityMinor    = "Leve"
)

// UnknownSeverityDefault is the severity assigned to classification labels that
// match no rule. It conflates "unrecognized" with "mildest" and is kept for
// compatibility with the published dashboards.
const UnknownSeverityDefault = SeverityMinor

// Period-of-day labels for periodo_dia.
const (
	PeriodDawn      = "Madrugada"
	PeriodMorning   = "Manhã"
	PeriodAfternoon = "Tarde"
	PeriodNight     = "Noite"
)

// Injury band labels for faixa_feridos, lowest first.
const (
	InjuryBandFew      = "Poucos"
	InjuryBandModerate = "Moderado"
	InjuryBandSevere   = "Grave"
)

// ColumnKind is the declared type of a column, which drives imputation.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
)

// String returns the kind name used in logs and reports.
func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	default:
		return "text"
	}
}

// Schema declares the kind of the columns whose type must not be inferred.
// br looks numeric but is a highway token; dates and times are text until
// the cleaner parses them.
var Schema = map[string]ColumnKind{
	ColumnID:              KindNumeric,
	ColumnDate:            KindText,
	ColumnWeekday:         KindText,
	ColumnTime:            KindText,
	ColumnState:           KindText,
	ColumnHighway:         KindText,
	ColumnCity:            KindText,
	ColumnCause:           KindText,
	ColumnType:            KindText,
	ColumnClassification:  KindText,
	ColumnWeather:         KindText,
	ColumnRegional:        KindText,
	ColumnPoliceStation:   KindText,
	ColumnOperationalUnit: KindText,
	ColumnMinorInjuries:   KindNumeric,
	ColumnSevereInjuries:  KindNumeric,
	ColumnInjured:         KindNumeric,
}
