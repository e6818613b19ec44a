package config

import "acidentes/pkg/contracts"

// Application constants
const (
	AppName    = "acidentes-consolidator"
	AppVersion = contracts.Version

	// EnvPrefix namespaces every environment variable, e.g. ACIDENTES_OUTPUT_DIR.
	EnvPrefix = "ACIDENTES"

	// Source formats
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	// Output defaults match the file the dashboard reads.
	DefaultOutputFileName       = "df_consolidado_atualizado.csv"
	DefaultConsolidatedFileName = "consolidado.csv"
	DefaultOutputEncoding       = "utf-8"
	DefaultOutputDelimiter      = ";"
	ManifestSuffix              = ".manifest.json"

	DefaultLogsDir              = "logs"
	DefaultFutureDateSampleSize = 20

	// ReferenceDateLayout is the layout of PipelineConfig.ReferenceDate.
	ReferenceDateLayout = "2006-01-02"
)
