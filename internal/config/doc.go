// Package config provides centralized configuration management for the
// accident consolidation pipeline. It handles loading configuration from
// multiple sources, validation, and path resolution.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. .env.local (loaded into the environment if present)
//	3. YAML configuration file
//	4. Default values (lowest priority)
//
// With no file and no environment the defaults reproduce the original batch
// run: 2021.csv..2024.csv in the working directory, written to
// df_consolidado_atualizado.csv.
//
// # Environment Variables
//
// All environment variables follow the pattern ACIDENTES_* for namespacing:
//
//	ACIDENTES_CONFIG_FILE=configs/config.yaml
//	ACIDENTES_PIPELINE_DATA_DIR=/data/prf
//	ACIDENTES_PIPELINE_DISCOVER_SOURCES=true
//	ACIDENTES_OUTPUT_DIR=/srv/dashboard
//	ACIDENTES_LOGGING_LEVEL=debug
//	ACIDENTES_TELEMETRY_METRICS_TEXTFILE=/var/lib/node_exporter/acidentes.prom
//
// The source table is only configurable through the YAML file:
//
//	sources:
//	  - id: "2021"
//	    path: 2021.csv
//	    encoding: iso-8859-1
//	    delimiter: ";"
//	  - id: "2025"
//	    path: 2025.xlsx
//	    format: xlsx
//
// # Validation
//
// All configuration is validated at load time with struct tags; delimiters
// must be a single character and encodings must be known to package charset.
package config
