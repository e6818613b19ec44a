// Package files discovers the yearly accident files in a data directory.
//
// Discovery is used when the configuration asks for it instead of listing
// sources explicitly. Each file named after its year (2023.csv,
// datatran2024.xlsx) becomes one source; the encoding and delimiter of
// delimited files are guessed from their first bytes.
//
// Example usage:
//
//	sources, err := files.NewDiscovery(paths.WorkDir).DiscoverSources(paths.DataDir)
package files
