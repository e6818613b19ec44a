package exporter

import (
	"strings"
	"unicode/utf8"
)

// maxSheetNameLength is the worksheet name limit imposed by spreadsheet
// applications.
const maxSheetNameLength = 31

// countHeader labels the count column of a frequency table.
const countHeader = "quantidade"

// sheetName turns a table name into a valid worksheet name: forbidden
// characters become "_" and the name is cut to the length limit.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.Trim(name, "'"))
	if name == "" {
		name = "tabela"
	}
	for utf8.RuneCountInString(name) > maxSheetNameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

// frequencyHeader returns the header row of a frequency table sheet.
func frequencyHeader(columns []string) []any {
	row := make([]any, 0, len(columns)+1)
	for _, c := range columns {
		row = append(row, c)
	}
	return append(row, countHeader)
}
