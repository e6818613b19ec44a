package dataprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acidentes/internal/shared/testutil"
	"acidentes/pkg/contracts/domain"
)

func TestCountBy_SortsAndSkipsNullKeys(t *testing.T) {
	table := buildTable(t, []string{"uf", "tipo"},
		[]string{"SP", "a"},
		[]string{"MG", "b"},
		[]string{"SP", "b"},
		[]string{"", "a"},
		[]string{"SP", "a"},
	)

	byState, err := CountBy(table, "por_uf", "uf")
	require.NoError(t, err)
	assert.Equal(t, []FrequencyRow{
		{Keys: []string{"MG"}, Count: 1},
		{Keys: []string{"SP"}, Count: 3},
	}, byState.Rows)
	assert.Equal(t, 4, byState.Total())

	composite, err := CountBy(table, "uf_tipo", "uf", "tipo")
	require.NoError(t, err)
	assert.Equal(t, []FrequencyRow{
		{Keys: []string{"MG", "b"}, Count: 1},
		{Keys: []string{"SP", "a"}, Count: 2},
		{Keys: []string{"SP", "b"}, Count: 1},
	}, composite.Rows)
}

func TestCountBy_MissingColumn(t *testing.T) {
	table := buildTable(t, []string{"uf"}, []string{"SP"})

	_, err := CountBy(table, "x", "nope")

	var missing *MissingColumnError
	assert.ErrorAs(t, err, &missing)
}

func TestAggregator_StandardTables(t *testing.T) {
	table := buildTable(t, []string{
		domain.ColumnType, domain.ColumnSeverity, domain.ColumnState,
		domain.ColumnWeather, domain.ColumnPeriodOfDay,
	},
		[]string{"Colisão", domain.SeveritySevere, "MG", "Chuva", domain.PeriodNight},
		[]string{"Colisão", domain.SeveritySevere, "SP", "Chuva", domain.PeriodNight},
		[]string{"Atropelamento", domain.SeverityMinor, "SP", "Céu Claro", domain.PeriodMorning},
	)
	logger, logs := testutil.NewTestLogger(t)

	tables, err := NewAggregator(logger).Aggregate(context.Background(), table)
	require.NoError(t, err)

	require.Len(t, tables, len(StandardAggregations))
	for i, ft := range tables {
		assert.Equal(t, StandardAggregations[i].Name, ft.Name)
		assert.Equal(t, table.Len(), ft.Total(), ft.Name)
	}
	assert.Equal(t, []FrequencyRow{
		{Keys: []string{"Atropelamento", domain.SeverityMinor}, Count: 1},
		{Keys: []string{"Colisão", domain.SeveritySevere}, Count: 2},
	}, tables[0].Rows)

	assert.Equal(t, len(StandardAggregations), logs.Count())
	testutil.AssertNoErrors(t, logs)

	// Aggregation does not touch the table.
	assert.Equal(t, 5, table.Width())
	assert.Equal(t, 3, table.Len())
}
