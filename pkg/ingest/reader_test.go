package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, rows <-chan map[string]any, errs <-chan error) []map[string]any {
	t.Helper()
	var out []map[string]any
	for row := range rows {
		out = append(out, row)
	}
	require.NoError(t, <-errs)
	return out
}

func TestReadCSV(t *testing.T) {
	input := "id,ra,dec,mag\n" +
		"a1,150.0,2.0,14.2\n" +
		"b1,200.0,-30.0,\n"

	rows, errs := ReadCSV(strings.NewReader(input))
	out := collect(t, rows, errs)

	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0]["id"])
	assert.Equal(t, "150.0", out[0]["ra"])
	assert.Equal(t, "", out[1]["mag"])
}

func TestReadCSVEmptyInput(t *testing.T) {
	rows, errs := ReadCSV(strings.NewReader(""))
	for range rows {
	}
	assert.Error(t, <-errs)
}

func TestReadJSONL(t *testing.T) {
	input := `{"id":"a1","ra":150.0,"dec":2.0}` + "\n" +
		"\n" +
		`{"id":"b1","ra":200.0,"dec":-30.0,"mag":14.2}` + "\n"

	rows, errs := ReadJSONL(strings.NewReader(input))
	out := collect(t, rows, errs)

	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0]["id"])
	assert.Equal(t, 150.0, out[0]["ra"])
	assert.Equal(t, 14.2, out[1]["mag"])
}

func TestReadJSONLBadLine(t *testing.T) {
	rows, errs := ReadJSONL(strings.NewReader(`{"id":"a1"}` + "\n" + "{broken\n"))
	var count int
	for range rows {
		count++
	}
	assert.Equal(t, 1, count)
	assert.Error(t, <-errs)
}
