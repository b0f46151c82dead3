package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ReadCSV streams a headed CSV file as row maps. All values arrive as
// strings; the normalizer coerces them per the survey schema.
func ReadCSV(r io.Reader) (<-chan map[string]any, <-chan error) {
	rows := make(chan map[string]any, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(rows)
		defer close(errs)

		reader := csv.NewReader(r)
		reader.TrimLeadingSpace = true

		header, err := reader.Read()
		if err != nil {
			errs <- fmt.Errorf("failed to read csv header: %w", err)
			return
		}

		for {
			fields, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			row := make(map[string]any, len(header))
			for i, name := range header {
				if i < len(fields) {
					row[name] = fields[i]
				}
			}
			rows <- row
		}
	}()

	return rows, errs
}

// ReadJSONL streams newline-delimited JSON objects as row maps. Blank
// lines are skipped.
func ReadJSONL(r io.Reader) (<-chan map[string]any, <-chan error) {
	rows := make(chan map[string]any, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(rows)
		defer close(errs)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			var row map[string]any
			if err := json.Unmarshal([]byte(text), &row); err != nil {
				errs <- fmt.Errorf("line %d: %w", line, err)
				return
			}
			rows <- row
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()

	return rows, errs
}
