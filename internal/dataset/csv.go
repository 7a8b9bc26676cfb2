package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// readDelimited reads every record of a CSV or TSV stream, keeping the
// line each record starts on.
func readDelimited(r io.Reader, comma rune) ([]record, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	var records []record
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record{fields: fields, line: line})
	}

	return records, nil
}
