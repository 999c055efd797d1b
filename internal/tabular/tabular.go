// Package tabular parses the bulk CSV downloads published by the budget
// transparency portal. Upstream files vary in encoding, delimiter, and
// header spelling across years; parsing auto-detects the combination and
// maps known header variants onto canonical field names.
package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Row is one parsed record keyed by canonical field name. Columns without
// a known alias keep their normalized header, preserved for auditability.
type Row map[string]string

// Table is a parsed CSV file.
type Table struct {
	Rows []Row
	// Unfiltered is set when a year filter was requested but no year
	// column could be located.
	Unfiltered bool
}

// candidate pairs an encoding with a human label for logs. A nil encoding
// means plain UTF-8.
type candidate struct {
	label string
	enc   encoding.Encoding
}

// Detection is attempted in this fixed priority order, crossed with the
// delimiter list; the first combination that parses without structural
// error wins.
var encodings = []candidate{
	{"utf-8", nil},
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
}

var delimiters = []rune{';', ',', '\t'}

// Parse decodes the file using encoding/delimiter detection and maps
// headers through the alias table. It fails only when every combination
// fails structurally.
func Parse(data []byte) (*Table, error) {
	var lastErr error
	for _, enc := range encodings {
		decoded, err := decode(data, enc)
		if err != nil {
			lastErr = err
			continue
		}
		for _, delim := range delimiters {
			table, err := parseWith(decoded, delim)
			if err != nil {
				lastErr = err
				continue
			}
			zap.L().Debug("csv parsed",
				zap.String("encoding", enc.label),
				zap.String("delimiter", string(delim)),
				zap.Int("rows", len(table.Rows)),
			)
			return table, nil
		}
	}
	return nil, eris.Wrap(lastErr, "tabular: no encoding/delimiter combination parsed")
}

// ParseYearFiltered parses the file and keeps only rows for targetYear.
// When no year column exists the full table is returned with Unfiltered
// set and a warning logged; downstream consumers must tolerate that.
func ParseYearFiltered(data []byte, targetYear int) (*Table, error) {
	table, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return table.FilterYear(targetYear), nil
}

func decode(data []byte, enc candidate) ([]byte, error) {
	if enc.enc == nil {
		if !utf8.Valid(data) {
			return nil, eris.New("tabular: not valid utf-8")
		}
		return data, nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.enc.NewDecoder()))
	if err != nil {
		return nil, eris.Wrapf(err, "tabular: decode %s", enc.label)
	}
	return decoded, nil
}

func parseWith(data []byte, delim rune) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = 0 // header fixes the width; deviations are structural errors

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read header")
	}
	if len(header) < 2 {
		// A one-column header almost always means the wrong delimiter.
		return nil, eris.Errorf("tabular: implausible header width %d", len(header))
	}

	canonical := make([]string, len(header))
	for i, h := range header {
		canonical[i] = CanonicalField(h)
	}

	table := &Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "tabular: read row")
		}

		row := make(Row, len(record))
		for i, field := range record {
			if i >= len(canonical) {
				break
			}
			row[canonical[i]] = strings.TrimSpace(field)
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// yearColumns lists the canonical and raw header spellings a year value may
// hide behind, tried in order.
var yearColumns = []string{"year", "ano", "ano_da_emenda", "ano_emenda"}

// FilterYear keeps rows whose year column equals target. The receiver is
// not modified.
func (t *Table) FilterYear(target int) *Table {
	col := ""
	for _, c := range yearColumns {
		if len(t.Rows) > 0 {
			if _, ok := t.Rows[0][c]; ok {
				col = c
				break
			}
		}
	}
	if col == "" {
		zap.L().Warn("tabular: year column not found, returning unfiltered table",
			zap.Int("target_year", target),
		)
		return &Table{Rows: t.Rows, Unfiltered: true}
	}

	out := &Table{}
	for _, row := range t.Rows {
		if parseIntOr(row[col], 0) == target {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	return n
}
