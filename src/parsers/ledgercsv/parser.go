// backend/src/parsers/ledgercsv/parser.go
package ledgercsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/username/famfolio/backend/src/security/validation"
)

// Header is the column order of a ledger transaction file, shared by the
// importer and the exporter so files round-trip. The header row is required
// and matched case-insensitively so hand-edited files survive.
var Header = []string{
	"date", "type", "currency", "foreign_amount", "home_amount", "exchange_rate", "notes",
}

// RawRow holds the direct string values from a single CSV row. Validation and
// decimal parsing happen in the import service so every row can carry its own
// diagnostics.
type RawRow struct {
	// LineNumber is the 1-based physical line in the file, header included.
	LineNumber    int
	Date          string
	Type          string
	Currency      string
	ForeignAmount string
	HomeAmount    string
	ExchangeRate  string
	Notes         string
	RawLine       string
}

// Parser reads ledger transaction CSV exports.
type Parser struct{}

// NewParser creates a new instance of the ledger CSV Parser.
func NewParser() *Parser {
	return &Parser{}
}

func normalizeDecimalString(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "\"")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	return cleaned
}

// Parse reads the CSV and maps each data row into a RawRow. Structural
// problems (unreadable file, wrong header) fail the whole parse; per-field
// problems are left for row-level validation downstream.
func (p *Parser) Parse(file io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ledger csv: failed to read header: %w", err)
	}
	// Real bank exports carry BOMs and stray control characters.
	for i := range header {
		header[i] = validation.StripUnprintable(header[i])
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows []RawRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("ledger csv: failed to read line %d: %w", line, err)
		}
		for i := range record {
			record[i] = validation.StripUnprintable(record[i])
		}
		if isBlank(record) {
			continue
		}
		// Pad short records so downstream validation reports the missing
		// field instead of an index error.
		for len(record) < len(Header) {
			record = append(record, "")
		}
		rows = append(rows, RawRow{
			LineNumber:    line,
			Date:          strings.TrimSpace(record[0]),
			Type:          strings.TrimSpace(record[1]),
			Currency:      strings.TrimSpace(record[2]),
			ForeignAmount: normalizeDecimalString(record[3]),
			HomeAmount:    normalizeDecimalString(record[4]),
			ExchangeRate:  normalizeDecimalString(record[5]),
			Notes:         strings.TrimSpace(record[6]),
			RawLine:       strings.Join(record, ","),
		})
	}

	return rows, nil
}

func checkHeader(header []string) error {
	if len(header) < len(Header) {
		return fmt.Errorf("ledger csv: header has %d columns, expected %d (%s)", len(header), len(Header), strings.Join(Header, ","))
	}
	for i, want := range Header {
		got := strings.ToLower(strings.TrimSpace(header[i]))
		if got != want {
			return fmt.Errorf("ledger csv: header column %d is %q, expected %q", i+1, header[i], want)
		}
	}
	return nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
