package parser

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
)

// delimiterOption matches DELIMITER 'x' in both the legacy and the
// parenthesised COPY option syntax.
var delimiterOption = regexp.MustCompile(`(?i)\bdelimiter\s+(?:as\s+)?'([^']|'')'`)

// ValidatePayload checks the COPY data of a CSV statement: quotes must be
// balanced and every row must have the same number of fields as the first.
// Statements without CSV data are accepted as they are.
func ValidatePayload(file string, stmt *Statement) error {
	if !stmt.HasPayload || !stmt.CSV || stmt.Payload == "" {
		return nil
	}

	r := csv.NewReader(strings.NewReader(stmt.Payload))
	r.Comma = payloadDelimiter(stmt.SQL)
	r.ReuseRecord = true

	for {
		_, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return payloadError(file, stmt, err)
		}
	}
}

func payloadDelimiter(sql string) rune {
	m := delimiterOption.FindStringSubmatch(sql)
	if m == nil {
		return ','
	}
	if m[1] == "''" {
		return '\''
	}
	d, _ := utf8.DecodeRuneInString(m[1])
	return d
}

func payloadError(file string, stmt *Statement, err error) error {
	first := stmt.Line + strings.Count(stmt.Text(), "\n")
	pe := &errors.ParseError{
		File:      file,
		Statement: stmt.Index,
		Line:      first,
		Code:      "22P04", // bad_copy_file_format
		Message:   fmt.Sprintf("invalid CSV data: %v", err),
		Err:       err,
	}
	var csvErr *csv.ParseError
	if stderrors.As(err, &csvErr) {
		pe.Line = first + csvErr.Line - 1
		pe.Column = csvErr.Column
		pe.Message = fmt.Sprintf("invalid CSV data: %v", csvErr.Err)
	}
	return pe
}
