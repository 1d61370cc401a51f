package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/dto"
)

// CSVTemplate is the downloadable import template
const CSVTemplate = "name,surname\nJohn,Doe\nJane,Smith\n"

var (
	nameHeaders    = []string{"name", "first name", "firstname"}
	surnameHeaders = []string{"surname", "last name", "lastname"}
)

// ParseHolderCSV reads a header row and one holder per following row.
// Rows keep their data-row position so bulk errors point back at the file.
func ParseHolderCSV(r io.Reader) ([]dto.BulkTicketRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewValidationError("file", "CSV file is empty")
		}
		return nil, domain.NewValidationError("file", fmt.Sprintf("Invalid CSV: %v", err))
	}

	nameCol, surnameCol := -1, -1
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case nameCol < 0 && contains(nameHeaders, h):
			nameCol = i
		case surnameCol < 0 && contains(surnameHeaders, h):
			surnameCol = i
		}
	}
	if nameCol < 0 || surnameCol < 0 {
		return nil, domain.NewValidationError("file", "CSV must include name and surname columns")
	}

	var rows []dto.BulkTicketRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewValidationError("file", fmt.Sprintf("Invalid CSV: %v", err))
		}
		rows = append(rows, dto.BulkTicketRow{
			Name:    field(record, nameCol),
			Surname: field(record, surnameCol),
		})
	}

	if len(rows) == 0 {
		return nil, domain.NewValidationError("file", "CSV file has no data rows")
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
