// Package roster turns uploaded CSV files into participant inputs.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarioJames/super-lotto/internal/models"
)

// Header aliases, matched case-insensitively after trimming.
var (
	nameColumns       = []string{"name", "姓名", "Full Name"}
	employeeIDColumns = []string{"employeeId", "employee_id", "Employee ID", "工号"}
	departmentColumns = []string{"department", "dept", "部门"}
	emailColumns      = []string{"email", "e-mail", "邮箱"}
)

// Template is the sample roster offered for download. Parse accepts it as is.
const Template = "姓名,工号,部门,邮箱\n" +
	"张三,EMP001,技术部,zhangsan@example.com\n" +
	"李四,EMP002,市场部,lisi@example.com\n"

// TemplateFilename is the download name of Template.
const TemplateFilename = "participants_template.csv"

// ErrNoNameColumn is returned when no header maps to the name field.
var ErrNoNameColumn = errors.New(`CSV must contain a "name" (or "姓名") column`)

// RowError describes one rejected data row. Row is 1-based and counts data
// rows only, so the header is not row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Result is the outcome of parsing a roster file.
type Result struct {
	Participants []models.ParticipantInput
	Errors       []RowError
	TotalRows    int
}

// Parse reads a header row followed by participant rows. Rows with an empty
// name are reported in Result.Errors and skipped; a malformed file or a
// missing name column fails the whole parse.
func Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	nameIdx := findColumnIndex(header, nameColumns)
	if nameIdx == -1 {
		return nil, ErrNoNameColumn
	}
	employeeIdx := findColumnIndex(header, employeeIDColumns)
	departmentIdx := findColumnIndex(header, departmentColumns)
	emailIdx := findColumnIndex(header, emailColumns)

	result := &Result{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", result.TotalRows+1, err)
		}
		if isBlank(row) {
			continue
		}
		result.TotalRows++

		name := field(row, nameIdx)
		if name == "" {
			result.Errors = append(result.Errors, RowError{Row: result.TotalRows, Message: "name is empty"})
			continue
		}
		result.Participants = append(result.Participants, models.ParticipantInput{
			Name:       name,
			EmployeeID: field(row, employeeIdx),
			Department: field(row, departmentIdx),
			Email:      field(row, emailIdx),
		})
	}
	return result, nil
}

// findColumnIndex finds the index of a column by possible names
func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
