// Package importer reads pages in bulk from an .xlsx spreadsheet.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/site-builder/internal/models"
	"github.com/xuri/excelize/v2"
)

// Columns recognized in the header row. Only title is required.
const (
	colTitle           = "title"
	colSlug            = "slug"
	colContent         = "content"
	colMetaDescription = "meta_description"
	colIsHomepage      = "is_homepage"
	colNofollow        = "nofollow"

	headerRowIndex = 1 // Excel rows are 1-based, header is row 1
	maxRows        = 1000
)

// PageRow represents a parsed row from the spreadsheet.
type PageRow struct {
	Row             int // Excel row number (for error reporting)
	Title           string
	Slug            string
	Content         string
	MetaDescription string
	IsHomepage      bool
	Nofollow        bool
}

// ImportError represents a validation error for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ValidateRow validates a single row and returns an error message or empty string.
func ValidateRow(row PageRow) string {
	if strings.TrimSpace(row.Title) == "" {
		return "title is required"
	}
	if utf8.RuneCountInString(row.MetaDescription) > models.MaxMetaDescription {
		return fmt.Sprintf("meta_description must be at most %d characters", models.MaxMetaDescription)
	}
	return ""
}

// ToRequest converts a row into a page request.
func ToRequest(row PageRow) *models.PageRequest {
	return &models.PageRequest{
		Title:           strings.TrimSpace(row.Title),
		Slug:            strings.TrimSpace(row.Slug),
		Content:         row.Content,
		MetaDescription: strings.TrimSpace(row.MetaDescription),
		IsHomepage:      row.IsHomepage,
		Nofollow:        row.Nofollow,
	}
}

// ParseExcelFile reads the first sheet. Rows failing validation are
// reported and skipped; blank rows are ignored.
func ParseExcelFile(r io.Reader) ([]PageRow, []ImportError) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, []ImportError{{Row: 0, Error: "failed to open spreadsheet: " + err.Error()}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, []ImportError{{Row: 0, Error: "spreadsheet has no sheets"}}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, []ImportError{{Row: 0, Error: "failed to read rows: " + err.Error()}}
	}
	if len(rows) < headerRowIndex {
		return nil, []ImportError{{Row: headerRowIndex, Error: "header row is missing"}}
	}

	columns := headerColumns(rows[headerRowIndex-1])
	if _, ok := columns[colTitle]; !ok {
		return nil, []ImportError{{Row: headerRowIndex, Error: "header must include a title column"}}
	}
	if len(rows)-headerRowIndex > maxRows {
		return nil, []ImportError{{Row: 0, Error: fmt.Sprintf("at most %d rows can be imported at once", maxRows)}}
	}

	var parsed []PageRow
	var importErrs []ImportError
	for i, cells := range rows[headerRowIndex:] {
		rowNum := i + headerRowIndex + 1
		if blank(cells) {
			continue
		}

		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(cells) {
				return ""
			}
			return cells[idx]
		}

		row := PageRow{
			Row:             rowNum,
			Title:           cell(colTitle),
			Slug:            cell(colSlug),
			Content:         cell(colContent),
			MetaDescription: cell(colMetaDescription),
		}

		var flagErr string
		if row.IsHomepage, flagErr = parseFlag(colIsHomepage, cell(colIsHomepage)); flagErr != "" {
			importErrs = append(importErrs, ImportError{Row: rowNum, Error: flagErr})
			continue
		}
		if row.Nofollow, flagErr = parseFlag(colNofollow, cell(colNofollow)); flagErr != "" {
			importErrs = append(importErrs, ImportError{Row: rowNum, Error: flagErr})
			continue
		}

		if msg := ValidateRow(row); msg != "" {
			importErrs = append(importErrs, ImportError{Row: rowNum, Error: msg})
			continue
		}
		parsed = append(parsed, row)
	}

	return parsed, importErrs
}

func headerColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		name = strings.ReplaceAll(name, " ", "_")
		if _, seen := columns[name]; !seen && name != "" {
			columns[name] = i
		}
	}
	return columns
}

func parseFlag(column, raw string) (bool, string) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "", "no", "n":
		return false, ""
	case "yes", "y":
		return true, ""
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, column + " must be true or false"
	}
	return v, ""
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
