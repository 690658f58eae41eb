package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonesrussell/site-builder/internal/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func createTestExcel(t *testing.T, headers []string, rows [][]string) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	sheetName := "Sheet1"

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, f.SetCellValue(sheetName, cell, h))
	}
	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			require.NoError(t, f.SetCellValue(sheetName, cell, val))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

var headers = []string{"Title", "Slug", "Content", "Meta Description", "is_homepage", "nofollow"}

func TestValidateRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		row     importer.PageRow
		wantErr string
	}{
		{name: "valid row", row: importer.PageRow{Title: "About"}},
		{name: "missing title", row: importer.PageRow{Title: "  "}, wantErr: "title is required"},
		{
			name:    "meta description too long",
			row:     importer.PageRow{Title: "About", MetaDescription: strings.Repeat("x", 161)},
			wantErr: "meta_description must be at most 160 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantErr, importer.ValidateRow(tt.row))
		})
	}
}

func TestParseExcelFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		headers        []string
		rows           [][]string
		wantRowCount   int
		wantErrorCount int
		wantErrorMsg   string
	}{
		{
			name:    "valid rows",
			headers: headers,
			rows: [][]string{
				{"Home", "home", "<p>Hi</p>", "Welcome", "yes", ""},
				{"Services", "", "<p>List</p>", "", "", "true"},
			},
			wantRowCount: 2,
		},
		{
			name:           "missing title column",
			headers:        []string{"slug", "content"},
			rows:           [][]string{{"a", "b"}},
			wantErrorCount: 1,
			wantErrorMsg:   "header must include a title column",
		},
		{
			name:    "bad flag is reported and skipped",
			headers: headers,
			rows: [][]string{
				{"Home", "", "", "", "sometimes", ""},
				{"About", "", "", "", "", ""},
			},
			wantRowCount:   1,
			wantErrorCount: 1,
			wantErrorMsg:   "is_homepage must be true or false",
		},
		{
			name:    "blank rows ignored",
			headers: headers,
			rows: [][]string{
				{"About"},
				{"", "", ""},
				{"Contact"},
			},
			wantRowCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rows, errs := importer.ParseExcelFile(createTestExcel(t, tt.headers, tt.rows))
			assert.Len(t, rows, tt.wantRowCount)
			require.Len(t, errs, tt.wantErrorCount)
			if tt.wantErrorMsg != "" {
				assert.Contains(t, errs[0].Error, tt.wantErrorMsg)
			}
		})
	}
}

func TestParseExcelFile_RowNumbersAndFlags(t *testing.T) {
	t.Parallel()

	rows, errs := importer.ParseExcelFile(createTestExcel(t, headers, [][]string{
		{"Home", "home", "<p>Hi</p>", "Welcome", "yes", "no"},
		{"", "orphan", "", "", "", ""},
		{"Partners", "partners", "", "", "0", "1"},
	}))

	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Row)

	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Row)
	assert.True(t, rows[0].IsHomepage)
	assert.False(t, rows[0].Nofollow)
	assert.Equal(t, "Welcome", rows[0].MetaDescription)
	assert.Equal(t, 4, rows[1].Row)
	assert.True(t, rows[1].Nofollow)
}

func TestParseExcelFile_NotASpreadsheet(t *testing.T) {
	t.Parallel()

	rows, errs := importer.ParseExcelFile(strings.NewReader("plain text"))
	assert.Empty(t, rows)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error, "failed to open spreadsheet")
}

func TestToRequest(t *testing.T) {
	t.Parallel()

	req := importer.ToRequest(importer.PageRow{Title: " About ", Slug: " about-us ", IsHomepage: true})
	assert.Equal(t, "About", req.Title)
	assert.Equal(t, "about-us", req.Slug)
	assert.True(t, req.IsHomepage)
	require.NoError(t, req.Validate())
}
