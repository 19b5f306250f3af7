package decisions

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = "\ufeffname,keep(Y/N),data_reviews,reason to extend,owner\n" +
	"events.app_opened,y,\"['https://github.com/mozilla-mobile/fenix/pull/1067']\",need more data,someone\n" +
	",,,,\n" +
	"events.app_closed,N,\"['https://github.com/mozilla-mobile/fenix/pull/1068']\",,\n" +
	"browser.engagement.bookmark_count, Yes ,\"[\"\"https://x/1\"\", 'https://x/2']\",\"still used, by product\"\n"

func TestParseCSV(t *testing.T) {
	rows, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, Row{
		Line:        2,
		Name:        "events.app_opened",
		Keep:        true,
		DataReviews: "['https://github.com/mozilla-mobile/fenix/pull/1067']",
		Reason:      "need more data",
	}, rows[0])
	require.Equal(t, 4, rows[1].Line)
	require.False(t, rows[1].Keep)
	require.Equal(t, "", rows[1].Reason)

	require.True(t, rows[2].Keep)
	require.Equal(t, "still used, by product", rows[2].Reason)
	refs, err := rows[2].PriorReviews()
	require.NoError(t, err)
	require.Equal(t, []string{"https://x/1", "https://x/2"}, refs)
}

func TestParseRejectsBadRows(t *testing.T) {
	_, err := Parse(strings.NewReader("name,keep(Y/N),data_reviews\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	require.Contains(t, err.Error(), "reason to extend")

	_, err = Parse(strings.NewReader(""))
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = Parse(strings.NewReader("name,keep(Y/N),data_reviews,reason to extend\na.b,maybe,[],x\n"))
	require.ErrorIs(t, err, ErrInvalidKeep)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	require.Equal(t, 2, fieldErr.Line)
	require.Equal(t, ColumnKeep, fieldErr.Column)

	_, err = Parse(strings.NewReader("name,keep(Y/N),data_reviews,reason to extend\n ,y,[],x\n"))
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestPriorReviewsReportsLine(t *testing.T) {
	row := Row{Line: 7, Name: "a.b", Keep: true, DataReviews: "os.system('x')"}
	_, err := row.PriorReviews()
	require.ErrorIs(t, err, ErrMalformedList)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	require.Equal(t, 7, fieldErr.Line)
	require.Equal(t, ColumnDataReviews, fieldErr.Column)
}

func TestParseKeep(t *testing.T) {
	for _, v := range []string{"y", "Y", " yes ", "YES"} {
		keep, err := ParseKeep(v)
		require.NoError(t, err, v)
		require.True(t, keep, v)
	}
	for _, v := range []string{"n", "N", "no"} {
		keep, err := ParseKeep(v)
		require.NoError(t, err, v)
		require.False(t, keep, v)
	}
	_, err := ParseKeep("")
	require.ErrorIs(t, err, ErrInvalidKeep)
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "120_expiry_list.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, table.Path)
	require.Len(t, table.Rows, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSpreadsheetMatchesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "120_expiry_list.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	records := [][]any{
		{"Name", "Keep(Y/N)", "data_reviews", "Reason to extend"},
		{"events.app_opened", "y", "['https://github.com/mozilla-mobile/fenix/pull/1067']", "need more data"},
		{"events.app_closed", "n", "['https://github.com/mozilla-mobile/fenix/pull/1068']", ""},
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &record))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Load(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	require.Equal(t, "events.app_opened", table.Rows[0].Name)
	require.True(t, table.Rows[0].Keep)
	require.Equal(t, "need more data", table.Rows[0].Reason)
	require.False(t, table.Rows[1].Keep)
	require.Equal(t, 3, table.Rows[1].Line)
}
