package report

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"library-desk/library"
)

type fakeSource struct {
	stats   *library.Statistics
	loans   []*library.BookIssue
	fines   []*library.Fine
	failErr error
}

func (s *fakeSource) Statistics(context.Context, *library.Session) library.Result[*library.Statistics] {
	if s.failErr != nil {
		return library.Result[*library.Statistics]{Message: s.failErr.Error(), Err: s.failErr}
	}
	return library.Result[*library.Statistics]{Success: true, Value: s.stats}
}

func (s *fakeSource) ListIssues(context.Context, *library.Session, library.IssueFilter) library.Result[[]*library.BookIssue] {
	return library.Result[[]*library.BookIssue]{Success: true, Value: s.loans}
}

func (s *fakeSource) ListFines(context.Context, *library.Session, library.FineFilter) library.Result[[]*library.Fine] {
	return library.Result[[]*library.Fine]{Success: true, Value: s.fines}
}

func TestExportWorkbook(t *testing.T) {
	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	returned := now.Add(-time.Hour)
	src := &fakeSource{
		stats: &library.Statistics{
			TotalBooks: 4, AvailableBooks: 3, TotalMembers: 2, TotalStudents: 1, TotalFaculty: 1,
			ActiveIssues: 1, OverdueIssues: 1,
			PendingFines: decimal.RequireFromString("4.50"), FinesCollected: decimal.RequireFromString("1.50"),
			GeneratedAt: now,
		},
		loans: []*library.BookIssue{
			{ID: 1, BookCode: "BK-000001-001", BookTitle: "Dune", MemberName: "Ana Pop",
				IssueDate: now.AddDate(0, 0, -20), DueDate: now.AddDate(0, 0, -6), Status: library.IssueStatusIssued},
			{ID: 2, BookCode: "BK-000002-001", BookTitle: "Emma", MemberName: "Ion Ionescu",
				IssueDate: now.AddDate(0, 0, -3), DueDate: now.AddDate(0, 0, 27), ReturnDate: &returned,
				Status: library.IssueStatusReturned},
		},
		fines: []*library.Fine{
			{ID: 7, IssueID: 3, MemberName: "Ana Pop", BookTitle: "Ulysses", DaysOverdue: 6,
				TotalAmount: decimal.NewFromInt(6), AmountPaid: decimal.RequireFromString("1.50"),
				Status: library.FineStatusPartial},
		},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, ExportWorkbook(context.Background(), src, nil, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetLoans, SheetFines}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summary, 11)
	assert.Equal(t, []string{"Total books", "4"}, summary[2])
	assert.Equal(t, []string{"Pending fines", "4.5"}, summary[9])

	loans, err := f.GetRows(SheetLoans)
	require.NoError(t, err)
	require.Len(t, loans, 3)
	assert.Equal(t, "Overdue (6 days)", loans[1][7])
	assert.Equal(t, "Returned", loans[2][7])

	fines, err := f.GetRows(SheetFines)
	require.NoError(t, err)
	require.Len(t, fines, 2)
	assert.Equal(t, "4.5", fines[1][7])
	assert.Equal(t, "Partial", fines[1][8])
}

func TestExportWorkbookPropagatesFailure(t *testing.T) {
	src := &fakeSource{failErr: library.ErrNotAuthenticated}
	err := ExportWorkbook(context.Background(), src, nil, filepath.Join(t.TempDir(), "r.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, library.ErrNotAuthenticated))
}

func catalogWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadCatalog(t *testing.T) {
	buf := catalogWorkbook(t, [][]any{
		{"ISBN", "Title", "Author", "Publisher", "Year", "Category", "Shelf", "Price", "Copies"},
		{"978-0-441-17271-9", "Dune", "Frank Herbert", "Ace", "1965", "SF", "A1", "9.99", "2"},
		{"978-0-14-143958-7", "Emma", "Jane Austen"},
		{"978-0-00-000000-0", "Bad", "Nobody", "", "nineteen"},
		{"978-0-00-000000-1", "Worse", "Nobody", "", "", "", "", "", "0"},
	})

	rows, rowErrs, err := ReadCatalog(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rowErrs, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Dune", rows[0].Book.Title)
	assert.Equal(t, 1965, rows[0].Book.PublicationYear)
	assert.Equal(t, "9.99", rows[0].Book.Price.String())
	assert.Equal(t, 2, rows[0].Copies)

	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, 1, rows[1].Copies)
	assert.True(t, rows[1].Book.Price.IsZero())

	assert.Contains(t, rowErrs[0].Error(), "line 4")
	assert.Contains(t, rowErrs[1].Error(), "line 5")
}

func TestReadCatalogNeedsHeader(t *testing.T) {
	buf := catalogWorkbook(t, [][]any{{"Title", "Author"}, {"Dune", "Herbert"}})
	_, _, err := ReadCatalog(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"isbn"`)
}
