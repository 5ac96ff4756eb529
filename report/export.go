// Package report moves library data in and out of Excel workbooks.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"library-desk/library"
)

// Source is the part of the library service the export reads from.
type Source interface {
	Statistics(ctx context.Context, sess *library.Session) library.Result[*library.Statistics]
	ListIssues(ctx context.Context, sess *library.Session, f library.IssueFilter) library.Result[[]*library.BookIssue]
	ListFines(ctx context.Context, sess *library.Session, f library.FineFilter) library.Result[[]*library.Fine]
}

const (
	SheetSummary = "Summary"
	SheetLoans   = "Loans"
	SheetFines   = "Fines"

	dateLayout = "2006-01-02 15:04"
)

// ExportWorkbook writes the statistics snapshot, every loan and every fine
// visible to sess into a workbook at path.
func ExportWorkbook(ctx context.Context, src Source, sess *library.Session, path string) error {
	stats, err := src.Statistics(ctx, sess).Unwrap()
	if err != nil {
		return fmt.Errorf("statistics: %w", err)
	}
	loans, err := src.ListIssues(ctx, sess, library.IssueFilter{}).Unwrap()
	if err != nil {
		return fmt.Errorf("loans: %w", err)
	}
	fines, err := src.ListFines(ctx, sess, library.FineFilter{}).Unwrap()
	if err != nil {
		return fmt.Errorf("fines: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("style: %w", err)
	}
	w := &sheetWriter{f: f, header: header}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	w.table(SheetSummary, []any{"Metric", "Value"}, summaryRows(stats))
	w.table(SheetLoans, []any{"Loan", "Book code", "Title", "Member", "Issued", "Due", "Returned", "Status"},
		loanRows(loans, stats.GeneratedAt))
	w.table(SheetFines, []any{"Fine", "Loan", "Member", "Title", "Days overdue", "Total", "Paid", "Remaining", "Status", "Remarks"},
		fineRows(fines))
	if w.err != nil {
		return w.err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// sheetWriter keeps the first error so the table calls read straight.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) table(sheet string, header []any, rows [][]any) {
	if w.err != nil {
		return
	}
	if idx, _ := w.f.GetSheetIndex(sheet); idx < 0 {
		if _, err := w.f.NewSheet(sheet); err != nil {
			w.err = fmt.Errorf("new sheet %s: %w", sheet, err)
			return
		}
	}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		w.err = fmt.Errorf("%s header: %w", sheet, err)
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("%s header style: %w", sheet, err)
		return
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			w.err = fmt.Errorf("%s row %d: %w", sheet, i+2, err)
			return
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := w.f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		w.err = fmt.Errorf("%s widths: %w", sheet, err)
	}
}

func summaryRows(s *library.Statistics) [][]any {
	return [][]any{
		{"Generated at", s.GeneratedAt.Format(dateLayout)},
		{"Total books", s.TotalBooks},
		{"Available books", s.AvailableBooks},
		{"Total members", s.TotalMembers},
		{"Students", s.TotalStudents},
		{"Faculty", s.TotalFaculty},
		{"Active loans", s.ActiveIssues},
		{"Overdue loans", s.OverdueIssues},
		{"Pending fines", s.PendingFines.InexactFloat64()},
		{"Fines collected", s.FinesCollected.InexactFloat64()},
	}
}

func loanRows(loans []*library.BookIssue, now time.Time) [][]any {
	rows := make([][]any, 0, len(loans))
	for _, l := range loans {
		returned := ""
		if l.ReturnDate != nil {
			returned = l.ReturnDate.Format(dateLayout)
		}
		rows = append(rows, []any{
			l.ID, l.BookCode, l.BookTitle, l.MemberName,
			l.IssueDate.Format(dateLayout), l.DueDate.Format(dateLayout), returned,
			l.StatusLabel(now),
		})
	}
	return rows
}

func fineRows(fines []*library.Fine) [][]any {
	rows := make([][]any, 0, len(fines))
	for _, f := range fines {
		rows = append(rows, []any{
			f.ID, f.IssueID, f.MemberName, f.BookTitle, f.DaysOverdue,
			f.TotalAmount.InexactFloat64(), f.AmountPaid.InexactFloat64(), f.Remaining().InexactFloat64(),
			string(f.Status), f.Remarks,
		})
	}
	return rows
}
