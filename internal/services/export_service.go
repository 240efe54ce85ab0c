package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportService renders reporting data into downloadable documents.
type ExportService interface {
	DefaultersXLSX(ctx context.Context, actor Actor, academicYear string) ([]byte, error)
	OverviewXLSX(ctx context.Context, actor Actor, academicYear string) ([]byte, error)
	CollectionsCSV(ctx context.Context, actor Actor, query *repository.ListQuery) ([]byte, error)
	ReceiptPDF(ctx context.Context, actor Actor, transactionID string) ([]byte, error)
}

type exportService struct {
	repos   *repository.Repositories
	reports ReportService
}

// NewExportService creates a new export service
func NewExportService(repos *repository.Repositories, reports ReportService) ExportService {
	return &exportService{repos: repos, reports: reports}
}

func (s *exportService) DefaultersXLSX(ctx context.Context, actor Actor, academicYear string) ([]byte, error) {
	query := repository.NewListQuery()
	query.PerPage = 10000
	query.Filters["academic_year"] = academicYear

	defaulters, _, err := s.repos.Defaulter.List(ctx, actor.SchoolID, query)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Defaulters"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Student", "Grade", "Roll No", "Overdue Months", "Total Due", "Days Overdue", "Reminders Sent"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, d := range defaulters {
		values := []interface{}{
			d.Student.FullName,
			d.Student.Grade,
			d.Student.RollNo,
			fmt.Sprintf("%v", d.OverdueMonths),
			d.TotalDueAmount,
			d.DaysSinceFirstDue,
			d.NotificationCount,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *exportService) OverviewXLSX(ctx context.Context, actor Actor, academicYear string) ([]byte, error) {
	overview, err := s.reports.FinancialOverview(ctx, actor, academicYear)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	f.SetSheetName("Sheet1", summary)

	rows := [][]interface{}{
		{"Academic Year", overview.AcademicYear},
		{"Students", overview.TotalStudents},
		{"Expected", overview.TotalExpected},
		{"Collected", overview.TotalCollected},
		{"Pending", overview.TotalPending},
		{"Overdue", overview.TotalOverdue},
		{"Waived", overview.TotalWaived},
		{"Collection Rate (%)", overview.CollectionRate},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			f.SetCellValue(summary, cell, v)
		}
	}

	monthlySheet := "Monthly"
	f.NewSheet(monthlySheet)
	monthlyHeaders := []string{"Month", "Due", "Collected", "Waived", "Outstanding", "Paid Count", "Overdue Count"}
	for i, h := range monthlyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(monthlySheet, cell, h)
	}
	for r, m := range overview.MonthlyBreakdown {
		values := []interface{}{m.Month, m.Due, m.Collected, m.Waived, m.Outstanding, m.PaidCount, m.OverdueCount}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(monthlySheet, cell, v)
		}
	}

	gradeSheet := "Grades"
	f.NewSheet(gradeSheet)
	gradeHeaders := []string{"Grade", "Students", "Expected", "Collected", "Pending", "Collection Rate (%)"}
	for i, h := range gradeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(gradeSheet, cell, h)
	}
	for r, g := range overview.GradeBreakdown {
		values := []interface{}{g.Grade, g.Students, g.Expected, g.Collected, g.Pending, g.CollectionRate}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(gradeSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *exportService) CollectionsCSV(ctx context.Context, actor Actor, query *repository.ListQuery) ([]byte, error) {
	query.Filters["school_id"] = strconv.FormatUint(uint64(actor.SchoolID), 10)
	query.PerPage = 10000

	txns, _, err := s.repos.Transaction.List(ctx, query)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Receipt", "Date", "Student", "Type", "Amount", "Method", "Month", "Fee Type", "Status", "Collected By"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := range txns {
		txn := &txns[i]
		month := ""
		if txn.Month != nil {
			month = strconv.Itoa(*txn.Month)
		}
		feeType := ""
		if txn.FeeType != nil {
			feeType = *txn.FeeType
		}
		row := []string{
			txn.TransactionID,
			txn.CreatedAt.Format("2006-01-02 15:04"),
			txn.Student.FullName,
			txn.TransactionType,
			strconv.FormatFloat(txn.Amount, 'f', 2, 64),
			txn.PaymentMethod,
			month,
			feeType,
			txn.Status,
			txn.CollectedByUser.FullName,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *exportService) ReceiptPDF(ctx context.Context, actor Actor, transactionID string) ([]byte, error) {
	txn, err := s.repos.Transaction.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if txn.SchoolID != actor.SchoolID {
		return nil, ErrNotFound
	}

	school, err := s.repos.School.FindByID(ctx, txn.SchoolID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, school.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Fee Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	writeRow := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}

	writeRow("Receipt No:", txn.TransactionID)
	writeRow("Date:", txn.CreatedAt.Format("02 Jan 2006 15:04"))
	writeRow("Student:", txn.Student.FullName)
	writeRow("Academic Year:", txn.AcademicYear)
	if txn.Month != nil {
		writeRow("Month:", strconv.Itoa(*txn.Month))
	}
	if txn.FeeType != nil {
		writeRow("Fee Type:", *txn.FeeType)
	}
	writeRow("Amount:", fmt.Sprintf("%.2f", txn.Amount))
	writeRow("Payment Method:", txn.PaymentMethod)
	writeRow("Collected By:", txn.CollectedByUser.FullName)
	writeRow("Status:", txn.Status)

	if txn.Status == models.TransactionStatusCancelled && txn.CancellationReason != nil {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(0, 8, "CANCELLED: "+*txn.CancellationReason, "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated on %s", time.Now().Format("02 Jan 2006 15:04")), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
