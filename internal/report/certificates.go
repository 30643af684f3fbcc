// Package report exports fetched certificate lists as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"certgen/frontend/internal/model"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "Certificates"
)

var headers = []string{"Certificate Number", "Recipient", "Course", "Issue Date", "Status", "Verification Code"}

// Certificates builds a workbook with one row per certificate, in the order
// given.
func Certificates(certs []model.Certificate) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range headers {
		if err := f.SetCellValue(SheetName, cell(i, 1), h); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, bold)
	}

	for idx, c := range certs {
		row := idx + 2
		values := []any{
			c.CertificateNumber,
			c.RecipientName(),
			c.CourseName(),
			c.IssueDate.Date(),
			string(c.Status),
			c.VerificationCode,
		}
		for i, v := range values {
			if err := f.SetCellValue(SheetName, cell(i, row), v); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	}

	widths := []float64{22, 24, 28, 12, 10, 22}
	for i, width := range widths {
		col := string(rune('A' + i))
		_ = f.SetColWidth(SheetName, col, col, width)
	}
	return f, nil
}

// WriteCertificates streams the workbook to w.
func WriteCertificates(w io.Writer, certs []model.Certificate) error {
	f, err := Certificates(certs)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename names an export taken at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("certificates_%s.xlsx", t.Format("20060102"))
}

func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
