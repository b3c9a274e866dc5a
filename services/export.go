package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const exportSheet = "Bookings"

var bookingExportHeader = []string{
	"ID",
	"Service",
	"Client",
	"Caregiver",
	"Start",
	"End",
	"Hours",
	"City",
	"Status",
	"Payment",
	"Hourly Rate",
	"Total",
	"Platform Fee",
	"Caregiver Payout",
}

var bookingExportWidths = []float64{8, 20, 24, 24, 18, 18, 8, 16, 12, 12, 12, 12, 12, 16}

// ExportBookings renders the bookings visible to actor as an xlsx workbook.
func ExportBookings(conn *gorm.DB, actor Actor) ([]byte, error) {
	bookings, err := ListBookings(conn, actor, BookingFilter{})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range bookingExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, name, name, bookingExportWidths[col]); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, b := range bookings {
		row := []interface{}{
			b.ID,
			b.ServiceType,
			b.Client.DisplayName(),
			b.Caregiver.DisplayName(),
			b.StartDatetime.Format("2006-01-02 15:04"),
			b.EndDatetime.Format("2006-01-02 15:04"),
			b.Hours,
			b.City,
			string(b.Status),
			string(b.PaymentStatus),
			b.HourlyRate,
			b.TotalAmount,
			b.PlatformFee,
			b.CaregiverPayout,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename names the workbook for a download response.
func ExportFilename(actor Actor) string {
	return fmt.Sprintf("bookings_%s_%d.xlsx", actor.Role, actor.ID)
}
