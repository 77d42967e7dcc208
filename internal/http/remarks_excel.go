package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"emri-dispatch/internal/domain"

	"github.com/xuri/excelize/v2"
)

// RemarksExportHeader columns of the disposition audit export
var RemarksExportHeader = []string{
	"Vehicle No",
	"Speed",
	"Last Assigned",
	"Record Time",
	"Trigger Time",
	"District",
	"Location",
	"Contact No",
	"Selected Remark",
	"Other Remarks",
	"Expected Stop",
	"Submitted By",
	"Submitted By ID",
	"Created At",
}

const remarksSheetName = "Ambulance Remarks"

// GenerateRemarksExport builds the xlsx workbook for the disposition audit.
func GenerateRemarksExport(dispositions []*domain.AmbulanceRemark) ([]byte, error) {
	f := excelize.NewFile()
	// Note: no deferred Close here, WriteTo needs the file open

	index, err := f.NewSheet(remarksSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, header := range RemarksExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve header cell: %w", err)
		}
		if err := f.SetCellValue(remarksSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, rem := range dispositions {
		values := []any{
			rem.VehicleNo,
			floatCell(rem.Speed),
			timeCell(rem.LastAssigned),
			timeCell(rem.RecordTime),
			timeCell(rem.TriggerTime),
			rem.District,
			rem.Location,
			rem.ContactNo,
			rem.SelectedRemark,
			rem.OtherRemarks,
			timeCell(rem.ExpectedStop),
			rem.SubmittedBy,
			rem.SubmittedByID,
			rem.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve cell: %w", err)
			}
			if err := f.SetCellValue(remarksSheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func floatCell(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}

func timeCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
