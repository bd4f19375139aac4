package dashboard

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Produção"

// ExportHeader はエクスポートするワークブックの見出し行。
var ExportHeader = []string{
	"Data",
	"Turno",
	"Volume (L)",
	"Temperatura (°C)",
	"Observações",
	"Registrado por",
	"Registrado em",
}

// ExportHistory は農場の履歴をXLSXワークブックとして返す。
func (s *Service) ExportHistory(ctx context.Context, farmID string) ([]byte, error) {
	entries, err := s.history(ctx, farmID, exportLimit)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &ExportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ExportHeader))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	location := s.config.Location
	for i, e := range entries {
		r := e.Record
		var temperature any
		if r.Temperature != nil {
			temperature = *r.Temperature
		}
		row := []any{
			r.ProductionDate,
			r.Shift.Label(),
			r.VolumeLiters,
			temperature,
			r.Observations,
			r.CreatorName,
			r.CreatedAt.In(location).Format("02/01/2006 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
