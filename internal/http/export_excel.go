package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"metroads/internal/service"
)

// AdvertisementsExportHeader 广告导出表头
var AdvertisementsExportHeader = []string{
	"Line",
	"Station",
	"Position",
	"Ad Name",
	"Device Type",
	"Tenant Name",
	"Contract Number",
	"Contract Start",
	"Contract End",
	"Unit",
	"Device Price",
	"Occupied Area",
	"Contract Amount",
	"Contact Number",
}

// ArchiveExportHeader 历史快照导出表头
var ArchiveExportHeader = []string{
	"Archived At",
	"Line",
	"Station",
	"Ad Name",
	"Device Type",
	"Tenant Name",
	"Contract Number",
	"Contract Start",
	"Contract End",
	"Unit",
	"Device Price",
	"Occupied Area",
	"Contract Amount",
	"Contact Number",
}

// GenerateAdvertisementsExport 生成广告导出 Excel 文件
func GenerateAdvertisementsExport(rows []service.AdItem) ([]byte, error) {
	data := make([][]any, 0, len(rows))
	for _, it := range rows {
		data = append(data, []any{
			deref(it.LineName),
			deref(it.StationName),
			positionLabel(it.PositionNumber),
			it.AdName,
			it.DeviceType,
			deref(it.TenantName),
			deref(it.ContractNumber),
			it.ContractStart,
			it.ContractEnd,
			it.Unit,
			it.DevicePrice,
			it.OccupiedArea,
			it.ContractAmount,
			it.ContactNumber,
		})
	}
	return generateExcel("Advertisements", AdvertisementsExportHeader, data)
}

// GenerateArchiveExport 生成历史快照导出 Excel 文件
func GenerateArchiveExport(rows []service.ArchiveItem) ([]byte, error) {
	data := make([][]any, 0, len(rows))
	for _, it := range rows {
		data = append(data, []any{
			it.CreatedAt,
			deref(it.LineName),
			deref(it.StationName),
			it.AdName,
			it.DeviceType,
			deref(it.TenantName),
			deref(it.ContractNumber),
			it.ContractStart,
			it.ContractEnd,
			it.Unit,
			it.DevicePrice,
			it.OccupiedArea,
			it.ContractAmount,
			it.ContactNumber,
		})
	}
	return generateExcel("Archive", ArchiveExportHeader, data)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func positionLabel(number *int) string {
	if number == nil {
		return ""
	}
	return strconv.Itoa(*number)
}

// generateExcel 生成导出 Excel 文件的通用函数
func generateExcel(sheetName string, headers []string, data [][]any) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i := 0; i < len(headers); i++ {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, 18); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, row := range data {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
