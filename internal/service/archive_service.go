package service

import (
	"context"

	"go.uber.org/zap"

	"metroads/internal/domain"
	"metroads/internal/models"
	"metroads/internal/repository"
)

// ArchiveService 广告历史快照查询服务（只读）
type ArchiveService struct {
	archive repository.ArchiveRepository
	logger  *zap.Logger
}

func NewArchiveService(archive repository.ArchiveRepository, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{archive: archive, logger: logger}
}

// ArchiveItem 历史快照（前端格式）：全部归属字段为写入时冻结的值
type ArchiveItem struct {
	ArchiveID   string  `json:"archive_id"`
	AdID        *string `json:"ad_id"`
	User        *string `json:"user"`
	Line        *string `json:"line"`
	Station     *string `json:"station"`
	Position    *string `json:"position"`
	LineName    *string `json:"line_name"`
	StationName *string `json:"station_name"`

	AdName         string  `json:"ad_name"`
	DeviceType     string  `json:"device_type"`
	TenantName     *string `json:"tenant_name"`
	ContractNumber *string `json:"contract_number"`
	ContractStart  string  `json:"contract_start"`
	ContractEnd    string  `json:"contract_end"`
	Unit           string  `json:"unit"`
	DevicePrice    float64 `json:"device_price"`
	OccupiedArea   float64 `json:"occupied_area"`
	ContractAmount float64 `json:"contract_amount"`
	ContractFile   *string `json:"contract_file"`
	Photo          *string `json:"photo"`
	ContactNumber  string  `json:"contact_number"`
	CreatedAt      string  `json:"created_at"`
}

func archiveItem(ar domain.Archive) ArchiveItem {
	return ArchiveItem{
		ArchiveID:      ar.ArchiveID,
		AdID:           strPtr(ar.AdID),
		User:           strPtr(ar.UserID),
		Line:           strPtr(ar.LineID),
		Station:        strPtr(ar.StationID),
		Position:       strPtr(ar.PositionID),
		LineName:       strPtr(ar.LineName),
		StationName:    strPtr(ar.StationName),
		AdName:         ar.AdName,
		DeviceType:     ar.DeviceType,
		TenantName:     strPtr(ar.TenantName),
		ContractNumber: strPtr(ar.ContractNumber),
		ContractStart:  formatDate(ar.ContractStart),
		ContractEnd:    formatDate(ar.ContractEnd),
		Unit:           ar.Unit,
		DevicePrice:    ar.DevicePrice,
		OccupiedArea:   ar.OccupiedArea,
		ContractAmount: ar.ContractAmount,
		ContractFile:   strPtr(ar.ContractFile),
		Photo:          strPtr(ar.Photo),
		ContactNumber:  ar.ContactNumber,
		CreatedAt:      ar.CreatedAt.Format(timeLayout),
	}
}

func archiveItems(rows []domain.Archive) []ArchiveItem {
	items := make([]ArchiveItem, 0, len(rows))
	for _, ar := range rows {
		items = append(items, archiveItem(ar))
	}
	return items
}

// ListArchiveRequest 查询历史快照请求
type ListArchiveRequest struct {
	Line     string
	Station  string
	Position string
	Search   string
	Ordering string
	Page     int
	Size     int
}

func (req ListArchiveRequest) filters() repository.ArchiveFilters {
	return repository.ArchiveFilters{
		LineID:     req.Line,
		StationID:  req.Station,
		PositionID: req.Position,
		Search:     req.Search,
		Ordering:   req.Ordering,
	}
}

func (s *ArchiveService) List(ctx context.Context, req ListArchiveRequest) (*models.Page, error) {
	page, size := models.Normalize(req.Page, req.Size)
	rows, total, err := s.archive.List(ctx, req.filters(), page, size)
	if err != nil {
		return nil, err
	}
	return &models.Page{Count: total, Page: page, Size: size, Results: archiveItems(rows)}, nil
}

func (s *ArchiveService) Get(ctx context.Context, archiveID string) (*ArchiveItem, error) {
	ar, err := s.archive.Get(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	item := archiveItem(*ar)
	return &item, nil
}

// ExportRows returns the full filtered history for spreadsheet export.
func (s *ArchiveService) ExportRows(ctx context.Context, req ListArchiveRequest) ([]ArchiveItem, error) {
	rows, err := s.archive.ListAll(ctx, req.filters())
	if err != nil {
		return nil, err
	}
	return archiveItems(rows), nil
}
