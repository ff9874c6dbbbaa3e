package service

import (
	"context"

	"go.uber.org/zap"

	"metroads/internal/domain"
	"metroads/internal/models"
	"metroads/internal/objstore"
	"metroads/internal/repository"
)

// CatalogService 线路/车站/广告位目录服务
type CatalogService struct {
	catalog repository.CatalogRepository
	ads     repository.AdvertisementsRepository
	files   objstore.Store
	logger  *zap.Logger
}

func NewCatalogService(catalog repository.CatalogRepository, ads repository.AdvertisementsRepository, files objstore.Store, logger *zap.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, ads: ads, files: files, logger: logger}
}

// LineItem 线路（前端格式）
type LineItem struct {
	LineID    string  `json:"line_id"`
	Name      *string `json:"name"`
	CreatedAt string  `json:"created_at"`
}

type StationItem struct {
	StationID   string  `json:"station_id"`
	Name        *string `json:"name"`
	Line        *string `json:"line"`
	SchemaImage *string `json:"schema_image"`
	CreatedAt   string  `json:"created_at"`
}

// PositionAd 广告位当前占用的广告摘要
type PositionAd struct {
	AdID       string  `json:"ad_id"`
	AdName     string  `json:"ad_name"`
	TenantName *string `json:"tenant_name"`
}

type PositionItem struct {
	PositionID    string      `json:"position_id"`
	Station       *string     `json:"station"`
	Number        int         `json:"number"`
	X             *float64    `json:"x"`
	Y             *float64    `json:"y"`
	Occupied      bool        `json:"occupied"`
	Advertisement *PositionAd `json:"advertisement"`
	CreatedAt     string      `json:"created_at"`
}

func lineItem(l domain.MetroLine) LineItem {
	return LineItem{
		LineID:    l.LineID,
		Name:      strPtr(l.Name),
		CreatedAt: l.CreatedAt.Format(timeLayout),
	}
}

func stationItem(s domain.Station) StationItem {
	return StationItem{
		StationID:   s.StationID,
		Name:        strPtr(s.Name),
		Line:        strPtr(s.LineID),
		SchemaImage: strPtr(s.SchemaImage),
		CreatedAt:   s.CreatedAt.Format(timeLayout),
	}
}

func (s *CatalogService) positionItem(ctx context.Context, p domain.Position) PositionItem {
	item := PositionItem{
		PositionID: p.PositionID,
		Station:    strPtr(p.StationID),
		Number:     p.Number,
		X:          floatPtr(p.X),
		Y:          floatPtr(p.Y),
		CreatedAt:  p.CreatedAt.Format(timeLayout),
	}
	if ad, err := s.ads.GetByPosition(ctx, p.PositionID); err == nil && ad != nil {
		item.Occupied = true
		item.Advertisement = &PositionAd{
			AdID:       ad.AdID,
			AdName:     ad.AdName,
			TenantName: strPtr(ad.TenantName),
		}
	}
	return item
}

// ============================================
// 线路
// ============================================

type SaveLineRequest struct {
	Name *string `json:"name"`
}

func (s *CatalogService) ListLines(ctx context.Context, page, size int) (*models.Page, error) {
	lines, err := s.catalog.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, lineItem(l))
	}
	return pageOf(items, page, size), nil
}

func (s *CatalogService) GetLine(ctx context.Context, lineID string) (*LineItem, error) {
	l, err := s.catalog.GetLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	item := lineItem(*l)
	return &item, nil
}

func (s *CatalogService) CreateLine(ctx context.Context, req SaveLineRequest) (*LineItem, error) {
	lineID, err := s.catalog.CreateLine(ctx, domain.MetroLine{Name: toNullString(req.Name)})
	if err != nil {
		return nil, err
	}
	s.logger.Info("metro line created", zap.String("line_id", lineID))
	return s.GetLine(ctx, lineID)
}

func (s *CatalogService) UpdateLine(ctx context.Context, lineID string, req SaveLineRequest) (*LineItem, error) {
	if err := s.catalog.UpdateLine(ctx, lineID, domain.MetroLine{Name: toNullString(req.Name)}); err != nil {
		return nil, err
	}
	return s.GetLine(ctx, lineID)
}

func (s *CatalogService) DeleteLine(ctx context.Context, lineID string) error {
	if err := s.catalog.DeleteLine(ctx, lineID); err != nil {
		return err
	}
	s.logger.Info("metro line deleted", zap.String("line_id", lineID))
	return nil
}

// ============================================
// 车站
// ============================================

type SaveStationRequest struct {
	Name *string `json:"name"`
	Line *string `json:"line"`
}

func (s *CatalogService) ListStations(ctx context.Context, lineID string, page, size int) (*models.Page, error) {
	stations, err := s.catalog.ListStations(ctx, lineID)
	if err != nil {
		return nil, err
	}
	items := make([]StationItem, 0, len(stations))
	for _, st := range stations {
		items = append(items, stationItem(st))
	}
	return pageOf(items, page, size), nil
}

func (s *CatalogService) GetStation(ctx context.Context, stationID string) (*StationItem, error) {
	st, err := s.catalog.GetStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	item := stationItem(*st)
	return &item, nil
}

func (s *CatalogService) CreateStation(ctx context.Context, req SaveStationRequest) (*StationItem, error) {
	stationID, err := s.catalog.CreateStation(ctx, domain.Station{
		Name:   toNullString(req.Name),
		LineID: toNullString(req.Line),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("station created", zap.String("station_id", stationID))
	return s.GetStation(ctx, stationID)
}

func (s *CatalogService) UpdateStation(ctx context.Context, stationID string, req SaveStationRequest) (*StationItem, error) {
	err := s.catalog.UpdateStation(ctx, stationID, domain.Station{
		Name:   toNullString(req.Name),
		LineID: toNullString(req.Line),
	})
	if err != nil {
		return nil, err
	}
	return s.GetStation(ctx, stationID)
}

func (s *CatalogService) DeleteStation(ctx context.Context, stationID string) error {
	if err := s.catalog.DeleteStation(ctx, stationID); err != nil {
		return err
	}
	s.logger.Info("station deleted", zap.String("station_id", stationID))
	return nil
}

// UploadStationImage stores the station schema image and records its
// reference. Images only.
func (s *CatalogService) UploadStationImage(ctx context.Context, stationID, filename, contentType string, data []byte) (*StationItem, error) {
	if _, err := s.catalog.GetStation(ctx, stationID); err != nil {
		return nil, err
	}
	if err := checkExtension(filename, imageExtensions); err != nil {
		return nil, err
	}
	ref, err := s.files.Put(ctx, "schemas", filename, contentType, data)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetStationImage(ctx, stationID, ref); err != nil {
		return nil, err
	}
	s.logger.Info("station schema image uploaded",
		zap.String("station_id", stationID),
		zap.String("ref", ref),
	)
	return s.GetStation(ctx, stationID)
}

// ============================================
// 广告位
// ============================================

type SavePositionRequest struct {
	Station *string  `json:"station"`
	Number  int      `json:"number"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
}

func (s *CatalogService) ListPositions(ctx context.Context, stationID string, page, size int) (*models.Page, error) {
	positions, err := s.catalog.ListPositions(ctx, stationID)
	if err != nil {
		return nil, err
	}
	items := make([]PositionItem, 0, len(positions))
	for _, p := range positions {
		items = append(items, s.positionItem(ctx, p))
	}
	return pageOf(items, page, size), nil
}

func (s *CatalogService) GetPosition(ctx context.Context, positionID string) (*PositionItem, error) {
	p, err := s.catalog.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}
	item := s.positionItem(ctx, *p)
	return &item, nil
}

func (s *CatalogService) CreatePosition(ctx context.Context, req SavePositionRequest) (*PositionItem, error) {
	if req.Number <= 0 {
		return nil, domain.Validationf("number must be positive")
	}
	positionID, err := s.catalog.CreatePosition(ctx, domain.Position{
		StationID: toNullString(req.Station),
		Number:    req.Number,
		X:         toNullFloat(req.X),
		Y:         toNullFloat(req.Y),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("position created", zap.String("position_id", positionID))
	return s.GetPosition(ctx, positionID)
}

func (s *CatalogService) UpdatePosition(ctx context.Context, positionID string, req SavePositionRequest) (*PositionItem, error) {
	if req.Number <= 0 {
		return nil, domain.Validationf("number must be positive")
	}
	err := s.catalog.UpdatePosition(ctx, positionID, domain.Position{
		StationID: toNullString(req.Station),
		Number:    req.Number,
		X:         toNullFloat(req.X),
		Y:         toNullFloat(req.Y),
	})
	if err != nil {
		return nil, err
	}
	return s.GetPosition(ctx, positionID)
}

func (s *CatalogService) DeletePosition(ctx context.Context, positionID string) error {
	if err := s.catalog.DeletePosition(ctx, positionID); err != nil {
		return err
	}
	s.logger.Info("position deleted", zap.String("position_id", positionID))
	return nil
}

// pageOf windows a fully loaded catalog list. Catalog tables are small;
// advertisements and archive paginate in SQL instead.
func pageOf[T any](items []T, page, size int) *models.Page {
	page, size = models.Normalize(page, size)
	total := len(items)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return &models.Page{Count: total, Page: page, Size: size, Results: items[start:end]}
}
