package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"metroads/internal/domain"
	"metroads/internal/models"
	"metroads/internal/objstore"
	"metroads/internal/repository"
)

// AdvertisementService 广告投放服务
// Covers placement CRUD, the transfer workflow, attachment uploads and the
// contract expiry report.
type AdvertisementService struct {
	ads     repository.AdvertisementsRepository
	catalog repository.CatalogRepository
	files   objstore.Store
	logger  *zap.Logger
}

func NewAdvertisementService(
	ads repository.AdvertisementsRepository,
	catalog repository.CatalogRepository,
	files objstore.Store,
	logger *zap.Logger,
) *AdvertisementService {
	return &AdvertisementService{ads: ads, catalog: catalog, files: files, logger: logger}
}

// AdItem 广告（前端格式），附带解析后的 车站/线路 归属
type AdItem struct {
	AdID     string  `json:"ad_id"`
	User     *string `json:"user"`
	Position *string `json:"position"`

	// Resolved through the position at read time; null when the chain is
	// broken or the advertisement is unplaced.
	PositionNumber *int    `json:"position_number"`
	StationID      *string `json:"station_id"`
	StationName    *string `json:"station_name"`
	LineID         *string `json:"line_id"`
	LineName       *string `json:"line_name"`

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

// SaveAdvertisementRequest create/update 共用请求体
type SaveAdvertisementRequest struct {
	Position       *string `json:"position"`
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
	ContactNumber  string  `json:"contact_number"`
}

func (req SaveAdvertisementRequest) toDomain() (domain.Advertisement, error) {
	var ad domain.Advertisement
	if req.AdName == "" {
		return ad, domain.Validationf("ad_name is required")
	}
	if req.DeviceType == "" {
		return ad, domain.Validationf("device_type is required")
	}
	if !domain.ValidUnit(req.Unit) {
		return ad, domain.Validationf("unit must be one of: %s, %s, %s",
			domain.UnitPiece, domain.UnitSquareMeter, domain.UnitSet)
	}
	if req.DevicePrice < 0 || req.OccupiedArea < 0 || req.ContractAmount < 0 {
		return ad, domain.Validationf("price, area and amount must not be negative")
	}
	start, err := parseDate("contract_start", req.ContractStart)
	if err != nil {
		return ad, err
	}
	end, err := parseDate("contract_end", req.ContractEnd)
	if err != nil {
		return ad, err
	}

	ad.PositionID = toNullString(req.Position)
	ad.AdName = req.AdName
	ad.DeviceType = req.DeviceType
	ad.TenantName = toNullString(req.TenantName)
	ad.ContractNumber = toNullString(req.ContractNumber)
	ad.ContractStart = start
	ad.ContractEnd = end
	ad.Unit = req.Unit
	ad.DevicePrice = req.DevicePrice
	ad.OccupiedArea = req.OccupiedArea
	ad.ContractAmount = req.ContractAmount
	ad.ContactNumber = req.ContactNumber
	return ad, nil
}

// ListAdvertisementsRequest 查询广告列表请求
type ListAdvertisementsRequest struct {
	Station  string
	Line     string
	Position string
	Search   string
	Ordering string
	Page     int
	Size     int
}

func (s *AdvertisementService) adItem(ctx context.Context, ad domain.Advertisement) AdItem {
	item := AdItem{
		AdID:           ad.AdID,
		User:           strPtr(ad.UserID),
		Position:       strPtr(ad.PositionID),
		AdName:         ad.AdName,
		DeviceType:     ad.DeviceType,
		TenantName:     strPtr(ad.TenantName),
		ContractNumber: strPtr(ad.ContractNumber),
		ContractStart:  formatDate(ad.ContractStart),
		ContractEnd:    formatDate(ad.ContractEnd),
		Unit:           ad.Unit,
		DevicePrice:    ad.DevicePrice,
		OccupiedArea:   ad.OccupiedArea,
		ContractAmount: ad.ContractAmount,
		ContractFile:   strPtr(ad.ContractFile),
		Photo:          strPtr(ad.Photo),
		ContactNumber:  ad.ContactNumber,
		CreatedAt:      ad.CreatedAt.Format(timeLayout),
	}

	if !ad.PositionID.Valid {
		return item
	}
	pos, err := s.catalog.GetPosition(ctx, ad.PositionID.String)
	if err != nil {
		return item
	}
	item.PositionNumber = &pos.Number
	if !pos.StationID.Valid {
		return item
	}
	st, err := s.catalog.GetStation(ctx, pos.StationID.String)
	if err != nil {
		return item
	}
	item.StationID = &st.StationID
	item.StationName = strPtr(st.Name)
	if !st.LineID.Valid {
		return item
	}
	line, err := s.catalog.GetLine(ctx, st.LineID.String)
	if err != nil {
		return item
	}
	item.LineID = &line.LineID
	item.LineName = strPtr(line.Name)
	return item
}

func (s *AdvertisementService) adItems(ctx context.Context, ads []domain.Advertisement) []AdItem {
	items := make([]AdItem, 0, len(ads))
	for _, ad := range ads {
		items = append(items, s.adItem(ctx, ad))
	}
	return items
}

func (s *AdvertisementService) List(ctx context.Context, req ListAdvertisementsRequest) (*models.Page, error) {
	page, size := models.Normalize(req.Page, req.Size)
	filters := repository.AdFilters{
		StationID:  req.Station,
		LineID:     req.Line,
		PositionID: req.Position,
		Search:     req.Search,
		Ordering:   req.Ordering,
	}
	ads, total, err := s.ads.List(ctx, filters, page, size)
	if err != nil {
		return nil, err
	}
	return &models.Page{Count: total, Page: page, Size: size, Results: s.adItems(ctx, ads)}, nil
}

func (s *AdvertisementService) Get(ctx context.Context, adID string) (*AdItem, error) {
	ad, err := s.ads.Get(ctx, adID)
	if err != nil {
		return nil, err
	}
	item := s.adItem(ctx, *ad)
	return &item, nil
}

func (s *AdvertisementService) Create(ctx context.Context, req SaveAdvertisementRequest, actingUserID string) (*AdItem, error) {
	ad, err := req.toDomain()
	if err != nil {
		return nil, err
	}
	adID, err := s.ads.Create(ctx, ad, actingUserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("advertisement created",
		zap.String("ad_id", adID),
		zap.String("position_id", ad.PositionID.String),
	)
	return s.Get(ctx, adID)
}

func (s *AdvertisementService) Update(ctx context.Context, adID string, req SaveAdvertisementRequest, actingUserID string) (*AdItem, error) {
	ad, err := req.toDomain()
	if err != nil {
		return nil, err
	}
	if err := s.ads.Update(ctx, adID, ad, actingUserID); err != nil {
		return nil, err
	}
	s.logger.Info("advertisement updated", zap.String("ad_id", adID))
	return s.Get(ctx, adID)
}

func (s *AdvertisementService) Delete(ctx context.Context, adID string, actingUserID string) error {
	if err := s.ads.Delete(ctx, adID, actingUserID); err != nil {
		return err
	}
	s.logger.Info("advertisement deleted", zap.String("ad_id", adID))
	return nil
}

// TransferRequest 广告转移请求
type TransferRequest struct {
	Position string `json:"position"`
}

// Transfer moves the advertisement to the target position and returns the
// clone now occupying it. The source id is gone afterwards.
func (s *AdvertisementService) Transfer(ctx context.Context, adID string, req TransferRequest, actingUserID string) (*AdItem, error) {
	if req.Position == "" {
		return nil, domain.Validationf("position is required")
	}
	if err := s.ads.Transfer(ctx, adID, req.Position, actingUserID); err != nil {
		return nil, err
	}
	s.logger.Info("advertisement transferred",
		zap.String("source_ad_id", adID),
		zap.String("target_position_id", req.Position),
	)
	clone, err := s.ads.GetByPosition(ctx, req.Position)
	if err != nil {
		return nil, err
	}
	item := s.adItem(ctx, *clone)
	return &item, nil
}

// UploadFile stores an advertisement attachment and records its reference.
func (s *AdvertisementService) UploadFile(ctx context.Context, adID string, field repository.FileField, filename, contentType string, data []byte) (*AdItem, error) {
	var bucket string
	var allowed map[string]bool
	switch field {
	case repository.FileContract:
		bucket, allowed = "contracts", documentExtensions
	case repository.FilePhoto:
		bucket, allowed = "photos", imageExtensions
	default:
		return nil, domain.Validationf("unknown file field: %s", field)
	}

	if _, err := s.ads.Get(ctx, adID); err != nil {
		return nil, err
	}
	if err := checkExtension(filename, allowed); err != nil {
		return nil, err
	}
	ref, err := s.files.Put(ctx, bucket, filename, contentType, data)
	if err != nil {
		return nil, err
	}
	if err := s.ads.SetFile(ctx, adID, field, ref); err != nil {
		return nil, err
	}
	s.logger.Info("advertisement file uploaded",
		zap.String("ad_id", adID),
		zap.String("field", string(field)),
		zap.String("ref", ref),
	)
	return s.Get(ctx, adID)
}

// ExpiringRequest 合同到期报表请求，过滤参数与列表查询一致
type ExpiringRequest struct {
	Today    string // optional YYYY-MM-DD override, defaults to the current date
	Station  string
	Line     string
	Position string
	Search   string
}

// ExpiringCounts 到期统计
type ExpiringCounts struct {
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiring_soon"`
	Total        int `json:"total"`
}

// ExpiringResults holds the two advertisement buckets of the report.
type ExpiringResults struct {
	Expired      []AdItem `json:"expired"`
	ExpiringSoon []AdItem `json:"expiring_soon"`
}

// ExpiringResponse groups contracts already past their end date and those
// ending within the next seven days.
type ExpiringResponse struct {
	Counts  ExpiringCounts  `json:"counts"`
	Results ExpiringResults `json:"results"`
}

func (s *AdvertisementService) Expiring(ctx context.Context, req ExpiringRequest) (*ExpiringResponse, error) {
	today := time.Now()
	if req.Today != "" {
		t, err := parseDate("today", req.Today)
		if err != nil {
			return nil, err
		}
		today = t
	}

	ads, err := s.ads.ListAll(ctx, repository.AdFilters{
		StationID:  req.Station,
		LineID:     req.Line,
		PositionID: req.Position,
		Search:     req.Search,
	})
	if err != nil {
		return nil, err
	}

	summary := domain.ClassifyExpiry(ads, today)
	return &ExpiringResponse{
		Counts: ExpiringCounts{
			Expired:      len(summary.Expired),
			ExpiringSoon: len(summary.ExpiringSoon),
			Total:        summary.Total,
		},
		Results: ExpiringResults{
			Expired:      s.adItems(ctx, summary.Expired),
			ExpiringSoon: s.adItems(ctx, summary.ExpiringSoon),
		},
	}, nil
}

// ExportRows returns the full filtered set for spreadsheet export.
func (s *AdvertisementService) ExportRows(ctx context.Context, req ListAdvertisementsRequest) ([]AdItem, error) {
	ads, err := s.ads.ListAll(ctx, repository.AdFilters{
		StationID:  req.Station,
		LineID:     req.Line,
		PositionID: req.Position,
		Search:     req.Search,
		Ordering:   req.Ordering,
	})
	if err != nil {
		return nil, err
	}
	return s.adItems(ctx, ads), nil
}
