package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"metroads/internal/domain"
	"metroads/internal/objstore"
	"metroads/internal/repository"
)

func setupAdService(t *testing.T) (*AdvertisementService, *objstore.MemoryStore, string) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	catalog := repository.NewMemoryCatalogRepository()
	archive := repository.NewMemoryArchiveRepository()
	ads := repository.NewMemoryAdvertisementsRepository(catalog, archive)
	files := objstore.NewMemoryStore()

	stationID, err := catalog.CreateStation(ctx, domain.Station{Name: sql.NullString{String: "Central", Valid: true}})
	require.NoError(t, err)
	posID, err := catalog.CreatePosition(ctx, domain.Position{StationID: sql.NullString{String: stationID, Valid: true}, Number: 1})
	require.NoError(t, err)

	return NewAdvertisementService(ads, catalog, files, logger), files, posID
}

func saveRequest(posID string) SaveAdvertisementRequest {
	tenant := "Acme Media"
	return SaveAdvertisementRequest{
		Position:       &posID,
		AdName:         "Escalator panel",
		DeviceType:     "lightbox",
		TenantName:     &tenant,
		ContractStart:  "2025-01-01",
		ContractEnd:    "2025-12-31",
		Unit:           domain.UnitPiece,
		DevicePrice:    1200,
		OccupiedArea:   3.5,
		ContractAmount: 14400,
		ContactNumber:  "+998901234567",
	}
}

func TestAdvertisementService_CreateValidation(t *testing.T) {
	svc, _, posID := setupAdService(t)
	ctx := context.Background()

	req := saveRequest(posID)
	req.AdName = ""
	_, err := svc.Create(ctx, req, "")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	req = saveRequest(posID)
	req.Unit = "hectare"
	_, err = svc.Create(ctx, req, "")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	req = saveRequest(posID)
	req.ContractEnd = "31-12-2025"
	_, err = svc.Create(ctx, req, "")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	item, err := svc.Create(ctx, saveRequest(posID), "")
	require.NoError(t, err)
	require.Equal(t, "2025-12-31", item.ContractEnd)
	require.NotNil(t, item.StationName)
	require.Equal(t, "Central", *item.StationName)
}

func TestAdvertisementService_UploadValidation(t *testing.T) {
	svc, files, posID := setupAdService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, saveRequest(posID), "")
	require.NoError(t, err)

	_, err = svc.UploadFile(ctx, item.AdID, repository.FilePhoto, "photo.gif", "image/gif", []byte("x"))
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	got, err := svc.UploadFile(ctx, item.AdID, repository.FilePhoto, "photo.PNG", "image/png", []byte("img"))
	require.NoError(t, err)
	require.NotNil(t, got.Photo)
	_, ok := files.Get(*got.Photo)
	require.True(t, ok)

	got, err = svc.UploadFile(ctx, item.AdID, repository.FileContract, "contract.docx", "application/msword", []byte("doc"))
	require.NoError(t, err)
	require.NotNil(t, got.ContractFile)
}

func TestAdvertisementService_ExpiringTodayOverride(t *testing.T) {
	svc, _, posID := setupAdService(t)
	ctx := context.Background()

	req := saveRequest(posID)
	req.ContractEnd = "2025-06-05"
	_, err := svc.Create(ctx, req, "")
	require.NoError(t, err)

	resp, err := svc.Expiring(ctx, ExpiringRequest{Today: "2025-06-01"})
	require.NoError(t, err)
	require.Len(t, resp.Results.ExpiringSoon, 1)
	require.Empty(t, resp.Results.Expired)
	require.Equal(t, 1, resp.Counts.ExpiringSoon)
	require.Equal(t, 1, resp.Counts.Total)

	_, err = svc.Expiring(ctx, ExpiringRequest{Today: "June 1st"})
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestAdvertisementService_TransferRequiresPosition(t *testing.T) {
	svc, _, posID := setupAdService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, saveRequest(posID), "")
	require.NoError(t, err)

	_, err = svc.Transfer(ctx, item.AdID, TransferRequest{}, "")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}
