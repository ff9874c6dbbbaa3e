package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"metroads/internal/domain"
)

// setupMemoryStores 创建一条 线路→车站→两个广告位 的测试链
func setupMemoryStores(t *testing.T) (*MemoryCatalogRepository, *MemoryAdvertisementsRepository, *MemoryArchiveRepository, string, string) {
	t.Helper()
	ctx := context.Background()

	catalog := NewMemoryCatalogRepository()
	archive := NewMemoryArchiveRepository()
	ads := NewMemoryAdvertisementsRepository(catalog, archive)

	lineID, err := catalog.CreateLine(ctx, domain.MetroLine{Name: sql.NullString{String: "Line 1", Valid: true}})
	require.NoError(t, err)

	stationID, err := catalog.CreateStation(ctx, domain.Station{
		Name:   sql.NullString{String: "Central", Valid: true},
		LineID: sql.NullString{String: lineID, Valid: true},
	})
	require.NoError(t, err)

	pos1, err := catalog.CreatePosition(ctx, domain.Position{
		StationID: sql.NullString{String: stationID, Valid: true},
		Number:    1,
	})
	require.NoError(t, err)
	pos2, err := catalog.CreatePosition(ctx, domain.Position{
		StationID: sql.NullString{String: stationID, Valid: true},
		Number:    2,
	})
	require.NoError(t, err)

	return catalog, ads, archive, pos1, pos2
}

func testAd(positionID, contractNumber string) domain.Advertisement {
	return domain.Advertisement{
		PositionID:     sql.NullString{String: positionID, Valid: positionID != ""},
		AdName:         "Escalator panel",
		DeviceType:     "lightbox",
		TenantName:     sql.NullString{String: "Acme Media", Valid: true},
		ContractNumber: sql.NullString{String: contractNumber, Valid: contractNumber != ""},
		ContractStart:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ContractEnd:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Unit:           domain.UnitPiece,
		DevicePrice:    1200,
		OccupiedArea:   3.5,
		ContractAmount: 14400,
		ContactNumber:  "+998901234567",
	}
}

func TestMemoryAds_CreateRejectsOccupiedPosition(t *testing.T) {
	_, ads, _, pos1, _ := setupMemoryStores(t)
	ctx := context.Background()

	_, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)

	_, err = ads.Create(ctx, testAd(pos1, "C-002"), "")
	require.Error(t, err)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestMemoryAds_CreateRejectsDuplicateContractNumber(t *testing.T) {
	_, ads, _, pos1, pos2 := setupMemoryStores(t)
	ctx := context.Background()

	_, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)

	_, err = ads.Create(ctx, testAd(pos2, "C-001"), "")
	require.Error(t, err)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestMemoryAds_CreateRequiresExistingPosition(t *testing.T) {
	_, ads, _, _, _ := setupMemoryStores(t)
	ctx := context.Background()

	_, err := ads.Create(ctx, testAd("", "C-001"), "")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = ads.Create(ctx, testAd("00000000-0000-0000-0000-000000000000", "C-001"), "")
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestMemoryAds_UpdateArchivesPriorState(t *testing.T) {
	_, ads, archive, pos1, _ := setupMemoryStores(t)
	ctx := context.Background()

	adID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)

	changed := testAd(pos1, "C-001")
	changed.AdName = "Renamed panel"
	changed.DevicePrice = 2000
	require.NoError(t, ads.Update(ctx, adID, changed, ""))

	rows, err := archive.ListAll(ctx, ArchiveFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// The snapshot carries the pre-change state.
	require.Equal(t, "Escalator panel", rows[0].AdName)
	require.Equal(t, float64(1200), rows[0].DevicePrice)
	require.Equal(t, "Line 1", rows[0].LineName.String)
	require.Equal(t, "Central", rows[0].StationName.String)

	got, err := ads.Get(ctx, adID)
	require.NoError(t, err)
	require.Equal(t, "Renamed panel", got.AdName)
}

func TestMemoryAds_DeleteArchivesAndRemoves(t *testing.T) {
	_, ads, archive, pos1, _ := setupMemoryStores(t)
	ctx := context.Background()

	adID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)
	require.NoError(t, ads.Delete(ctx, adID, ""))

	_, err = ads.Get(ctx, adID)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))

	rows, err := archive.ListAll(ctx, ArchiveFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, adID, rows[0].AdID.String)
}

func TestMemoryAds_TransferToFreePosition(t *testing.T) {
	_, ads, archive, pos1, pos2 := setupMemoryStores(t)
	ctx := context.Background()

	sourceID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)

	require.NoError(t, ads.Transfer(ctx, sourceID, pos2, ""))

	// Source is gone, its position is free again.
	_, err = ads.Get(ctx, sourceID)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
	_, err = ads.GetByPosition(ctx, pos1)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))

	// The clone sits at the target with the business fields intact.
	clone, err := ads.GetByPosition(ctx, pos2)
	require.NoError(t, err)
	require.NotEqual(t, sourceID, clone.AdID)
	require.Equal(t, "Escalator panel", clone.AdName)
	require.Equal(t, "C-001", clone.ContractNumber.String)

	// One archive row: the clone, recorded at the target position.
	rows, err := archive.ListAll(ctx, ArchiveFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, pos2, rows[0].PositionID.String)
	require.Equal(t, clone.AdID, rows[0].AdID.String)
}

func TestMemoryAds_TransferDisplacesOccupant(t *testing.T) {
	_, ads, archive, pos1, pos2 := setupMemoryStores(t)
	ctx := context.Background()

	sourceID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)
	occupant := testAd(pos2, "C-002")
	occupant.AdName = "Displaced banner"
	occupantID, err := ads.Create(ctx, occupant, "")
	require.NoError(t, err)

	require.NoError(t, ads.Transfer(ctx, sourceID, pos2, ""))

	_, err = ads.Get(ctx, occupantID)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
	_, err = ads.Get(ctx, sourceID)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))

	clone, err := ads.GetByPosition(ctx, pos2)
	require.NoError(t, err)
	require.Equal(t, "Escalator panel", clone.AdName)

	// Two archive rows: the displaced occupant, then the clone.
	rows, err := archive.ListAll(ctx, ArchiveFilters{Ordering: "created_at"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	names := []string{rows[0].AdName, rows[1].AdName}
	require.Contains(t, names, "Displaced banner")
	require.Contains(t, names, "Escalator panel")
}

func TestMemoryAds_SelfTransferRecreatesInPlace(t *testing.T) {
	_, ads, archive, pos1, _ := setupMemoryStores(t)
	ctx := context.Background()

	sourceID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)

	require.NoError(t, ads.Transfer(ctx, sourceID, pos1, ""))

	clone, err := ads.GetByPosition(ctx, pos1)
	require.NoError(t, err)
	require.NotEqual(t, sourceID, clone.AdID)
	require.Equal(t, "Escalator panel", clone.AdName)

	// In-place move still writes both snapshots.
	rows, err := archive.ListAll(ctx, ArchiveFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestMemoryAds_TransferFailureLeavesStoreUntouched(t *testing.T) {
	_, ads, archive, pos1, pos2 := setupMemoryStores(t)
	ctx := context.Background()

	sourceID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)
	occupantID, err := ads.Create(ctx, testAd(pos2, "C-002"), "")
	require.NoError(t, err)

	for _, stage := range []string{"occupant-removed", "clone-created", "clone-archived"} {
		ads.transferFault = func(s string) error {
			if s == stage {
				return domain.Internalf("injected failure at %s", s)
			}
			return nil
		}
		err := ads.Transfer(ctx, sourceID, pos2, "")
		require.Error(t, err, "stage %s", stage)

		// Both advertisements still exist, nothing archived.
		_, err = ads.Get(ctx, sourceID)
		require.NoError(t, err, "stage %s", stage)
		_, err = ads.Get(ctx, occupantID)
		require.NoError(t, err, "stage %s", stage)
		rows, err := archive.ListAll(ctx, ArchiveFilters{})
		require.NoError(t, err)
		require.Empty(t, rows, "stage %s", stage)
	}
}

func TestMemoryAds_TransferToMissingTarget(t *testing.T) {
	_, ads, _, pos1, _ := setupMemoryStores(t)
	ctx := context.Background()

	sourceID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)

	err = ads.Transfer(ctx, sourceID, "00000000-0000-0000-0000-000000000000", "")
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
	err = ads.Transfer(ctx, "00000000-0000-0000-0000-000000000000", pos1, "")
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestMemoryAds_PositionDeleteDetachesAdvertisement(t *testing.T) {
	catalog, ads, _, pos1, _ := setupMemoryStores(t)
	ctx := context.Background()

	adID, err := ads.Create(ctx, testAd(pos1, "C-001"), "")
	require.NoError(t, err)

	require.NoError(t, catalog.DeletePosition(ctx, pos1))

	got, err := ads.Get(ctx, adID)
	require.NoError(t, err)
	require.False(t, got.PositionID.Valid)
}

func TestMemoryAds_ListFiltersAndSearch(t *testing.T) {
	catalog, ads, _, pos1, pos2 := setupMemoryStores(t)
	ctx := context.Background()

	a1 := testAd(pos1, "C-100")
	a1.TenantName = sql.NullString{String: "Metro Coffee", Valid: true}
	_, err := ads.Create(ctx, a1, "")
	require.NoError(t, err)

	a2 := testAd(pos2, "C-200")
	a2.TenantName = sql.NullString{String: "Blue Bakery", Valid: true}
	_, err = ads.Create(ctx, a2, "")
	require.NoError(t, err)

	lines, err := catalog.ListLines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	byLine, err := ads.ListAll(ctx, AdFilters{LineID: lines[0].LineID})
	require.NoError(t, err)
	require.Len(t, byLine, 2)

	byPos, err := ads.ListAll(ctx, AdFilters{PositionID: pos1})
	require.NoError(t, err)
	require.Len(t, byPos, 1)

	bySearch, err := ads.ListAll(ctx, AdFilters{Search: "coffee"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	require.Equal(t, "Metro Coffee", bySearch[0].TenantName.String)

	byContract, err := ads.ListAll(ctx, AdFilters{Search: "c-200"})
	require.NoError(t, err)
	require.Len(t, byContract, 1)

	items, total, err := ads.List(ctx, AdFilters{}, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 1)
}
