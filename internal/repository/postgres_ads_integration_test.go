//go:build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"metroads/internal/database"
	"metroads/internal/domain"
)

func getTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &database.Config{
		Host:     testEnv("TEST_DB_HOST", "localhost"),
		Port:     testEnvInt("TEST_DB_PORT", 5432),
		User:     testEnv("TEST_DB_USER", "postgres"),
		Password: testEnv("TEST_DB_PASSWORD", "postgres"),
		Database: testEnv("TEST_DB_NAME", "metroads"),
		SSLMode:  testEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	return db
}

func testEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func testEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// seedChain creates line -> station -> two positions and returns their ids.
func seedChain(t *testing.T, db *sql.DB, tag string) (lineID, stationID, pos1, pos2 string) {
	t.Helper()
	catalog := NewPostgresCatalogRepository(db)
	ctx := context.Background()

	var err error
	lineID, err = catalog.CreateLine(ctx, domain.MetroLine{Name: sql.NullString{String: "itest line " + tag, Valid: true}})
	require.NoError(t, err)
	stationID, err = catalog.CreateStation(ctx, domain.Station{
		Name:   sql.NullString{String: "itest station " + tag, Valid: true},
		LineID: sql.NullString{String: lineID, Valid: true},
	})
	require.NoError(t, err)
	pos1, err = catalog.CreatePosition(ctx, domain.Position{StationID: sql.NullString{String: stationID, Valid: true}, Number: 1})
	require.NoError(t, err)
	pos2, err = catalog.CreatePosition(ctx, domain.Position{StationID: sql.NullString{String: stationID, Valid: true}, Number: 2})
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Exec(`DELETE FROM advertisement_archive WHERE line_id = $1`, lineID)
		db.Exec(`DELETE FROM advertisements WHERE position_id IN ($1, $2)`, pos1, pos2)
		db.Exec(`DELETE FROM positions WHERE station_id = $1`, stationID)
		db.Exec(`DELETE FROM stations WHERE station_id = $1`, stationID)
		db.Exec(`DELETE FROM metro_lines WHERE line_id = $1`, lineID)
	})
	return lineID, stationID, pos1, pos2
}

func seedAd(positionID, contract string) domain.Advertisement {
	return domain.Advertisement{
		PositionID:     sql.NullString{String: positionID, Valid: true},
		AdName:         "itest panel",
		DeviceType:     "lightbox",
		TenantName:     sql.NullString{String: "itest tenant", Valid: true},
		ContractNumber: sql.NullString{String: contract, Valid: contract != ""},
		ContractStart:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ContractEnd:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Unit:           domain.UnitPiece,
		DevicePrice:    1000,
		OccupiedArea:   2,
		ContractAmount: 12000,
		ContactNumber:  "+998900000000",
	}
}

func TestPostgresAds_CreateAndOccupancy(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	_, _, pos1, _ := seedChain(t, db, "create")

	repo := NewPostgresAdvertisementsRepository(db)
	ctx := context.Background()

	adID, err := repo.Create(ctx, seedAd(pos1, "ITEST-C-1"), "")
	require.NoError(t, err)
	require.NotEmpty(t, adID)

	_, err = repo.Create(ctx, seedAd(pos1, "ITEST-C-2"), "")
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestPostgresAds_TransferWritesCloneSnapshot(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	lineID, _, pos1, pos2 := seedChain(t, db, "transfer")

	repo := NewPostgresAdvertisementsRepository(db)
	archive := NewPostgresArchiveRepository(db)
	ctx := context.Background()

	sourceID, err := repo.Create(ctx, seedAd(pos1, "ITEST-T-1"), "")
	require.NoError(t, err)

	require.NoError(t, repo.Transfer(ctx, sourceID, pos2, ""))

	_, err = repo.Get(ctx, sourceID)
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))

	clone, err := repo.GetByPosition(ctx, pos2)
	require.NoError(t, err)
	require.Equal(t, "itest panel", clone.AdName)

	rows, err := archive.ListAll(ctx, ArchiveFilters{LineID: lineID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, pos2, rows[0].PositionID.String)
	require.Equal(t, clone.AdID, rows[0].AdID.String)
}

func TestPostgresAds_UpdateSnapshotsPriorState(t *testing.T) {
	db := getTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	lineID, _, pos1, _ := seedChain(t, db, "update")

	repo := NewPostgresAdvertisementsRepository(db)
	archive := NewPostgresArchiveRepository(db)
	ctx := context.Background()

	adID, err := repo.Create(ctx, seedAd(pos1, "ITEST-U-1"), "")
	require.NoError(t, err)

	changed := seedAd(pos1, "ITEST-U-1")
	changed.AdName = "itest renamed"
	require.NoError(t, repo.Update(ctx, adID, changed, ""))

	rows, err := archive.ListAll(ctx, ArchiveFilters{LineID: lineID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "itest panel", rows[0].AdName)
	require.Equal(t, "itest station update", rows[0].StationName.String)
}
