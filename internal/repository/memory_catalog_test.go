package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"metroads/internal/domain"
)

func TestMemoryCatalog_LineNameUnique(t *testing.T) {
	catalog := NewMemoryCatalogRepository()
	ctx := context.Background()

	_, err := catalog.CreateLine(ctx, domain.MetroLine{Name: sql.NullString{String: "Line 1", Valid: true}})
	require.NoError(t, err)

	_, err = catalog.CreateLine(ctx, domain.MetroLine{Name: sql.NullString{String: "Line 1", Valid: true}})
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	// Unnamed lines do not collide.
	_, err = catalog.CreateLine(ctx, domain.MetroLine{})
	require.NoError(t, err)
	_, err = catalog.CreateLine(ctx, domain.MetroLine{})
	require.NoError(t, err)
}

func TestMemoryCatalog_PositionNumberUniquePerStation(t *testing.T) {
	catalog := NewMemoryCatalogRepository()
	ctx := context.Background()

	st1, err := catalog.CreateStation(ctx, domain.Station{Name: sql.NullString{String: "A", Valid: true}})
	require.NoError(t, err)
	st2, err := catalog.CreateStation(ctx, domain.Station{Name: sql.NullString{String: "B", Valid: true}})
	require.NoError(t, err)

	_, err = catalog.CreatePosition(ctx, domain.Position{StationID: sql.NullString{String: st1, Valid: true}, Number: 1})
	require.NoError(t, err)

	_, err = catalog.CreatePosition(ctx, domain.Position{StationID: sql.NullString{String: st1, Valid: true}, Number: 1})
	require.Equal(t, domain.KindConflict, domain.KindOf(err))

	// Same number at another station is fine.
	_, err = catalog.CreatePosition(ctx, domain.Position{StationID: sql.NullString{String: st2, Valid: true}, Number: 1})
	require.NoError(t, err)
}

func TestMemoryCatalog_DeleteDetachesChain(t *testing.T) {
	catalog := NewMemoryCatalogRepository()
	ctx := context.Background()

	lineID, err := catalog.CreateLine(ctx, domain.MetroLine{Name: sql.NullString{String: "Line 9", Valid: true}})
	require.NoError(t, err)
	stationID, err := catalog.CreateStation(ctx, domain.Station{
		Name:   sql.NullString{String: "North", Valid: true},
		LineID: sql.NullString{String: lineID, Valid: true},
	})
	require.NoError(t, err)
	posID, err := catalog.CreatePosition(ctx, domain.Position{
		StationID: sql.NullString{String: stationID, Valid: true},
		Number:    3,
	})
	require.NoError(t, err)

	require.NoError(t, catalog.DeleteLine(ctx, lineID))
	st, err := catalog.GetStation(ctx, stationID)
	require.NoError(t, err)
	require.False(t, st.LineID.Valid)

	require.NoError(t, catalog.DeleteStation(ctx, stationID))
	p, err := catalog.GetPosition(ctx, posID)
	require.NoError(t, err)
	require.False(t, p.StationID.Valid)
}

func TestMemoryCatalog_StationImage(t *testing.T) {
	catalog := NewMemoryCatalogRepository()
	ctx := context.Background()

	stationID, err := catalog.CreateStation(ctx, domain.Station{Name: sql.NullString{String: "West", Valid: true}})
	require.NoError(t, err)

	require.NoError(t, catalog.SetStationImage(ctx, stationID, "schemas/abc.png"))
	st, err := catalog.GetStation(ctx, stationID)
	require.NoError(t, err)
	require.Equal(t, "schemas/abc.png", st.SchemaImage.String)

	err = catalog.SetStationImage(ctx, "missing", "x.png")
	require.Equal(t, domain.KindNotFound, domain.KindOf(err))
}
