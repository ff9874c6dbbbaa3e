package repository

import (
	"context"

	"metroads/internal/domain"
)

// CatalogRepository covers the reference hierarchy: lines, stations and
// positions. Deleting a line detaches its stations (line_id set to NULL);
// deleting a station detaches its positions. Archiving tolerates a fully
// detached chain, so no delete here ever cascades into advertisements.
type CatalogRepository interface {
	ListLines(ctx context.Context) ([]domain.MetroLine, error)
	GetLine(ctx context.Context, lineID string) (*domain.MetroLine, error)
	CreateLine(ctx context.Context, line domain.MetroLine) (string, error)
	UpdateLine(ctx context.Context, lineID string, line domain.MetroLine) error
	DeleteLine(ctx context.Context, lineID string) error

	// ListStations filters by line when lineID is non-empty.
	ListStations(ctx context.Context, lineID string) ([]domain.Station, error)
	GetStation(ctx context.Context, stationID string) (*domain.Station, error)
	CreateStation(ctx context.Context, st domain.Station) (string, error)
	UpdateStation(ctx context.Context, stationID string, st domain.Station) error
	DeleteStation(ctx context.Context, stationID string) error
	SetStationImage(ctx context.Context, stationID, ref string) error

	// ListPositions filters by station when stationID is non-empty.
	ListPositions(ctx context.Context, stationID string) ([]domain.Position, error)
	GetPosition(ctx context.Context, positionID string) (*domain.Position, error)
	CreatePosition(ctx context.Context, p domain.Position) (string, error)
	UpdatePosition(ctx context.Context, positionID string, p domain.Position) error
	DeletePosition(ctx context.Context, positionID string) error
}

// AdFilters narrows advertisement listings; zero values mean "no filter".
// Search matches tenant name OR contract number, case-insensitive substring.
// Ordering is one of created_at, -created_at, device_price, -device_price;
// empty means created_at ascending.
type AdFilters struct {
	StationID  string
	LineID     string
	PositionID string
	Search     string
	Ordering   string
}

// FileField names the two uploadable advertisement attachments.
type FileField string

const (
	FileContract FileField = "contract_file"
	FilePhoto    FileField = "photo"
)

// AdvertisementsRepository is the placement store. Every Update, Delete and
// Transfer writes exactly one archive snapshot of each affected
// advertisement's pre-mutation state inside the same transaction.
type AdvertisementsRepository interface {
	List(ctx context.Context, f AdFilters, page, size int) ([]domain.Advertisement, int, error)
	// ListAll returns the full filtered set without pagination (expiry
	// aggregation, spreadsheet export).
	ListAll(ctx context.Context, f AdFilters) ([]domain.Advertisement, error)
	Get(ctx context.Context, adID string) (*domain.Advertisement, error)
	GetByPosition(ctx context.Context, positionID string) (*domain.Advertisement, error)

	// Create fails with a validation error when the position is missing,
	// occupied, or the contract number duplicates a live advertisement.
	Create(ctx context.Context, ad domain.Advertisement, actingUserID string) (string, error)
	Update(ctx context.Context, adID string, ad domain.Advertisement, actingUserID string) error
	Delete(ctx context.Context, adID string, actingUserID string) error

	// Transfer moves the source advertisement to the target position:
	// archive+delete any occupant, clone the source there, archive the
	// clone, delete the source. All inside one transaction.
	Transfer(ctx context.Context, sourceAdID, targetPositionID, actingUserID string) error

	SetFile(ctx context.Context, adID string, field FileField, ref string) error
}

// ArchiveFilters narrows archive listings.
type ArchiveFilters struct {
	LineID     string
	StationID  string
	PositionID string
	Search     string // matches advertisement name
	Ordering   string // created_at variants and device_price variants; default -created_at
}

// ArchiveRepository is read-only: rows appear only as a side effect of
// advertisement mutations.
type ArchiveRepository interface {
	List(ctx context.Context, f ArchiveFilters, page, size int) ([]domain.Archive, int, error)
	ListAll(ctx context.Context, f ArchiveFilters) ([]domain.Archive, error)
	Get(ctx context.Context, archiveID string) (*domain.Archive, error)
}

type UsersRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByAccount(ctx context.Context, account string) (*domain.User, error)
	Upsert(ctx context.Context, u domain.User) (string, error)
}
