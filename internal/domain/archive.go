package domain

import (
	"database/sql"
	"time"
)

// Archive 广告历史快照（对应 advertisement_archive 表）
// Append-only: rows are written on every advertisement mutation, deletion
// and transfer, and are never updated or deleted afterwards. All references
// are best-effort snapshots and survive deletion of the originals.
type Archive struct {
	ArchiveID  string         `db:"archive_id"`
	AdID       sql.NullString `db:"ad_id"` // back-reference, SET NULL on ad deletion
	UserID     sql.NullString `db:"user_id"`
	LineID     sql.NullString `db:"line_id"`
	StationID  sql.NullString `db:"station_id"`
	PositionID sql.NullString `db:"position_id"`

	// Denormalized display names, captured while the chain was resolvable.
	LineName    sql.NullString `db:"line_name"`
	StationName sql.NullString `db:"station_name"`

	AdName         string         `db:"ad_name"`
	DeviceType     string         `db:"device_type"`
	TenantName     sql.NullString `db:"tenant_name"`
	ContractNumber sql.NullString `db:"contract_number"`
	ContractStart  time.Time      `db:"contract_start"`
	ContractEnd    time.Time      `db:"contract_end"`
	Unit           string         `db:"unit"`
	DevicePrice    float64        `db:"device_price"`
	OccupiedArea   float64        `db:"occupied_area"`
	ContractAmount float64        `db:"contract_amount"`
	ContractFile   sql.NullString `db:"contract_file"`
	Photo          sql.NullString `db:"photo"`
	ContactNumber  string         `db:"contact_number"`

	CreatedAt time.Time `db:"created_at"`
}

// SnapshotOf builds the archive row for ad as seen right now, before a
// mutation is applied. Position, station and line come from the resolved
// chain and may each be absent when the chain is broken; the caller resolves
// them because only the storage layer can look them up consistently inside
// the surrounding transaction.
func SnapshotOf(ad Advertisement, actingUser sql.NullString, pos *Position, st *Station, line *MetroLine) Archive {
	ar := Archive{
		AdID:       sql.NullString{String: ad.AdID, Valid: ad.AdID != ""},
		UserID:     actingUser,
		PositionID: ad.PositionID,

		AdName:         ad.AdName,
		DeviceType:     ad.DeviceType,
		TenantName:     ad.TenantName,
		ContractNumber: ad.ContractNumber,
		ContractStart:  ad.ContractStart,
		ContractEnd:    ad.ContractEnd,
		Unit:           ad.Unit,
		DevicePrice:    ad.DevicePrice,
		OccupiedArea:   ad.OccupiedArea,
		ContractAmount: ad.ContractAmount,
		ContractFile:   ad.ContractFile,
		Photo:          ad.Photo,
		ContactNumber:  ad.ContactNumber,
	}
	if pos != nil {
		ar.PositionID = sql.NullString{String: pos.PositionID, Valid: true}
	}
	if st != nil {
		ar.StationID = sql.NullString{String: st.StationID, Valid: true}
		ar.StationName = st.Name
	}
	if line != nil {
		ar.LineID = sql.NullString{String: line.LineID, Valid: true}
		ar.LineName = line.Name
	}
	return ar
}
