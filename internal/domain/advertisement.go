package domain

import (
	"database/sql"
	"time"
)

// Unit of measure for the rented surface.
const (
	UnitPiece       = "piece"
	UnitSquareMeter = "square_meter"
	UnitSet         = "set"
)

// ValidUnit reports whether s is one of the unit-of-measure values.
func ValidUnit(s string) bool {
	switch s {
	case UnitPiece, UnitSquareMeter, UnitSet:
		return true
	}
	return false
}

// Advertisement 活跃广告（对应 advertisements 表）
// An advertisement with a NULL position is unplaced. At most one
// advertisement may reference a given position (partial unique index).
type Advertisement struct {
	AdID       string         `db:"ad_id"`
	UserID     sql.NullString `db:"user_id"`     // owning user, nullable FK
	PositionID sql.NullString `db:"position_id"` // nullable FK, one-to-one with positions

	AdName         string         `db:"ad_name"`
	DeviceType     string         `db:"device_type"`
	TenantName     sql.NullString `db:"tenant_name"`
	ContractNumber sql.NullString `db:"contract_number"`
	ContractStart  time.Time      `db:"contract_start"` // DATE
	ContractEnd    time.Time      `db:"contract_end"`   // DATE
	Unit           string         `db:"unit"`
	DevicePrice    float64        `db:"device_price"`
	OccupiedArea   float64        `db:"occupied_area"`
	ContractAmount float64        `db:"contract_amount"`
	ContractFile   sql.NullString `db:"contract_file"` // object store reference
	Photo          sql.NullString `db:"photo"`         // object store reference
	ContactNumber  string         `db:"contact_number"`

	CreatedAt time.Time `db:"created_at"` // immutable once set
}

// CopyBusinessFields returns a new Advertisement carrying only the business
// attributes of a. Identity, ownership, position and created_at are left
// zero; the transfer workflow and the archive snapshot both clone through
// this single field list so they cannot drift apart.
func (a Advertisement) CopyBusinessFields() Advertisement {
	return Advertisement{
		AdName:         a.AdName,
		DeviceType:     a.DeviceType,
		TenantName:     a.TenantName,
		ContractNumber: a.ContractNumber,
		ContractStart:  a.ContractStart,
		ContractEnd:    a.ContractEnd,
		Unit:           a.Unit,
		DevicePrice:    a.DevicePrice,
		OccupiedArea:   a.OccupiedArea,
		ContractAmount: a.ContractAmount,
		ContractFile:   a.ContractFile,
		Photo:          a.Photo,
		ContactNumber:  a.ContactNumber,
	}
}
