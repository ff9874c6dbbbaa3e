package domain

import (
	"database/sql"
	"time"
)

// MetroLine 地铁线路（对应 metro_lines 表）
type MetroLine struct {
	LineID    string         `db:"line_id"`
	Name      sql.NullString `db:"name"` // nullable, UNIQUE when set
	CreatedAt time.Time      `db:"created_at"`
}

// Station 车站（对应 stations 表）
// line_id is SET NULL on line deletion: a station survives its line.
type Station struct {
	StationID   string         `db:"station_id"`
	Name        sql.NullString `db:"name"`
	LineID      sql.NullString `db:"line_id"`      // nullable FK
	SchemaImage sql.NullString `db:"schema_image"` // object store reference
	CreatedAt   time.Time      `db:"created_at"`
}

// Position 广告位（对应 positions 表）
// number is unique within a station. x/y are optional UI coordinates in
// percent of the station schema image.
type Position struct {
	PositionID string          `db:"position_id"`
	StationID  sql.NullString  `db:"station_id"` // nullable FK, SET NULL on station deletion
	Number     int             `db:"number"`
	X          sql.NullFloat64 `db:"x"`
	Y          sql.NullFloat64 `db:"y"`
	CreatedAt  time.Time       `db:"created_at"`
}
