package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"metroads/internal/domain"
)

type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

var _ CatalogRepository = (*PostgresCatalogRepository)(nil)

// ============================================
// MetroLine 操作
// ============================================

func (r *PostgresCatalogRepository) ListLines(ctx context.Context) ([]domain.MetroLine, error) {
	q := `
		SELECT line_id::text, name, created_at
		FROM metro_lines
		ORDER BY created_at, line_id
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.MetroLine{}
	for rows.Next() {
		var l domain.MetroLine
		if err := rows.Scan(&l.LineID, &l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepository) GetLine(ctx context.Context, lineID string) (*domain.MetroLine, error) {
	if lineID == "" {
		return nil, domain.NotFoundf("line not found")
	}
	q := `SELECT line_id::text, name, created_at FROM metro_lines WHERE line_id = $1`
	var l domain.MetroLine
	err := r.db.QueryRowContext(ctx, q, lineID).Scan(&l.LineID, &l.Name, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("line not found: line_id=%s", lineID)
		}
		return nil, err
	}
	return &l, nil
}

func (r *PostgresCatalogRepository) CreateLine(ctx context.Context, line domain.MetroLine) (string, error) {
	var lineID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO metro_lines (name) VALUES ($1) RETURNING line_id::text`,
		line.Name,
	).Scan(&lineID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return "", domain.Conflictf("line name already exists: %s", line.Name.String)
		}
		return "", fmt.Errorf("failed to create line: %w", err)
	}
	return lineID, nil
}

func (r *PostgresCatalogRepository) UpdateLine(ctx context.Context, lineID string, line domain.MetroLine) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE metro_lines SET name = $1 WHERE line_id = $2`,
		line.Name, lineID,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.Conflictf("line name already exists: %s", line.Name.String)
		}
		return fmt.Errorf("failed to update line: %w", err)
	}
	return requireRow(res, "line", lineID)
}

// DeleteLine detaches stations via the FK's ON DELETE SET NULL.
func (r *PostgresCatalogRepository) DeleteLine(ctx context.Context, lineID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM metro_lines WHERE line_id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	return requireRow(res, "line", lineID)
}

// ============================================
// Station 操作
// ============================================

func (r *PostgresCatalogRepository) ListStations(ctx context.Context, lineID string) ([]domain.Station, error) {
	where := "TRUE"
	args := []any{}
	if lineID != "" {
		where = "line_id = $1"
		args = append(args, lineID)
	}

	q := `
		SELECT station_id::text, name, line_id::text, schema_image, created_at
		FROM stations
		WHERE ` + where + `
		ORDER BY created_at, station_id
	`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Station{}
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.StationID, &s.Name, &s.LineID, &s.SchemaImage, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepository) GetStation(ctx context.Context, stationID string) (*domain.Station, error) {
	if stationID == "" {
		return nil, domain.NotFoundf("station not found")
	}
	q := `
		SELECT station_id::text, name, line_id::text, schema_image, created_at
		FROM stations
		WHERE station_id = $1
	`
	var s domain.Station
	err := r.db.QueryRowContext(ctx, q, stationID).Scan(&s.StationID, &s.Name, &s.LineID, &s.SchemaImage, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("station not found: station_id=%s", stationID)
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresCatalogRepository) CreateStation(ctx context.Context, st domain.Station) (string, error) {
	if st.LineID.Valid {
		if _, err := r.GetLine(ctx, st.LineID.String); err != nil {
			return "", err
		}
	}
	var stationID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO stations (name, line_id) VALUES ($1, $2) RETURNING station_id::text`,
		st.Name, st.LineID,
	).Scan(&stationID)
	if err != nil {
		return "", fmt.Errorf("failed to create station: %w", err)
	}
	return stationID, nil
}

func (r *PostgresCatalogRepository) UpdateStation(ctx context.Context, stationID string, st domain.Station) error {
	if st.LineID.Valid {
		if _, err := r.GetLine(ctx, st.LineID.String); err != nil {
			return err
		}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE stations SET name = $1, line_id = $2 WHERE station_id = $3`,
		st.Name, st.LineID, stationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update station: %w", err)
	}
	return requireRow(res, "station", stationID)
}

// DeleteStation detaches positions via the FK's ON DELETE SET NULL.
func (r *PostgresCatalogRepository) DeleteStation(ctx context.Context, stationID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE station_id = $1`, stationID)
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	return requireRow(res, "station", stationID)
}

func (r *PostgresCatalogRepository) SetStationImage(ctx context.Context, stationID, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE stations SET schema_image = $1 WHERE station_id = $2`,
		ref, stationID,
	)
	if err != nil {
		return fmt.Errorf("failed to set station image: %w", err)
	}
	return requireRow(res, "station", stationID)
}

// ============================================
// Position 操作
// ============================================

func (r *PostgresCatalogRepository) ListPositions(ctx context.Context, stationID string) ([]domain.Position, error) {
	where := "TRUE"
	args := []any{}
	if stationID != "" {
		where = "station_id = $1"
		args = append(args, stationID)
	}

	q := `
		SELECT position_id::text, station_id::text, number, x, y, created_at
		FROM positions
		WHERE ` + where + `
		ORDER BY number, position_id
	`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Position{}
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.PositionID, &p.StationID, &p.Number, &p.X, &p.Y, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepository) GetPosition(ctx context.Context, positionID string) (*domain.Position, error) {
	if positionID == "" {
		return nil, domain.NotFoundf("position not found")
	}
	q := `
		SELECT position_id::text, station_id::text, number, x, y, created_at
		FROM positions
		WHERE position_id = $1
	`
	var p domain.Position
	err := r.db.QueryRowContext(ctx, q, positionID).Scan(&p.PositionID, &p.StationID, &p.Number, &p.X, &p.Y, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("position not found: position_id=%s", positionID)
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresCatalogRepository) CreatePosition(ctx context.Context, p domain.Position) (string, error) {
	if p.StationID.Valid {
		if _, err := r.GetStation(ctx, p.StationID.String); err != nil {
			return "", err
		}
	}
	var positionID string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO positions (station_id, number, x, y) VALUES ($1, $2, $3, $4) RETURNING position_id::text`,
		p.StationID, p.Number, p.X, p.Y,
	).Scan(&positionID)
	if err != nil {
		if isUniqueViolation(err, "uq_positions_station_number") {
			return "", domain.Conflictf("position number %d already exists at this station", p.Number)
		}
		return "", fmt.Errorf("failed to create position: %w", err)
	}
	return positionID, nil
}

func (r *PostgresCatalogRepository) UpdatePosition(ctx context.Context, positionID string, p domain.Position) error {
	if p.StationID.Valid {
		if _, err := r.GetStation(ctx, p.StationID.String); err != nil {
			return err
		}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE positions SET station_id = $1, number = $2, x = $3, y = $4 WHERE position_id = $5`,
		p.StationID, p.Number, p.X, p.Y, positionID,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_positions_station_number") {
			return domain.Conflictf("position number %d already exists at this station", p.Number)
		}
		return fmt.Errorf("failed to update position: %w", err)
	}
	return requireRow(res, "position", positionID)
}

func (r *PostgresCatalogRepository) DeletePosition(ctx context.Context, positionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM positions WHERE position_id = $1`, positionID)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return requireRow(res, "position", positionID)
}

// ============================================
// 辅助函数
// ============================================

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf("%s not found: %s_id=%s", entity, entity, id)
	}
	return nil
}
