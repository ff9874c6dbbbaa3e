package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"metroads/internal/domain"
)

type PostgresAdvertisementsRepository struct {
	db *sql.DB
}

func NewPostgresAdvertisementsRepository(db *sql.DB) *PostgresAdvertisementsRepository {
	return &PostgresAdvertisementsRepository{db: db}
}

var _ AdvertisementsRepository = (*PostgresAdvertisementsRepository)(nil)

const adColumns = `
	a.ad_id::text,
	a.user_id::text,
	a.position_id::text,
	a.ad_name,
	a.device_type,
	a.tenant_name,
	a.contract_number,
	a.contract_start,
	a.contract_end,
	a.unit,
	a.device_price,
	a.occupied_area,
	a.contract_amount,
	a.contract_file,
	a.photo,
	a.contact_number,
	a.created_at`

func scanAd(s interface{ Scan(...any) error }) (domain.Advertisement, error) {
	var a domain.Advertisement
	err := s.Scan(
		&a.AdID,
		&a.UserID,
		&a.PositionID,
		&a.AdName,
		&a.DeviceType,
		&a.TenantName,
		&a.ContractNumber,
		&a.ContractStart,
		&a.ContractEnd,
		&a.Unit,
		&a.DevicePrice,
		&a.OccupiedArea,
		&a.ContractAmount,
		&a.ContractFile,
		&a.Photo,
		&a.ContactNumber,
		&a.CreatedAt,
	)
	return a, err
}

// buildAdWhere assembles the filter clause. The positions/stations joins are
// LEFT so unplaced advertisements still list when no catalog filter is set.
func buildAdWhere(f AdFilters) ([]string, []any) {
	where := []string{"TRUE"}
	args := []any{}
	argN := 1

	addEq := func(col, val string) {
		if val == "" {
			return
		}
		where = append(where, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
		argN++
	}

	addEq("a.position_id", f.PositionID)
	addEq("p.station_id", f.StationID)
	addEq("s.line_id", f.LineID)

	if f.Search != "" {
		where = append(where, fmt.Sprintf("(a.tenant_name ILIKE $%d OR a.contract_number ILIKE $%d)", argN, argN))
		args = append(args, "%"+f.Search+"%")
		argN++
	}

	return where, args
}

func adOrderClause(ordering string) string {
	switch ordering {
	case "-created_at":
		return "a.created_at DESC, a.ad_id DESC"
	case "device_price":
		return "a.device_price ASC, a.ad_id"
	case "-device_price":
		return "a.device_price DESC, a.ad_id"
	default:
		return "a.created_at ASC, a.ad_id"
	}
}

func (r *PostgresAdvertisementsRepository) List(ctx context.Context, f AdFilters, page, size int) ([]domain.Advertisement, int, error) {
	where, args := buildAdWhere(f)
	from := `
		FROM advertisements a
		LEFT JOIN positions p ON p.position_id = a.position_id
		LEFT JOIN stations s ON s.station_id = p.station_id
		WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) "+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 100
	}
	offset := (page - 1) * size

	argN := len(args) + 1
	q := "SELECT " + adColumns + " " + from +
		" ORDER BY " + adOrderClause(f.Ordering) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argN, argN+1)
	rows, err := r.db.QueryContext(ctx, q, append(args, size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []domain.Advertisement{}
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *PostgresAdvertisementsRepository) ListAll(ctx context.Context, f AdFilters) ([]domain.Advertisement, error) {
	where, args := buildAdWhere(f)
	q := "SELECT " + adColumns + `
		FROM advertisements a
		LEFT JOIN positions p ON p.position_id = a.position_id
		LEFT JOIN stations s ON s.station_id = p.station_id
		WHERE ` + strings.Join(where, " AND ") +
		" ORDER BY " + adOrderClause(f.Ordering)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Advertisement{}
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *PostgresAdvertisementsRepository) Get(ctx context.Context, adID string) (*domain.Advertisement, error) {
	if adID == "" {
		return nil, domain.NotFoundf("advertisement not found")
	}
	q := "SELECT " + adColumns + " FROM advertisements a WHERE a.ad_id = $1"
	a, err := scanAd(r.db.QueryRowContext(ctx, q, adID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("advertisement not found: ad_id=%s", adID)
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAdvertisementsRepository) GetByPosition(ctx context.Context, positionID string) (*domain.Advertisement, error) {
	q := "SELECT " + adColumns + " FROM advertisements a WHERE a.position_id = $1"
	a, err := scanAd(r.db.QueryRowContext(ctx, q, positionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("no advertisement at position: position_id=%s", positionID)
		}
		return nil, err
	}
	return &a, nil
}

// ============================================
// 变更操作（快照 + 变更在同一事务内）
// ============================================

func (r *PostgresAdvertisementsRepository) Create(ctx context.Context, ad domain.Advertisement, actingUserID string) (string, error) {
	if !ad.PositionID.Valid || ad.PositionID.String == "" {
		return "", domain.Validationf("position required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := positionForUpdateTx(ctx, tx, ad.PositionID.String); err != nil {
		return "", err
	}

	var occupantID string
	err = tx.QueryRowContext(ctx,
		`SELECT ad_id::text FROM advertisements WHERE position_id = $1 FOR UPDATE`,
		ad.PositionID.String,
	).Scan(&occupantID)
	if err == nil {
		return "", domain.Validationf("position already occupied")
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	// Duplicate contract numbers are rejected on create only; transfers may
	// reintroduce them (preserved behavior of the original workflow).
	if ad.ContractNumber.Valid && ad.ContractNumber.String != "" {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM advertisements WHERE contract_number = $1)`,
			ad.ContractNumber.String,
		).Scan(&exists); err != nil {
			return "", err
		}
		if exists {
			return "", domain.Validationf("contract number already exists: %s", ad.ContractNumber.String)
		}
	}

	adID, err := insertAdTx(ctx, tx, ad, nullID(actingUserID))
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, "uq_advertisements_position") {
			return "", domain.Conflictf("position taken by a concurrent advertisement")
		}
		return "", err
	}
	return adID, nil
}

func (r *PostgresAdvertisementsRepository) Update(ctx context.Context, adID string, ad domain.Advertisement, actingUserID string) error {
	if !ad.PositionID.Valid || ad.PositionID.String == "" {
		return domain.Validationf("position required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cur, err := adForUpdateTx(ctx, tx, adID)
	if err != nil {
		return err
	}

	// A position change must target a free position (or keep the current one).
	if !cur.PositionID.Valid || ad.PositionID.String != cur.PositionID.String {
		if _, err := positionForUpdateTx(ctx, tx, ad.PositionID.String); err != nil {
			return err
		}
		var occupantID string
		err := tx.QueryRowContext(ctx,
			`SELECT ad_id::text FROM advertisements WHERE position_id = $1 AND ad_id <> $2 FOR UPDATE`,
			ad.PositionID.String, adID,
		).Scan(&occupantID)
		if err == nil {
			return domain.Validationf("position already occupied")
		}
		if err != sql.ErrNoRows {
			return err
		}
	}

	// Snapshot the pre-change state before touching the row.
	if err := snapshotTx(ctx, tx, *cur, nullID(actingUserID)); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE advertisements SET
			user_id = $1,
			position_id = $2,
			ad_name = $3,
			device_type = $4,
			tenant_name = $5,
			contract_number = $6,
			contract_start = $7,
			contract_end = $8,
			unit = $9,
			device_price = $10,
			occupied_area = $11,
			contract_amount = $12,
			contract_file = $13,
			photo = $14,
			contact_number = $15
		WHERE ad_id = $16`,
		nullID(actingUserID),
		ad.PositionID,
		ad.AdName,
		ad.DeviceType,
		ad.TenantName,
		ad.ContractNumber,
		ad.ContractStart,
		ad.ContractEnd,
		ad.Unit,
		ad.DevicePrice,
		ad.OccupiedArea,
		ad.ContractAmount,
		ad.ContractFile,
		ad.Photo,
		ad.ContactNumber,
		adID,
	)
	if err != nil {
		return fmt.Errorf("failed to update advertisement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, "uq_advertisements_position") {
			return domain.Conflictf("position taken by a concurrent advertisement")
		}
		return err
	}
	return nil
}

func (r *PostgresAdvertisementsRepository) Delete(ctx context.Context, adID string, actingUserID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cur, err := adForUpdateTx(ctx, tx, adID)
	if err != nil {
		return err
	}

	if err := snapshotTx(ctx, tx, *cur, nullID(actingUserID)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM advertisements WHERE ad_id = $1`, adID); err != nil {
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}

	return tx.Commit()
}

// Transfer runs the whole move as one transaction:
//  1. archive + delete the target's occupant, if any
//  2. clone the source's business fields onto the target position
//  3. archive the clone (records the completed move)
//  4. delete the source advertisement, freeing its position
//
// When the target is the source's own position the occupant is the source
// itself: it is archived and deleted, then recreated in place, yielding two
// archive rows for an in-place move (preserved behavior).
func (r *PostgresAdvertisementsRepository) Transfer(ctx context.Context, sourceAdID, targetPositionID, actingUserID string) error {
	if targetPositionID == "" {
		return domain.Validationf("position required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	source, err := adForUpdateTx(ctx, tx, sourceAdID)
	if err != nil {
		return err
	}
	if _, err := positionForUpdateTx(ctx, tx, targetPositionID); err != nil {
		return err
	}

	acting := nullID(actingUserID)

	occupant, err := adByPositionForUpdateTx(ctx, tx, targetPositionID)
	if err != nil {
		return err
	}
	if occupant != nil {
		if err := snapshotTx(ctx, tx, *occupant, acting); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM advertisements WHERE ad_id = $1`, occupant.AdID); err != nil {
			return fmt.Errorf("failed to delete displaced advertisement: %w", err)
		}
	}

	clone := source.CopyBusinessFields()
	clone.UserID = acting
	clone.PositionID = sql.NullString{String: targetPositionID, Valid: true}

	cloneID, err := insertAdTx(ctx, tx, clone, acting)
	if err != nil {
		return err
	}
	clone.AdID = cloneID

	if err := snapshotTx(ctx, tx, clone, acting); err != nil {
		return err
	}

	// No-op when the occupant branch already removed the source (self-transfer).
	if _, err := tx.ExecContext(ctx, `DELETE FROM advertisements WHERE ad_id = $1`, sourceAdID); err != nil {
		return fmt.Errorf("failed to delete source advertisement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, "uq_advertisements_position") {
			return domain.Conflictf("position taken by a concurrent transfer")
		}
		return err
	}
	return nil
}

// SetFile records an uploaded attachment reference. It is an advertisement
// mutation like any other, so the pre-change state is archived first.
func (r *PostgresAdvertisementsRepository) SetFile(ctx context.Context, adID string, field FileField, ref string) error {
	var col string
	switch field {
	case FileContract:
		col = "contract_file"
	case FilePhoto:
		col = "photo"
	default:
		return domain.Validationf("unknown file field: %s", field)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cur, err := adForUpdateTx(ctx, tx, adID)
	if err != nil {
		return err
	}
	if err := snapshotTx(ctx, tx, *cur, cur.UserID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE advertisements SET `+col+` = $1 WHERE ad_id = $2`, ref, adID,
	); err != nil {
		return fmt.Errorf("failed to set %s: %w", col, err)
	}

	return tx.Commit()
}

// ============================================
// 事务内辅助函数
// ============================================

func adForUpdateTx(ctx context.Context, tx *sql.Tx, adID string) (*domain.Advertisement, error) {
	q := "SELECT " + adColumns + " FROM advertisements a WHERE a.ad_id = $1 FOR UPDATE OF a"
	a, err := scanAd(tx.QueryRowContext(ctx, q, adID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("advertisement not found: ad_id=%s", adID)
		}
		return nil, err
	}
	return &a, nil
}

func adByPositionForUpdateTx(ctx context.Context, tx *sql.Tx, positionID string) (*domain.Advertisement, error) {
	q := "SELECT " + adColumns + " FROM advertisements a WHERE a.position_id = $1 FOR UPDATE OF a"
	a, err := scanAd(tx.QueryRowContext(ctx, q, positionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// positionForUpdateTx locks the position row so concurrent transfers
// targeting the same position serialize on it.
func positionForUpdateTx(ctx context.Context, tx *sql.Tx, positionID string) (*domain.Position, error) {
	var p domain.Position
	err := tx.QueryRowContext(ctx, `
		SELECT position_id::text, station_id::text, number, x, y, created_at
		FROM positions WHERE position_id = $1 FOR UPDATE`,
		positionID,
	).Scan(&p.PositionID, &p.StationID, &p.Number, &p.X, &p.Y, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("position not found: position_id=%s", positionID)
		}
		return nil, err
	}
	return &p, nil
}

func insertAdTx(ctx context.Context, tx *sql.Tx, ad domain.Advertisement, owner sql.NullString) (string, error) {
	var adID string
	err := tx.QueryRowContext(ctx, `
		INSERT INTO advertisements (
			user_id, position_id, ad_name, device_type, tenant_name,
			contract_number, contract_start, contract_end, unit,
			device_price, occupied_area, contract_amount,
			contract_file, photo, contact_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ad_id::text`,
		owner,
		ad.PositionID,
		ad.AdName,
		ad.DeviceType,
		ad.TenantName,
		ad.ContractNumber,
		ad.ContractStart,
		ad.ContractEnd,
		ad.Unit,
		ad.DevicePrice,
		ad.OccupiedArea,
		ad.ContractAmount,
		ad.ContractFile,
		ad.Photo,
		ad.ContactNumber,
	).Scan(&adID)
	if err != nil {
		if isUniqueViolation(err, "uq_advertisements_position") {
			return "", domain.Conflictf("position taken by a concurrent advertisement")
		}
		return "", fmt.Errorf("failed to insert advertisement: %w", err)
	}
	return adID, nil
}

// snapshotTx is the single archive routine shared by update, delete and both
// transfer legs. It resolves the position→station→line chain inside the
// surrounding transaction; each link may be gone and snapshots best effort.
// Calling it twice writes two independent rows: the archive is a log, not a
// mirror.
func snapshotTx(ctx context.Context, tx *sql.Tx, ad domain.Advertisement, actingUser sql.NullString) error {
	var pos *domain.Position
	var st *domain.Station
	var line *domain.MetroLine

	if ad.PositionID.Valid {
		var p domain.Position
		var s domain.Station
		var l domain.MetroLine
		var stationID, lineID sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT
				p.position_id::text, p.number,
				s.station_id::text, s.name,
				l.line_id::text, l.name
			FROM positions p
			LEFT JOIN stations s ON s.station_id = p.station_id
			LEFT JOIN metro_lines l ON l.line_id = s.line_id
			WHERE p.position_id = $1`,
			ad.PositionID.String,
		).Scan(&p.PositionID, &p.Number, &stationID, &s.Name, &lineID, &l.Name)
		switch {
		case err == sql.ErrNoRows:
			// Position gone: archive with the chain broken.
		case err != nil:
			return err
		default:
			pos = &p
			if stationID.Valid {
				s.StationID = stationID.String
				st = &s
			}
			if lineID.Valid {
				l.LineID = lineID.String
				line = &l
			}
		}
	}

	ar := domain.SnapshotOf(ad, actingUser, pos, st, line)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO advertisement_archive (
			ad_id, user_id, line_id, station_id, position_id,
			line_name, station_name,
			ad_name, device_type, tenant_name, contract_number,
			contract_start, contract_end, unit,
			device_price, occupied_area, contract_amount,
			contract_file, photo, contact_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		ar.AdID,
		ar.UserID,
		ar.LineID,
		ar.StationID,
		ar.PositionID,
		ar.LineName,
		ar.StationName,
		ar.AdName,
		ar.DeviceType,
		ar.TenantName,
		ar.ContractNumber,
		ar.ContractStart,
		ar.ContractEnd,
		ar.Unit,
		ar.DevicePrice,
		ar.OccupiedArea,
		ar.ContractAmount,
		ar.ContractFile,
		ar.Photo,
		ar.ContactNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to write archive snapshot: %w", err)
	}
	return nil
}

func nullID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}
