package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"metroads/internal/domain"
)

type PostgresArchiveRepository struct {
	db *sql.DB
}

func NewPostgresArchiveRepository(db *sql.DB) *PostgresArchiveRepository {
	return &PostgresArchiveRepository{db: db}
}

var _ ArchiveRepository = (*PostgresArchiveRepository)(nil)

const archiveColumns = `
	archive_id::text,
	ad_id::text,
	user_id::text,
	line_id::text,
	station_id::text,
	position_id::text,
	line_name,
	station_name,
	ad_name,
	device_type,
	tenant_name,
	contract_number,
	contract_start,
	contract_end,
	unit,
	device_price,
	occupied_area,
	contract_amount,
	contract_file,
	photo,
	contact_number,
	created_at`

func scanArchive(s interface{ Scan(...any) error }) (domain.Archive, error) {
	var a domain.Archive
	err := s.Scan(
		&a.ArchiveID,
		&a.AdID,
		&a.UserID,
		&a.LineID,
		&a.StationID,
		&a.PositionID,
		&a.LineName,
		&a.StationName,
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

// Archive filters hit the denormalized snapshot columns directly; no joins,
// the chain the row pointed at may no longer exist.
func buildArchiveWhere(f ArchiveFilters) ([]string, []any) {
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

	addEq("line_id", f.LineID)
	addEq("station_id", f.StationID)
	addEq("position_id", f.PositionID)

	if f.Search != "" {
		where = append(where, fmt.Sprintf("ad_name ILIKE $%d", argN))
		args = append(args, "%"+f.Search+"%")
		argN++
	}

	return where, args
}

func archiveOrderClause(ordering string) string {
	switch ordering {
	case "created_at":
		return "created_at ASC, archive_id"
	case "device_price":
		return "device_price ASC, archive_id"
	case "-device_price":
		return "device_price DESC, archive_id"
	default:
		return "created_at DESC, archive_id DESC"
	}
}

func (r *PostgresArchiveRepository) List(ctx context.Context, f ArchiveFilters, page, size int) ([]domain.Archive, int, error) {
	where, args := buildArchiveWhere(f)
	from := " FROM advertisement_archive WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from, args...).Scan(&total); err != nil {
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
	q := "SELECT " + archiveColumns + from +
		" ORDER BY " + archiveOrderClause(f.Ordering) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argN, argN+1)
	rows, err := r.db.QueryContext(ctx, q, append(args, size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []domain.Archive{}
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *PostgresArchiveRepository) ListAll(ctx context.Context, f ArchiveFilters) ([]domain.Archive, error) {
	where, args := buildArchiveWhere(f)
	q := "SELECT " + archiveColumns +
		" FROM advertisement_archive WHERE " + strings.Join(where, " AND ") +
		" ORDER BY " + archiveOrderClause(f.Ordering)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Archive{}
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *PostgresArchiveRepository) Get(ctx context.Context, archiveID string) (*domain.Archive, error) {
	if archiveID == "" {
		return nil, domain.NotFoundf("archive record not found")
	}
	q := "SELECT " + archiveColumns + " FROM advertisement_archive WHERE archive_id = $1"
	a, err := scanArchive(r.db.QueryRowContext(ctx, q, archiveID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("archive record not found: archive_id=%s", archiveID)
		}
		return nil, err
	}
	return &a, nil
}
