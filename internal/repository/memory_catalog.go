package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"metroads/internal/domain"
)

// MemoryCatalogRepository supports running without a database. Semantics
// mirror the postgres implementation, including the SET NULL detach chain:
// deleting a line orphans its stations, deleting a station orphans its
// positions.
type MemoryCatalogRepository struct {
	mu        sync.RWMutex
	lines     map[string]domain.MetroLine
	stations  map[string]domain.Station
	positions map[string]domain.Position

	// onPositionDeleted lets the advertisements store detach placements
	// when a position disappears (the FK would do this in postgres).
	onPositionDeleted func(positionID string)
}

func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		lines:     map[string]domain.MetroLine{},
		stations:  map[string]domain.Station{},
		positions: map[string]domain.Position{},
	}
}

var _ CatalogRepository = (*MemoryCatalogRepository)(nil)

// OnPositionDeleted registers the detach callback. Wired once at startup.
func (r *MemoryCatalogRepository) OnPositionDeleted(fn func(positionID string)) {
	r.onPositionDeleted = fn
}

// ============================================
// 线路
// ============================================

func (r *MemoryCatalogRepository) ListLines(_ context.Context) ([]domain.MetroLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.MetroLine, 0, len(r.lines))
	for _, l := range r.lines {
		all = append(all, l)
	}
	sortByCreated(all, func(l domain.MetroLine) (time.Time, string) { return l.CreatedAt, l.LineID })
	return all, nil
}

func (r *MemoryCatalogRepository) GetLine(_ context.Context, lineID string) (*domain.MetroLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.lines[lineID]
	if !ok {
		return nil, domain.NotFoundf("metro line not found: line_id=%s", lineID)
	}
	return &l, nil
}

func (r *MemoryCatalogRepository) CreateLine(_ context.Context, line domain.MetroLine) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLineName(line.Name, ""); err != nil {
		return "", err
	}
	line.LineID = uuid.NewString()
	line.CreatedAt = time.Now()
	r.lines[line.LineID] = line
	return line.LineID, nil
}

func (r *MemoryCatalogRepository) UpdateLine(_ context.Context, lineID string, line domain.MetroLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.lines[lineID]
	if !ok {
		return domain.NotFoundf("metro line not found: line_id=%s", lineID)
	}
	if err := r.checkLineName(line.Name, lineID); err != nil {
		return err
	}
	cur.Name = line.Name
	r.lines[lineID] = cur
	return nil
}

func (r *MemoryCatalogRepository) DeleteLine(_ context.Context, lineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lines[lineID]; !ok {
		return domain.NotFoundf("metro line not found: line_id=%s", lineID)
	}
	delete(r.lines, lineID)
	for id, st := range r.stations {
		if st.LineID.Valid && st.LineID.String == lineID {
			st.LineID = sql.NullString{}
			r.stations[id] = st
		}
	}
	return nil
}

func (r *MemoryCatalogRepository) checkLineName(name sql.NullString, exceptID string) error {
	if !name.Valid || name.String == "" {
		return nil
	}
	for id, l := range r.lines {
		if id != exceptID && l.Name.Valid && l.Name.String == name.String {
			return domain.Conflictf("metro line name already exists: %s", name.String)
		}
	}
	return nil
}

// ============================================
// 车站
// ============================================

func (r *MemoryCatalogRepository) ListStations(_ context.Context, lineID string) ([]domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []domain.Station{}
	for _, st := range r.stations {
		if lineID != "" && (!st.LineID.Valid || st.LineID.String != lineID) {
			continue
		}
		all = append(all, st)
	}
	sortByCreated(all, func(s domain.Station) (time.Time, string) { return s.CreatedAt, s.StationID })
	return all, nil
}

func (r *MemoryCatalogRepository) GetStation(_ context.Context, stationID string) (*domain.Station, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.stations[stationID]
	if !ok {
		return nil, domain.NotFoundf("station not found: station_id=%s", stationID)
	}
	return &st, nil
}

func (r *MemoryCatalogRepository) CreateStation(_ context.Context, st domain.Station) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st.LineID.Valid {
		if _, ok := r.lines[st.LineID.String]; !ok {
			return "", domain.NotFoundf("metro line not found: line_id=%s", st.LineID.String)
		}
	}
	st.StationID = uuid.NewString()
	st.CreatedAt = time.Now()
	r.stations[st.StationID] = st
	return st.StationID, nil
}

func (r *MemoryCatalogRepository) UpdateStation(_ context.Context, stationID string, st domain.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.stations[stationID]
	if !ok {
		return domain.NotFoundf("station not found: station_id=%s", stationID)
	}
	if st.LineID.Valid {
		if _, ok := r.lines[st.LineID.String]; !ok {
			return domain.NotFoundf("metro line not found: line_id=%s", st.LineID.String)
		}
	}
	cur.Name = st.Name
	cur.LineID = st.LineID
	r.stations[stationID] = cur
	return nil
}

func (r *MemoryCatalogRepository) DeleteStation(_ context.Context, stationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stations[stationID]; !ok {
		return domain.NotFoundf("station not found: station_id=%s", stationID)
	}
	delete(r.stations, stationID)
	for id, p := range r.positions {
		if p.StationID.Valid && p.StationID.String == stationID {
			p.StationID = sql.NullString{}
			r.positions[id] = p
		}
	}
	return nil
}

func (r *MemoryCatalogRepository) SetStationImage(_ context.Context, stationID, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stations[stationID]
	if !ok {
		return domain.NotFoundf("station not found: station_id=%s", stationID)
	}
	st.SchemaImage = sql.NullString{String: ref, Valid: ref != ""}
	r.stations[stationID] = st
	return nil
}

// ============================================
// 广告位
// ============================================

func (r *MemoryCatalogRepository) ListPositions(_ context.Context, stationID string) ([]domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []domain.Position{}
	for _, p := range r.positions {
		if stationID != "" && (!p.StationID.Valid || p.StationID.String != stationID) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Number != all[j].Number {
			return all[i].Number < all[j].Number
		}
		return all[i].PositionID < all[j].PositionID
	})
	return all, nil
}

func (r *MemoryCatalogRepository) GetPosition(_ context.Context, positionID string) (*domain.Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.positions[positionID]
	if !ok {
		return nil, domain.NotFoundf("position not found: position_id=%s", positionID)
	}
	return &p, nil
}

func (r *MemoryCatalogRepository) CreatePosition(_ context.Context, p domain.Position) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.StationID.Valid {
		if _, ok := r.stations[p.StationID.String]; !ok {
			return "", domain.NotFoundf("station not found: station_id=%s", p.StationID.String)
		}
	}
	if err := r.checkPositionNumber(p.StationID, p.Number, ""); err != nil {
		return "", err
	}
	p.PositionID = uuid.NewString()
	p.CreatedAt = time.Now()
	r.positions[p.PositionID] = p
	return p.PositionID, nil
}

func (r *MemoryCatalogRepository) UpdatePosition(_ context.Context, positionID string, p domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.positions[positionID]
	if !ok {
		return domain.NotFoundf("position not found: position_id=%s", positionID)
	}
	if p.StationID.Valid {
		if _, ok := r.stations[p.StationID.String]; !ok {
			return domain.NotFoundf("station not found: station_id=%s", p.StationID.String)
		}
	}
	if err := r.checkPositionNumber(p.StationID, p.Number, positionID); err != nil {
		return err
	}
	cur.StationID = p.StationID
	cur.Number = p.Number
	cur.X = p.X
	cur.Y = p.Y
	r.positions[positionID] = cur
	return nil
}

func (r *MemoryCatalogRepository) DeletePosition(_ context.Context, positionID string) error {
	r.mu.Lock()
	if _, ok := r.positions[positionID]; !ok {
		r.mu.Unlock()
		return domain.NotFoundf("position not found: position_id=%s", positionID)
	}
	delete(r.positions, positionID)
	fn := r.onPositionDeleted
	r.mu.Unlock()

	if fn != nil {
		fn(positionID)
	}
	return nil
}

// checkPositionNumber enforces number uniqueness within a station, matching
// the uq_positions_station_number constraint.
func (r *MemoryCatalogRepository) checkPositionNumber(stationID sql.NullString, number int, exceptID string) error {
	if !stationID.Valid {
		return nil
	}
	for id, p := range r.positions {
		if id == exceptID {
			continue
		}
		if p.StationID.Valid && p.StationID.String == stationID.String && p.Number == number {
			return domain.Conflictf("position number already exists at station: %d", number)
		}
	}
	return nil
}

// resolveChain looks up the position/station/line snapshot inputs for an
// archive row; each link may be missing.
func (r *MemoryCatalogRepository) resolveChain(positionID sql.NullString) (*domain.Position, *domain.Station, *domain.MetroLine) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !positionID.Valid {
		return nil, nil, nil
	}
	p, ok := r.positions[positionID.String]
	if !ok {
		return nil, nil, nil
	}
	pos := p
	if !p.StationID.Valid {
		return &pos, nil, nil
	}
	s, ok := r.stations[p.StationID.String]
	if !ok {
		return &pos, nil, nil
	}
	st := s
	if !s.LineID.Valid {
		return &pos, &st, nil
	}
	l, ok := r.lines[s.LineID.String]
	if !ok {
		return &pos, &st, nil
	}
	line := l
	return &pos, &st, &line
}

func sortByCreated[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return idi < idj
	})
}
