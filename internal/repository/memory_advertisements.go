package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"metroads/internal/domain"
)

// MemoryArchiveRepository is the in-memory append-only snapshot log.
type MemoryArchiveRepository struct {
	mu   sync.RWMutex
	rows []domain.Archive
}

func NewMemoryArchiveRepository() *MemoryArchiveRepository {
	return &MemoryArchiveRepository{}
}

var _ ArchiveRepository = (*MemoryArchiveRepository)(nil)

func (r *MemoryArchiveRepository) append(rows ...domain.Archive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ar := range rows {
		ar.ArchiveID = uuid.NewString()
		ar.CreatedAt = time.Now()
		r.rows = append(r.rows, ar)
	}
}

func (r *MemoryArchiveRepository) filtered(f ArchiveFilters) []domain.Archive {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Archive{}
	for _, ar := range r.rows {
		if f.LineID != "" && (!ar.LineID.Valid || ar.LineID.String != f.LineID) {
			continue
		}
		if f.StationID != "" && (!ar.StationID.Valid || ar.StationID.String != f.StationID) {
			continue
		}
		if f.PositionID != "" && (!ar.PositionID.Valid || ar.PositionID.String != f.PositionID) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(ar.AdName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, ar)
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch f.Ordering {
		case "created_at":
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case "device_price":
			return out[i].DevicePrice < out[j].DevicePrice
		case "-device_price":
			return out[i].DevicePrice > out[j].DevicePrice
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out
}

func (r *MemoryArchiveRepository) List(_ context.Context, f ArchiveFilters, page, size int) ([]domain.Archive, int, error) {
	all := r.filtered(f)
	items, total := slicePage(all, page, size)
	return items, total, nil
}

func (r *MemoryArchiveRepository) ListAll(_ context.Context, f ArchiveFilters) ([]domain.Archive, error) {
	return r.filtered(f), nil
}

func (r *MemoryArchiveRepository) Get(_ context.Context, archiveID string) (*domain.Archive, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ar := range r.rows {
		if ar.ArchiveID == archiveID {
			cp := ar
			return &cp, nil
		}
	}
	return nil, domain.NotFoundf("archive record not found: archive_id=%s", archiveID)
}

// MemoryAdvertisementsRepository backs the placement store without a
// database. It shares the catalog (for chain resolution and position
// existence) and the archive log (snapshots on every mutation).
type MemoryAdvertisementsRepository struct {
	mu      sync.Mutex
	ads     map[string]domain.Advertisement
	catalog *MemoryCatalogRepository
	archive *MemoryArchiveRepository

	// transferFault injects a failure between transfer stages; nothing may
	// be applied when it fires. Test hook only.
	transferFault func(stage string) error
}

func NewMemoryAdvertisementsRepository(catalog *MemoryCatalogRepository, archive *MemoryArchiveRepository) *MemoryAdvertisementsRepository {
	r := &MemoryAdvertisementsRepository{
		ads:     map[string]domain.Advertisement{},
		catalog: catalog,
		archive: archive,
	}
	catalog.OnPositionDeleted(r.detachPosition)
	return r
}

var _ AdvertisementsRepository = (*MemoryAdvertisementsRepository)(nil)

// detachPosition mimics the SET NULL FK when a position is removed.
func (r *MemoryAdvertisementsRepository) detachPosition(positionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ad := range r.ads {
		if ad.PositionID.Valid && ad.PositionID.String == positionID {
			ad.PositionID = sql.NullString{}
			r.ads[id] = ad
		}
	}
}

func (r *MemoryAdvertisementsRepository) matches(ad domain.Advertisement, f AdFilters) bool {
	if f.PositionID != "" && (!ad.PositionID.Valid || ad.PositionID.String != f.PositionID) {
		return false
	}
	if f.StationID != "" || f.LineID != "" {
		_, st, line := r.catalog.resolveChain(ad.PositionID)
		if f.StationID != "" && (st == nil || st.StationID != f.StationID) {
			return false
		}
		if f.LineID != "" && (line == nil || line.LineID != f.LineID) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		tenant := ""
		if ad.TenantName.Valid {
			tenant = strings.ToLower(ad.TenantName.String)
		}
		contract := ""
		if ad.ContractNumber.Valid {
			contract = strings.ToLower(ad.ContractNumber.String)
		}
		if !strings.Contains(tenant, needle) && !strings.Contains(contract, needle) {
			return false
		}
	}
	return true
}

func (r *MemoryAdvertisementsRepository) filtered(f AdFilters) []domain.Advertisement {
	r.mu.Lock()
	all := make([]domain.Advertisement, 0, len(r.ads))
	for _, ad := range r.ads {
		all = append(all, ad)
	}
	r.mu.Unlock()

	out := []domain.Advertisement{}
	for _, ad := range all {
		if r.matches(ad, f) {
			out = append(out, ad)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch f.Ordering {
		case "-created_at":
			return out[i].CreatedAt.After(out[j].CreatedAt)
		case "device_price":
			return out[i].DevicePrice < out[j].DevicePrice
		case "-device_price":
			return out[i].DevicePrice > out[j].DevicePrice
		default:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
	})
	return out
}

func (r *MemoryAdvertisementsRepository) List(_ context.Context, f AdFilters, page, size int) ([]domain.Advertisement, int, error) {
	all := r.filtered(f)
	items, total := slicePage(all, page, size)
	return items, total, nil
}

func (r *MemoryAdvertisementsRepository) ListAll(_ context.Context, f AdFilters) ([]domain.Advertisement, error) {
	return r.filtered(f), nil
}

func (r *MemoryAdvertisementsRepository) Get(_ context.Context, adID string) (*domain.Advertisement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ad, ok := r.ads[adID]
	if !ok {
		return nil, domain.NotFoundf("advertisement not found: ad_id=%s", adID)
	}
	return &ad, nil
}

func (r *MemoryAdvertisementsRepository) GetByPosition(_ context.Context, positionID string) (*domain.Advertisement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ad := r.occupantLocked(positionID); ad != nil {
		return ad, nil
	}
	return nil, domain.NotFoundf("no advertisement at position: position_id=%s", positionID)
}

func (r *MemoryAdvertisementsRepository) occupantLocked(positionID string) *domain.Advertisement {
	for _, ad := range r.ads {
		if ad.PositionID.Valid && ad.PositionID.String == positionID {
			cp := ad
			return &cp
		}
	}
	return nil
}

func (r *MemoryAdvertisementsRepository) Create(ctx context.Context, ad domain.Advertisement, actingUserID string) (string, error) {
	if !ad.PositionID.Valid || ad.PositionID.String == "" {
		return "", domain.Validationf("position required")
	}
	if _, err := r.catalog.GetPosition(ctx, ad.PositionID.String); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.occupantLocked(ad.PositionID.String) != nil {
		return "", domain.Validationf("position already occupied")
	}
	if ad.ContractNumber.Valid && ad.ContractNumber.String != "" {
		for _, other := range r.ads {
			if other.ContractNumber.Valid && other.ContractNumber.String == ad.ContractNumber.String {
				return "", domain.Validationf("contract number already exists: %s", ad.ContractNumber.String)
			}
		}
	}

	ad.AdID = uuid.NewString()
	ad.UserID = nullID(actingUserID)
	ad.CreatedAt = time.Now()
	r.ads[ad.AdID] = ad
	return ad.AdID, nil
}

func (r *MemoryAdvertisementsRepository) Update(ctx context.Context, adID string, ad domain.Advertisement, actingUserID string) error {
	if !ad.PositionID.Valid || ad.PositionID.String == "" {
		return domain.Validationf("position required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.ads[adID]
	if !ok {
		return domain.NotFoundf("advertisement not found: ad_id=%s", adID)
	}
	if !cur.PositionID.Valid || ad.PositionID.String != cur.PositionID.String {
		if _, err := r.catalog.GetPosition(ctx, ad.PositionID.String); err != nil {
			return err
		}
		if occ := r.occupantLocked(ad.PositionID.String); occ != nil && occ.AdID != adID {
			return domain.Validationf("position already occupied")
		}
	}

	r.archive.append(r.snapshot(cur, nullID(actingUserID)))

	next := ad.CopyBusinessFields()
	next.AdID = cur.AdID
	next.UserID = nullID(actingUserID)
	next.PositionID = ad.PositionID
	next.CreatedAt = cur.CreatedAt
	r.ads[adID] = next
	return nil
}

func (r *MemoryAdvertisementsRepository) Delete(_ context.Context, adID string, actingUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.ads[adID]
	if !ok {
		return domain.NotFoundf("advertisement not found: ad_id=%s", adID)
	}
	r.archive.append(r.snapshot(cur, nullID(actingUserID)))
	delete(r.ads, adID)
	return nil
}

// Transfer stages every change first and applies them only once all stages
// pass, so an injected failure leaves the store untouched, matching the
// transactional postgres implementation.
func (r *MemoryAdvertisementsRepository) Transfer(ctx context.Context, sourceAdID, targetPositionID, actingUserID string) error {
	if targetPositionID == "" {
		return domain.Validationf("position required")
	}
	if _, err := r.catalog.GetPosition(ctx, targetPositionID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	source, ok := r.ads[sourceAdID]
	if !ok {
		return domain.NotFoundf("advertisement not found: ad_id=%s", sourceAdID)
	}

	acting := nullID(actingUserID)
	snapshots := []domain.Archive{}
	deletions := []string{sourceAdID}

	occupant := r.occupantLocked(targetPositionID)
	if occupant != nil {
		snapshots = append(snapshots, r.snapshot(*occupant, acting))
		deletions = append(deletions, occupant.AdID)
	}
	if err := r.fault("occupant-removed"); err != nil {
		return err
	}

	clone := source.CopyBusinessFields()
	clone.AdID = uuid.NewString()
	clone.UserID = acting
	clone.PositionID = sql.NullString{String: targetPositionID, Valid: true}
	clone.CreatedAt = time.Now()
	if err := r.fault("clone-created"); err != nil {
		return err
	}

	snapshots = append(snapshots, r.snapshot(clone, acting))
	if err := r.fault("clone-archived"); err != nil {
		return err
	}

	for _, id := range deletions {
		delete(r.ads, id)
	}
	r.ads[clone.AdID] = clone
	r.archive.append(snapshots...)
	return nil
}

func (r *MemoryAdvertisementsRepository) SetFile(_ context.Context, adID string, field FileField, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.ads[adID]
	if !ok {
		return domain.NotFoundf("advertisement not found: ad_id=%s", adID)
	}
	r.archive.append(r.snapshot(cur, cur.UserID))

	v := sql.NullString{String: ref, Valid: ref != ""}
	switch field {
	case FileContract:
		cur.ContractFile = v
	case FilePhoto:
		cur.Photo = v
	default:
		return domain.Validationf("unknown file field: %s", field)
	}
	r.ads[adID] = cur
	return nil
}

func (r *MemoryAdvertisementsRepository) snapshot(ad domain.Advertisement, actingUser sql.NullString) domain.Archive {
	pos, st, line := r.catalog.resolveChain(ad.PositionID)
	return domain.SnapshotOf(ad, actingUser, pos, st, line)
}

func (r *MemoryAdvertisementsRepository) fault(stage string) error {
	if r.transferFault == nil {
		return nil
	}
	return r.transferFault(stage)
}

func slicePage[T any](all []T, page, size int) ([]T, int) {
	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total
}
