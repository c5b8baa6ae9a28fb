package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/staffgate/pkg/domain"
)

// Directory implements ports.Directory in memory.
// Used by tests and by the chat simulator when no database is configured.
type Directory struct {
	mu        sync.RWMutex
	staff     map[domain.Identity]domain.StaffRecord
	blacklist map[domain.Identity]domain.BlacklistRecord

	// Fail, when set, is returned by every write. Tests use it to simulate
	// an unavailable database.
	Fail error
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		staff:     make(map[domain.Identity]domain.StaffRecord),
		blacklist: make(map[domain.Identity]domain.BlacklistRecord),
	}
}

// InsertStaff adds a member. Duplicate identities return domain.ErrAlreadyExists.
func (d *Directory) InsertStaff(ctx context.Context, rec domain.StaffRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Fail != nil {
		return d.Fail
	}
	if _, ok := d.staff[rec.Identity]; ok {
		return domain.ErrAlreadyExists
	}
	d.staff[rec.Identity] = rec
	return nil
}

// InsertBlacklist adds a rejected applicant. Duplicate identities return domain.ErrAlreadyExists.
func (d *Directory) InsertBlacklist(ctx context.Context, rec domain.BlacklistRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Fail != nil {
		return d.Fail
	}
	if _, ok := d.blacklist[rec.Identity]; ok {
		return domain.ErrAlreadyExists
	}
	d.blacklist[rec.Identity] = rec
	return nil
}

// ListAssignedFileIDs returns the file ids already pinned to a member.
func (d *Directory) ListAssignedFileIDs(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []string
	for _, rec := range d.staff {
		if rec.FileID != "" {
			ids = append(ids, rec.FileID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// LookupRole returns the role of a member.
func (d *Directory) LookupRole(ctx context.Context, id domain.Identity) (domain.Role, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.staff[id]
	if !ok {
		return "", false, nil
	}
	return rec.Role, true, nil
}

// IsBlacklisted reports whether id was rejected before.
func (d *Directory) IsBlacklisted(ctx context.Context, id domain.Identity) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.blacklist[id]
	return ok, nil
}

// ListStaff returns every member ordered by creation time.
func (d *Directory) ListStaff(ctx context.Context) ([]domain.StaffRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.StaffRecord, 0, len(d.staff))
	for _, rec := range d.staff {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Identity < out[j].Identity
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Blacklist returns a copy of the blacklist row for id.
func (d *Directory) Blacklist(id domain.Identity) (domain.BlacklistRecord, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.blacklist[id]
	return rec, ok
}
