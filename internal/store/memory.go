package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/dedupe"
	"github.com/arhivare/fondio/internal/fond"
)

// Memory is an in-memory Store used by tests and by environments that
// run the pipeline without a database.
type Memory struct {
	mu    sync.RWMutex
	fonds map[uuid.UUID]*fond.Fond
	// normalized company name -> fund ids
	byName map[string][]uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		fonds:  make(map[uuid.UUID]*fond.Fond),
		byName: make(map[string][]uuid.UUID),
	}
}

func (m *Memory) Create(_ context.Context, rec fond.ImportRecord, ownerID uuid.UUID) (*fond.Fond, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	f := recordToFond(rec)
	f.ID = uuid.New()
	f.OwnerID = ownerID
	f.CreatedAt = now
	f.UpdatedAt = now

	m.fonds[f.ID] = f
	key := dedupe.NormalizeName(f.CompanyName)
	m.byName[key] = append(m.byName[key], f.ID)

	out := *f
	return &out, nil
}

func (m *Memory) Update(_ context.Context, id uuid.UUID, rec fond.ImportRecord) (*fond.Fond, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fonds[id]
	if !ok {
		return nil, ErrNotFound
	}

	oldKey := dedupe.NormalizeName(f.CompanyName)
	newKey := dedupe.NormalizeName(rec.CompanyName)
	if oldKey != newKey {
		m.byName[oldKey] = removeID(m.byName[oldKey], id)
		if len(m.byName[oldKey]) == 0 {
			delete(m.byName, oldKey)
		}
		m.byName[newKey] = append(m.byName[newKey], id)
	}

	f.CompanyName = rec.CompanyName
	f.HolderName = rec.HolderName
	f.Address = rec.Address
	f.Email = rec.Email
	f.Phone = rec.Phone
	f.Notes = rec.Notes
	f.SourceURL = rec.SourceURL
	f.Active = rec.Active
	f.UpdatedAt = time.Now().UTC()

	out := *f
	return &out, nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*fond.Fond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.fonds[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *f
	return &out, nil
}

func (m *Memory) List(_ context.Context, filters ListFilters) ([]fond.Fond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filters.Query))

	var out []fond.Fond
	for _, f := range m.fonds {
		if filters.Status == StatusActive && !f.Active {
			continue
		}
		if filters.Status == StatusInactive && f.Active {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(f.CompanyName), q) &&
			!strings.Contains(strings.ToLower(f.HolderName), q) {
			continue
		}
		if filters.CreatedFrom != nil && f.CreatedAt.Before(*filters.CreatedFrom) {
			continue
		}
		if filters.CreatedTo != nil && f.CreatedAt.After(*filters.CreatedTo) {
			continue
		}
		if filters.OwnerID != nil && f.OwnerID != *filters.OwnerID {
			continue
		}
		out = append(out, *f)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CompanyName != out[j].CompanyName {
			return out[i].CompanyName < out[j].CompanyName
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) FindByNormalizedName(_ context.Context, normalized string) ([]fond.Fond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []fond.Fond
	for _, id := range m.byName[normalized] {
		out = append(out, *m.fonds[id])
	}
	return out, nil
}

func (m *Memory) NameIndex(_ context.Context) ([]NameEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]NameEntry, 0, len(m.fonds))
	for id, f := range m.fonds {
		entries = append(entries, NameEntry{
			ID:                id,
			NormalizedCompany: dedupe.NormalizeName(f.CompanyName),
			NormalizedHolder:  dedupe.NormalizeName(f.HolderName),
		})
	}
	return entries, nil
}

func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.fonds)), nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
