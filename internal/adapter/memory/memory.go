// Package memory provides in-process implementations of the domain ports.
// They back the service and HTTP tests.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/xstevenyung/jumpdash/internal/domain"
)

// Store holds dashboards, blocks and accesses behind one lock so that
// deleting a dashboard can drop its blocks atomically.
type Store struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	dashboards map[int64]domain.Dashboard
	blocks     map[int64]domain.Block
	accesses   map[int64]domain.Access

	nextDashboardID int64
	nextBlockID     int64
	nextAccessID    int64
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:      clock,
		dashboards: make(map[int64]domain.Dashboard),
		blocks:     make(map[int64]domain.Block),
		accesses:   make(map[int64]domain.Access),
	}
}

func (s *Store) Dashboards() *DashboardRepo { return &DashboardRepo{s: s} }
func (s *Store) Blocks() *BlockRepo         { return &BlockRepo{s: s} }
func (s *Store) Accesses() *AccessRepo      { return &AccessRepo{s: s} }

type DashboardRepo struct{ s *Store }

var _ domain.DashboardRepository = (*DashboardRepo)(nil)

func (r *DashboardRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Dashboard, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Dashboard{}
	for _, d := range r.s.dashboards {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b domain.Dashboard) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *DashboardRepo) Create(_ context.Context, name, ownerID string) (*domain.Dashboard, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextDashboardID++
	d := domain.Dashboard{
		ID:        r.s.nextDashboardID,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: r.s.clock.Now().UTC(),
	}
	r.s.dashboards[d.ID] = d
	return &d, nil
}

func (r *DashboardRepo) GetByID(_ context.Context, id int64) (*domain.Dashboard, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.dashboards[id]
	if !ok {
		return nil, domain.ErrDashboardNotFound
	}
	return &d, nil
}

func (r *DashboardRepo) UpdateName(_ context.Context, id int64, name string) (*domain.Dashboard, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.dashboards[id]
	if !ok {
		return nil, domain.ErrDashboardNotFound
	}
	d.Name = name
	r.s.dashboards[id] = d
	return &d, nil
}

func (r *DashboardRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.dashboards[id]; !ok {
		return domain.ErrDashboardNotFound
	}
	delete(r.s.dashboards, id)
	for blockID, b := range r.s.blocks {
		if b.DashboardID == id {
			delete(r.s.blocks, blockID)
		}
	}
	return nil
}

type BlockRepo struct{ s *Store }

var _ domain.BlockRepository = (*BlockRepo)(nil)

func (r *BlockRepo) ListByDashboard(_ context.Context, dashboardID int64) ([]domain.Block, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Block{}
	for _, b := range r.s.blocks {
		if b.DashboardID == dashboardID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.Block) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *BlockRepo) Create(_ context.Context, dashboardID int64, blockType string, settings json.RawMessage) (*domain.Block, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.dashboards[dashboardID]; !ok {
		return nil, domain.ErrDashboardNotFound
	}
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}

	r.s.nextBlockID++
	b := domain.Block{
		ID:          r.s.nextBlockID,
		Type:        blockType,
		Settings:    slices.Clone(settings),
		DashboardID: dashboardID,
	}
	r.s.blocks[b.ID] = b
	return &b, nil
}

func (r *BlockRepo) GetByID(_ context.Context, id int64) (*domain.Block, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.blocks[id]
	if !ok {
		return nil, domain.ErrBlockNotFound
	}
	return &b, nil
}

func (r *BlockRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.blocks[id]; !ok {
		return domain.ErrBlockNotFound
	}
	delete(r.s.blocks, id)
	return nil
}

type AccessRepo struct{ s *Store }

var _ domain.AccessRepository = (*AccessRepo)(nil)

func (r *AccessRepo) ListByUser(_ context.Context, userID string) ([]domain.Access, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Access{}
	for _, a := range r.s.accesses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Access) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *AccessRepo) Find(_ context.Context, userID, accessType string) (*domain.Access, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if a, ok := r.s.findAccess(userID, accessType); ok {
		return &a, nil
	}
	return nil, domain.ErrAccessNotFound
}

func (r *AccessRepo) CreateIfAbsent(_ context.Context, userID, accessType, token string) (*domain.Access, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a, ok := r.s.findAccess(userID, accessType); ok {
		return &a, false, nil
	}

	r.s.nextAccessID++
	a := domain.Access{
		ID:        r.s.nextAccessID,
		UserID:    userID,
		Type:      accessType,
		Token:     token,
		CreatedAt: r.s.clock.Now().UTC(),
	}
	r.s.accesses[a.ID] = a
	return &a, true, nil
}

func (s *Store) findAccess(userID, accessType string) (domain.Access, bool) {
	for _, a := range s.accesses {
		if a.UserID == userID && a.Type == accessType {
			return a, true
		}
	}
	return domain.Access{}, false
}

// ResponseCache is a TTL map driven by an injected clock.
type ResponseCache struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

var _ domain.ResponseCache = (*ResponseCache)(nil)

func NewResponseCache(clock clockwork.Clock, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *ResponseCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return slices.Clone(entry.body), true, nil
}

func (c *ResponseCache) Set(_ context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		body:      slices.Clone(body),
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	return nil
}

// Len reports the number of entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
