// memory based implementation for testing purposes
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/karstenv/seriescal/recurrence"
	"github.com/karstenv/seriescal/storage"
)

// Store implements storage.Store using in-memory maps. Transactions stage
// their writes and apply them only on success, holding the write lock for
// the duration, so InTx is atomic with respect to every other call.
type Store struct {
	mu          sync.RWMutex
	occurrences map[string]*storage.Occurrence
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		occurrences: make(map[string]*storage.Occurrence),
	}
}

func (s *Store) GetOccurrence(_ context.Context, id string) (*storage.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	occ, ok := s.occurrences[id]
	if !ok {
		return nil, &storage.Error{
			Type:    storage.ErrNotFound,
			Message: "occurrence not found",
		}
	}
	return occ.Clone(), nil
}

func (s *Store) FindInstanceByAnchor(_ context.Context, parentID string, anchor time.Time) (*storage.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var deleted *storage.Occurrence
	for _, occ := range s.occurrences {
		if occ.ParentID != parentID || !occ.OriginalAnchor.Equal(anchor) {
			continue
		}
		if !occ.Deleted() {
			return occ.Clone(), nil
		}
		deleted = occ
	}
	if deleted != nil {
		return deleted.Clone(), nil
	}
	return nil, &storage.Error{
		Type:    storage.ErrNotFound,
		Message: "no instance with that anchor",
	}
}

func (s *Store) ListInstances(_ context.Context, parentID string, opts storage.ListOptions) ([]*storage.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*storage.Occurrence
	for _, occ := range s.occurrences {
		if occ.ParentID != parentID {
			continue
		}
		if occ.Deleted() && !opts.IncludeDeleted {
			continue
		}
		if opts.Excludes(occ.Status) {
			continue
		}
		if opts.AnchorFrom != nil &&
			recurrence.DateOnly(occ.Anchor()).Before(recurrence.DateOnly(*opts.AnchorFrom)) {
			continue
		}
		out = append(out, occ.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OriginalAnchor.Before(out[j].OriginalAnchor)
	})
	return out, nil
}

// InTx stages fn's writes and applies them only when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, pending: make(map[string]*storage.Occurrence)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, occ := range tx.pending {
		s.occurrences[id] = occ
	}
	return nil
}

type memTx struct {
	store   *Store
	pending map[string]*storage.Occurrence
}

// row returns the transaction's view of an occurrence: pending write first,
// then committed state.
func (tx *memTx) row(id string) (*storage.Occurrence, bool) {
	if occ, ok := tx.pending[id]; ok {
		return occ, true
	}
	occ, ok := tx.store.occurrences[id]
	return occ, ok
}

func (tx *memTx) eachRow(fn func(occ *storage.Occurrence)) {
	for id, occ := range tx.store.occurrences {
		if _, overridden := tx.pending[id]; overridden {
			continue
		}
		fn(occ)
	}
	for _, occ := range tx.pending {
		fn(occ)
	}
}

func (tx *memTx) CreateOccurrence(_ context.Context, occ *storage.Occurrence) error {
	if occ.ID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "occurrence ID is required"}
	}
	if _, exists := tx.row(occ.ID); exists {
		return &storage.Error{Type: storage.ErrConflict, Message: "occurrence already exists"}
	}
	if occ.ParentID != "" {
		var conflict bool
		tx.eachRow(func(other *storage.Occurrence) {
			if other.ParentID == occ.ParentID &&
				other.OriginalAnchor.Equal(occ.OriginalAnchor) &&
				!other.Deleted() {
				conflict = true
			}
		})
		if conflict {
			return &storage.Error{
				Type:    storage.ErrConflict,
				Message: "instance with that anchor already exists",
			}
		}
	}
	tx.pending[occ.ID] = occ.Clone()
	return nil
}

func (tx *memTx) UpdateOccurrence(_ context.Context, occ *storage.Occurrence) error {
	if _, exists := tx.row(occ.ID); !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "occurrence not found"}
	}
	tx.pending[occ.ID] = occ.Clone()
	return nil
}

func (tx *memTx) SoftDeleteOccurrence(_ context.Context, id string) error {
	occ, exists := tx.row(id)
	if !exists {
		return &storage.Error{Type: storage.ErrNotFound, Message: "occurrence not found"}
	}
	clone := occ.Clone()
	now := time.Now()
	clone.DeletedAt = &now
	tx.pending[id] = clone
	return nil
}
