package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/karstenv/seriescal/recurrence"
)

// MockStore implements the Store interface for testing
type MockStore struct {
	mock.Mock

	// Tx is handed to InTx callbacks when set; leave nil to have InTx
	// reject before running the callback.
	Tx *MockTx
}

func (m *MockStore) GetOccurrence(ctx context.Context, id string) (*Occurrence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Occurrence), args.Error(1)
}

func (m *MockStore) FindInstanceByAnchor(ctx context.Context, parentID string, anchor time.Time) (*Occurrence, error) {
	args := m.Called(ctx, parentID, anchor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Occurrence), args.Error(1)
}

func (m *MockStore) ListInstances(ctx context.Context, parentID string, opts ListOptions) ([]*Occurrence, error) {
	args := m.Called(ctx, parentID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Occurrence), args.Error(1)
}

// InTx runs fn against the configured MockTx. An error configured on the
// InTx expectation itself is returned after fn, simulating a commit failure.
func (m *MockStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	args := m.Called(ctx, fn)
	if m.Tx != nil {
		if err := fn(m.Tx); err != nil {
			return err
		}
	}
	return args.Error(0)
}

// MockTx implements the Tx interface for testing
type MockTx struct {
	mock.Mock
}

func (m *MockTx) CreateOccurrence(ctx context.Context, occ *Occurrence) error {
	args := m.Called(ctx, occ)
	return args.Error(0)
}

func (m *MockTx) UpdateOccurrence(ctx context.Context, occ *Occurrence) error {
	args := m.Called(ctx, occ)
	return args.Error(0)
}

func (m *MockTx) SoftDeleteOccurrence(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Helper constructors for test data ---

// NewTestParent creates a series parent with a rule and a populated snapshot.
func NewTestParent(id string, start time.Time, duration time.Duration, rule recurrence.Rule) *Occurrence {
	return &Occurrence{
		ID:         id,
		CalendarID: "cal-test",
		Start:      start,
		End:        start.Add(duration),
		Status:     StatusUncompleted,
		Snapshot: Snapshot{
			CustomerName:       "Ada Deluth",
			CustomerPhone:      "555-0117",
			ContactName:        "Front desk",
			TrailerInfo:        "24ft gooseneck",
			ReminderWeeksPrior: 2,
		},
		Rule:     &rule,
		Created:  start.Add(-24 * time.Hour),
		Modified: start.Add(-24 * time.Hour),
	}
}

// NewTestInstance creates an instance of the given parent anchored at anchor.
func NewTestInstance(id string, parent *Occurrence, anchor time.Time) *Occurrence {
	return &Occurrence{
		ID:             id,
		CalendarID:     parent.CalendarID,
		Start:          anchor,
		End:            anchor.Add(parent.Duration()),
		Status:         StatusUncompleted,
		Snapshot:       parent.Snapshot.CopyForInstance(),
		ParentID:       parent.ID,
		OriginalAnchor: anchor,
		Created:        parent.Created,
		Modified:       parent.Modified,
	}
}
