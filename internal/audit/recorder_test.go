package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ironbeam/crewdeck/internal/models"
	"github.com/rs/zerolog"
)

type mockAuditStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
	done    chan struct{}
}

func (m *mockAuditStore) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(m.done)
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestRecordWritesEntry(t *testing.T) {
	store := &mockAuditStore{done: make(chan struct{})}
	recorder := NewRecorder(store, zerolog.Nop())

	orgID := uuid.New()
	actorID := uuid.New()
	entityID := uuid.New()

	recorder.Record(orgID, actorID, models.AuditActionSeatAllocate, "seat", entityID, `{"seat_number":1}`)

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit write did not complete")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	entry := store.entries[0]
	if entry.OrgID != orgID || entry.Action != models.AuditActionSeatAllocate {
		t.Error("entry fields not carried through")
	}
	if entry.ActorID == nil || *entry.ActorID != actorID {
		t.Error("actor not carried through")
	}
	if entry.EntityID == nil || *entry.EntityID != entityID {
		t.Error("entity not carried through")
	}
}

func TestRecordSwallowsFailures(t *testing.T) {
	store := &mockAuditStore{done: make(chan struct{}), err: errors.New("db down")}
	recorder := NewRecorder(store, zerolog.Nop())

	// Must not panic or surface the failure.
	recorder.Record(uuid.New(), uuid.Nil, models.AuditActionInviteCreate, "invite", uuid.Nil, "")

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit write did not complete")
	}
}

func TestRecordNilActorOmitted(t *testing.T) {
	store := &mockAuditStore{done: make(chan struct{})}
	recorder := NewRecorder(store, zerolog.Nop())

	recorder.Record(uuid.New(), uuid.Nil, models.AuditActionSeatSeed, "seat", uuid.Nil, "")

	<-store.done
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.entries[0].ActorID != nil {
		t.Error("nil actor should be omitted")
	}
	if store.entries[0].EntityID != nil {
		t.Error("nil entity should be omitted")
	}
}
