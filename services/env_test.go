package services

import (
	"chat-gate/clock"
	"chat-gate/contract"
	"chat-gate/domain"
	"chat-gate/repositories"
	"chat-gate/runtime"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// testEnv wires the services on a real badger store, registry and notifier.
type testEnv struct {
	store     *repositories.Store
	registry  *runtime.Registry
	notifier  *runtime.Notifier
	clock     *clock.FakeClock
	admission *AdmissionService
	groups    *GroupService
	messages  *MessageService
	sessions  *SessionService
}

func newTestEnv(t *testing.T, uploader contract.MediaUploader, filter contract.ContentFilter) *testEnv {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := repositories.NewStore(db, log)
	registry := runtime.NewRegistry(log, time.Second)
	notifier := runtime.NewNotifier(log, 100)
	clk := clock.Fake(start)
	admission := NewAdmissionService(store, notifier, clk, log, domain.DefaultRequestTTL)

	return &testEnv{
		store:     store,
		registry:  registry,
		notifier:  notifier,
		clock:     clk,
		admission: admission,
		groups:    NewGroupService(store, registry, notifier, uploader, clk, log),
		messages: NewMessageService(store, admission, notifier, uploader, filter, clk, log,
			MessageConfig{MaxContentLength: 50}),
		sessions: NewSessionService(store, registry, log),
	}
}

func (e *testEnv) seedUsers(t *testing.T, ids ...string) {
	t.Helper()
	require.NoError(t, e.store.Update(func(tx *repositories.Tx) error {
		for _, id := range ids {
			u := domain.User{ID: id, Email: id + "@example.com", FullName: id, CreatedAt: start, UpdatedAt: start}
			if err := tx.PutUser(u); err != nil {
				return err
			}
		}
		return nil
	}))
}

// drain empties the delivery queue without blocking.
func (e *testEnv) drain() []contract.Delivery {
	var deliveries []contract.Delivery
	for {
		select {
		case d := <-e.notifier.Deliveries():
			deliveries = append(deliveries, d)
		default:
			return deliveries
		}
	}
}

// storeMessage writes history directly, as it existed before requests did.
func (e *testEnv) storeMessage(t *testing.T, from, to string) {
	t.Helper()
	m, err := domain.NewDirectMessage(from, to, domain.Content{Text: "old"}, e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.store.Update(func(tx *repositories.Tx) error { return tx.PutMessage(m) }))
}
