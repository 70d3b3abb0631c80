package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/yudistirasd/baileys-api/internal/database"
	"github.com/yudistirasd/baileys-api/internal/events"
	"github.com/yudistirasd/baileys-api/pkg/wa"
	"github.com/yudistirasd/baileys-api/pkg/wa/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockClient satisfies types.Client; the embedded Feed provides the real
// event registration surface so reconciler wiring can be observed.
type mockClient struct {
	*wa.Feed
	mock.Mock
}

func newMockClient() *mockClient {
	return &mockClient{Feed: wa.NewFeed()}
}

// On disambiguates the selector between the embedded Feed and mock.Mock so
// mockClient satisfies types.EventFeed; expectation setup uses m.Mock.On.
func (m *mockClient) On(kind types.EventKind, owner string, fn types.HandlerFunc) {
	m.Feed.On(kind, owner, fn)
}

func (m *mockClient) SendMessage(ctx context.Context, jid string, content json.RawMessage) (*types.SendResponse, error) {
	args := m.Called(ctx, jid, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SendResponse), args.Error(1)
}

func (m *mockClient) ChatModify(ctx context.Context, jid string, mod types.ChatModification) error {
	args := m.Called(ctx, jid, mod)
	return args.Error(0)
}

func (m *mockClient) IsOnWhatsApp(ctx context.Context, jid string) (bool, error) {
	args := m.Called(ctx, jid)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) DownloadMedia(ctx context.Context, msg *types.WebMessage) ([]byte, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockClient) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func setupRegistry(t *testing.T) (*Registry, *events.Bus) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bus := events.NewBus(quietLogger())
	t.Cleanup(bus.Close)

	return NewRegistry(db, bus, quietLogger()), bus
}

func TestRegistryAddWiresReconciler(t *testing.T) {
	registry, _ := setupRegistry(t)
	client := newMockClient()

	session, err := registry.Add("s1", client)
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, 6, client.HandlerCount(), "all six handlers registered on add")

	assert.True(t, registry.Exists("s1"))
	assert.Same(t, session, registry.Get("s1"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryAddRejectsDuplicateAndEmpty(t *testing.T) {
	registry, _ := setupRegistry(t)

	_, err := registry.Add("s1", newMockClient())
	require.NoError(t, err)

	_, err = registry.Add("s1", newMockClient())
	assert.Error(t, err)

	_, err = registry.Add("", newMockClient())
	assert.Error(t, err)
}

func TestRegistryDeleteUnsubscribesAndLogsOut(t *testing.T) {
	registry, _ := setupRegistry(t)
	client := newMockClient()
	client.Mock.On("Logout", mock.Anything).Return(nil)

	_, err := registry.Add("s1", client)
	require.NoError(t, err)

	require.NoError(t, registry.Delete(context.Background(), "s1"))

	assert.Equal(t, 0, client.HandlerCount(), "handlers removed before logout")
	assert.False(t, registry.Exists("s1"))
	client.AssertCalled(t, "Logout", mock.Anything)
}

func TestRegistryDeleteUnknownIsNoop(t *testing.T) {
	registry, _ := setupRegistry(t)
	assert.NoError(t, registry.Delete(context.Background(), "ghost"))
}

func TestRegistryIDsSorted(t *testing.T) {
	registry, _ := setupRegistry(t)

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		_, err := registry.Add(id, newMockClient())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, registry.IDs())
}
