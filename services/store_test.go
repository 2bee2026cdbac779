package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AngelaRollins9561294/psiFHE-Tool/protocol"
	"github.com/AngelaRollins9561294/psiFHE-Tool/testutil"
)

func TestInMemoryStore_SnapshotRoundTrip(t *testing.T) {
	store := NewInMemoryStore()

	empty, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.Nil(t, empty)

	owner, _ := testutil.NewIdentity(t)
	core := protocol.NewCore(&protocol.Config{CooldownSeconds: 30, Identity: "store-test"}, owner, protocol.NewMockCryptoService(), nil)
	_, err = core.OpenBatch(owner)
	require.NoError(t, err)

	require.NoError(t, store.SaveSnapshot(core.Snapshot()))

	loaded, err := store.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, owner.String(), loaded.Owner)
	require.Equal(t, uint64(30), loaded.CooldownSeconds)
	require.Len(t, loaded.Batches, 1)
}

func TestStoreSink_AppendsEvents(t *testing.T) {
	store := NewInMemoryStore()
	sink := &StoreSink{Store: store}

	sink.Emit(protocol.Event{Kind: protocol.EventBatchOpened, BatchID: 1})
	sink.Emit(protocol.Event{Kind: protocol.EventBatchClosed, BatchID: 1})

	events := store.Events()
	require.Len(t, events, 2)
	require.Equal(t, protocol.EventBatchOpened, events[0].Kind)
	require.Equal(t, protocol.EventBatchClosed, events[1].Kind)
}

func TestPostgresConfig_ConnectionString(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "psi",
		Password: "secret",
		Database: "psifhe",
	}
	require.Equal(t,
		"host=localhost port=5432 user=psi password=secret dbname=psifhe sslmode=disable",
		cfg.ConnectionString())
}
