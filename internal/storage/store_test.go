package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)

	file, err := NewFile(filepath.Join(dir, "saves"), logger)
	require.NoError(t, err)
	lite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	bolt, err := OpenBolt(filepath.Join(dir, "saves.db"))
	require.NoError(t, err)

	out := map[string]Store{
		DriverMemory: NewMemory(),
		DriverFile:   file,
		DriverSQLite: lite,
		DriverBolt:   bolt,
	}
	if dsn := os.Getenv("WILDWOOD_TEST_PG_DSN"); dsn != "" {
		pg, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)
		out[DriverPostgres] = pg
	}
	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})
	return out
}

func TestStoreBehaviour(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Save(ctx, "slot-a", []byte(`{"v":1}`)))
			require.NoError(t, s.Save(ctx, "slot_b", []byte(`{"v":2}`)))
			require.NoError(t, s.Save(ctx, "slot-a", []byte(`{"v":3}`)))

			data, err := s.Load(ctx, "slot-a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":3}`, string(data))

			slots, err := s.List(ctx)
			require.NoError(t, err)
			assert.Contains(t, slots, "slot-a")
			assert.Contains(t, slots, "slot_b")

			require.NoError(t, s.Delete(ctx, "slot_b"))
			require.ErrorIs(t, s.Delete(ctx, "slot_b"), ErrNotFound)
			_, err = s.Load(ctx, "slot_b")
			require.ErrorIs(t, err, ErrNotFound)

			require.ErrorIs(t, s.Save(ctx, "../escape", []byte("x")), ErrInvalidSlot)

			if name == DriverPostgres {
				_ = s.Delete(ctx, "slot-a")
			}
		})
	}
}

func TestFileStoreCompressesAndSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFile(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "main", []byte("hello")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")

	again, err := NewFile(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	data, err := again.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: DriverBolt, Path: filepath.Join(t.TempDir(), "w.db")}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open(ctx, Config{Driver: "mongo"}, nil)
	require.Error(t, err)
}

func TestValidateSlot(t *testing.T) {
	assert.NoError(t, ValidateSlot("player-1_main"))
	assert.ErrorIs(t, ValidateSlot(""), ErrInvalidSlot)
	assert.ErrorIs(t, ValidateSlot("a/b"), ErrInvalidSlot)
}
