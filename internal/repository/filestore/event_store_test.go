package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"eventregistry/internal/codec"
	"eventregistry/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (domain.EventStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewEventStore(Config{
		Primary:   Target{Path: filepath.Join(dir, "events.json"), Codec: codec.NewJSONCodec()},
		Alternate: Target{Path: filepath.Join(dir, "events.xml"), Codec: codec.NewXMLCodec()},
		BackupDir: filepath.Join(dir, "backups"),
	})
	return store, dir
}

func testEvents(t *testing.T) []*domain.Event {
	t.Helper()
	conf := domain.NewConference("conf-1", "GopherCon", time.Date(2031, 6, 18, 9, 0, 0, 0, time.UTC), "Centre de Paris", 10,
		"Concurrency", []domain.Speaker{{Name: "Rob", Specialty: "Go"}})
	require.NoError(t, conf.AddParticipant(domain.NewParticipant("p1", "Alice", "alice@example.com")))
	concert := domain.NewConcert("concert-1", "Live", time.Date(2031, 7, 1, 21, 0, 0, 0, time.UTC), "Lyon", 100, "Daft Punk", "Electro")
	return []*domain.Event{conf, concert}
}

func TestEventStore_SaveWritesBothFiles(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)

	require.NoError(t, store.Save(ctx, testEvents(t)))

	for _, name := range []string{"events.json", "events.xml"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size())
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestEventStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("reads primary", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save(ctx, testEvents(t)))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, domain.KindConference, got[0].Kind())
		assert.Equal(t, "Rob", got[0].Conference().Speakers[0].Name)
		assert.Equal(t, domain.KindConcert, got[1].Kind())
		assert.Equal(t, "Daft Punk", got[1].Concert().Artist)
	})

	t.Run("falls back to alternate when primary is empty", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, store.Save(ctx, testEvents(t)))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), []byte("  \n"), 0o644))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "conf-1", got[0].ID())
	})

	t.Run("falls back to alternate when primary is missing", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, store.Save(ctx, testEvents(t)))
		require.NoError(t, os.Remove(filepath.Join(dir, "events.json")))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("nothing persisted", func(t *testing.T) {
		store, _ := newTestStore(t)
		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("corrupt primary is an error", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), []byte("{not json"), 0o644))
		_, err := store.Load(ctx)
		require.Error(t, err)
	})
}

func TestEventStore_Backup(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)

	paths, err := store.Backup(ctx, "20310101_120000", testEvents(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "backups", "events_backup_20310101_120000.json"),
		filepath.Join(dir, "backups", "events_backup_20310101_120000.xml"),
	}, paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}

	_, err = os.Stat(filepath.Join(dir, "events.json"))
	assert.True(t, os.IsNotExist(err), "backup does not touch canonical files")
}

func TestEventStore_BackupUsers(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)
	now := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []*domain.User{{ID: "u1", Email: "alice@example.com", Name: "Alice", PasswordHash: "secret", CreatedAt: now, UpdatedAt: now}}

	path, err := store.BackupUsers(ctx, "20310101_120000", users)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backups", "users_backup_20310101_120000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "alice@example.com", got[0]["email"])
	assert.NotContains(t, got[0], "password_hash")
}

func TestBackupName(t *testing.T) {
	assert.Equal(t, "events_backup_x.json", backupName("data/events.json", "x", "json"))
	assert.Equal(t, "events_backup_x.xml", backupName("events.xml", "x", "xml"))
}
