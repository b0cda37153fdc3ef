package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventregistry/internal/adapters/auth"
	"eventregistry/internal/codec"
	"eventregistry/internal/domain"
	"eventregistry/internal/repository/filestore"
	"eventregistry/internal/repository/memory"
	"eventregistry/internal/services"
)

// testBootstrap wires an app on top of dir. Users survive across commands
// because the repository is shared.
func testBootstrap(t *testing.T, dir string) bootstrapFunc {
	t.Helper()
	users := memory.NewUserRepository()
	jwt := auth.NewJWTIssuer("test-secret")
	authSvc := services.NewAuthService(users, auth.NewBcryptHasher(4), jwt, jwt, time.Hour)

	return func(ctx context.Context) (*app, error) {
		store := filestore.NewEventStore(filestore.Config{
			Primary:   filestore.Target{Path: filepath.Join(dir, "events.json"), Codec: codec.NewJSONCodec()},
			Alternate: filestore.Target{Path: filepath.Join(dir, "events.xml"), Codec: codec.NewXMLCodec()},
			BackupDir: dir,
		})
		syncer, err := services.NewSynchronizer(services.SynchronizerConfig{
			Registry:         memory.NewEventRegistry(),
			Store:            store,
			Users:            authSvc,
			AutosaveInterval: -1,
			BackupInterval:   -1,
		})
		if err != nil {
			return nil, err
		}
		if err := syncer.Init(ctx); err != nil {
			return nil, err
		}
		return &app{sync: syncer, auth: authSvc}, nil
	}
}

func execute(t *testing.T, boot bootstrapFunc, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(boot)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, testBootstrap(t, t.TempDir()), "--help")
	require.NoError(t, err)
	for _, name := range []string{"list", "upcoming", "venue", "stats", "backup", "run", "create", "register"} {
		assert.Contains(t, out, name)
	}
}

func TestCommands_EventLifecycle(t *testing.T) {
	dir := t.TempDir()
	boot := testBootstrap(t, dir)

	out, err := execute(t, boot, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no events")

	out, err = execute(t, boot, "create", "conference",
		"--id", "conf-1", "--name", "GopherCon", "--venue", "Centre de Paris",
		"--date", "2099-06-01T09:00:00Z", "--capacity", "1",
		"--theme", "Go", "--speaker", "Rob:Concurrency")
	require.NoError(t, err)
	assert.Equal(t, "conf-1\n", out)

	_, err = execute(t, boot, "create", "concert",
		"--id", "show-1", "--name", "Live", "--venue", "Lyon",
		"--date", "2099-07-01 20:00", "--capacity", "100",
		"--artist", "Daft Punk", "--genre", "Electro")
	require.NoError(t, err)

	_, err = execute(t, boot, "create", "concert", "--id", "show-1", "--name", "Again",
		"--date", "2099-07-01 20:00", "--capacity", "1")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = execute(t, boot, "register", "--id", "p1", "conf-1", "Alice", "alice@example.com")
	require.NoError(t, err)
	_, err = execute(t, boot, "register", "conf-1", "Bob")
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	out, err = execute(t, boot, "venue", "paris")
	require.NoError(t, err)
	assert.Contains(t, out, "GopherCon")
	assert.Contains(t, out, "Rob (Concurrency)")
	assert.NotContains(t, out, "Daft Punk")

	out, err = execute(t, boot, "upcoming")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "GopherCon"), strings.Index(out, "Live"))

	out, err = execute(t, boot, "stats")
	require.NoError(t, err)
	var st domain.Statistics
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 2, st.TotalEvents)
	assert.Equal(t, 1, st.TotalRegistrations)

	assert.ErrorIs(t, func() error {
		_, err := execute(t, boot, "capacity", "conf-1", "0")
		return err
	}(), domain.ErrInvalidCapacity)
	_, err = execute(t, boot, "capacity", "conf-1", "5")
	require.NoError(t, err)

	_, err = execute(t, boot, "unregister", "conf-1", "p1")
	require.NoError(t, err)
	_, err = execute(t, boot, "unregister", "conf-1", "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute(t, boot, "delete", "show-1")
	require.NoError(t, err)
	out, err = execute(t, boot, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Live")
	assert.Contains(t, out, "Participants: 0/5")
}

func TestCommands_CreateValidation(t *testing.T) {
	boot := testBootstrap(t, t.TempDir())

	_, err := execute(t, boot, "create", "festival", "--name", "X", "--date", "2099-01-01 10:00", "--capacity", "1")
	assert.Error(t, err)

	_, err = execute(t, boot, "create", "concert", "--name", "X", "--date", "tomorrow", "--capacity", "1")
	assert.Error(t, err)

	_, err = execute(t, boot, "create", "concert", "--name", "X")
	assert.Error(t, err)

	_, err = execute(t, boot, "create", "concert", "--id", "neg", "--name", "X", "--date", "2099-01-01 10:00", "--capacity", "-3")
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
	out, err := execute(t, boot, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no events")
}

func TestCommands_Backup(t *testing.T) {
	dir := t.TempDir()
	boot := testBootstrap(t, dir)

	_, err := execute(t, boot, "signup", "alice@example.com", "Alice", "--password", "correct-horse")
	require.NoError(t, err)

	out, err := execute(t, boot, "backup")
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for _, p := range lines {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr, p)
	}
	assert.Contains(t, lines[2], "users_backup_")
}

func TestCommands_SignupAndLogin(t *testing.T) {
	boot := testBootstrap(t, t.TempDir())

	out, err := execute(t, boot, "signup", "bob@example.com", "Bob", "--password", "long-enough")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, err = execute(t, boot, "signup", "bob@example.com", "Bob", "--password", "long-enough")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	out, err = execute(t, boot, "login", "bob@example.com", "--password", "long-enough")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3, "a JWT has three segments")

	_, err = execute(t, boot, "login", "bob@example.com", "--password", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestParseSpeakers(t *testing.T) {
	got := parseSpeakers([]string{"Rob: Concurrency", "Ken"})
	assert.Equal(t, []domain.Speaker{{Name: "Rob", Specialty: "Concurrency"}, {Name: "Ken"}}, got)
}
