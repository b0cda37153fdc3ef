package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"eventregistry/internal/domain"
)

// Target is one canonical file and the codec that reads and writes it.
type Target struct {
	Path  string
	Codec domain.EventCodec
}

// Config configures an event store. Primary is read first on Load; Alternate
// is the fallback. Both are rewritten on every Save.
type Config struct {
	Primary   Target
	Alternate Target
	BackupDir string
	Logger    *slog.Logger
}

type eventStore struct {
	primary   Target
	alternate Target
	backupDir string
	logger    *slog.Logger
}

// NewEventStore returns a file-backed EventStore.
func NewEventStore(cfg Config) domain.EventStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backupDir := cfg.BackupDir
	if backupDir == "" {
		backupDir = "."
	}
	return &eventStore{
		primary:   cfg.Primary,
		alternate: cfg.Alternate,
		backupDir: backupDir,
		logger:    logger,
	}
}

func (s *eventStore) Save(ctx context.Context, events []*domain.Event) error {
	for _, t := range []Target{s.primary, s.alternate} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeEvents(t.Path, t.Codec, events); err != nil {
			return fmt.Errorf("save %s: %w", t.Path, err)
		}
	}
	s.logger.Debug("registry saved", "events", len(events), "primary", s.primary.Path, "alternate", s.alternate.Path)
	return nil
}

func (s *eventStore) Load(ctx context.Context) ([]*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events, ok, err := readEvents(s.primary.Path, s.primary.Codec)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.primary.Path, err)
	}
	if ok {
		s.logger.Info("registry loaded", "path", s.primary.Path, "events", len(events))
		return events, nil
	}

	s.logger.Warn("primary file missing or empty, trying alternate", "primary", s.primary.Path, "alternate", s.alternate.Path)
	events, ok, err = readEvents(s.alternate.Path, s.alternate.Codec)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.alternate.Path, err)
	}
	if !ok {
		s.logger.Info("no persisted registry found, starting empty")
		return []*domain.Event{}, nil
	}
	s.logger.Info("registry loaded", "path", s.alternate.Path, "events", len(events))
	return events, nil
}

func (s *eventStore) Backup(ctx context.Context, stamp string, events []*domain.Event) ([]string, error) {
	var paths []string
	for _, t := range []Target{s.primary, s.alternate} {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(s.backupDir, backupName(t.Path, stamp, t.Codec.Extension()))
		if err := writeEvents(path, t.Codec, events); err != nil {
			return paths, fmt.Errorf("backup %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	s.logger.Info("registry backup written", "files", paths, "events", len(events))
	return paths, nil
}

func (s *eventStore) BackupUsers(ctx context.Context, stamp string, users []*domain.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if users == nil {
		users = []*domain.User{}
	}
	path := filepath.Join(s.backupDir, "users_backup_"+stamp+".json")
	err := writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	})
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	s.logger.Info("user backup written", "file", path, "users", len(users))
	return path, nil
}

// backupName turns "data/events.json" into "events_backup_<stamp>.json".
func backupName(canonical, stamp, ext string) string {
	base := strings.TrimSuffix(filepath.Base(canonical), filepath.Ext(canonical))
	return fmt.Sprintf("%s_backup_%s.%s", base, stamp, ext)
}

func writeEvents(path string, codec domain.EventCodec, events []*domain.Event) error {
	return writeAtomic(path, func(w io.Writer) error {
		return codec.Encode(w, events)
	})
}

// writeAtomic writes through a temp file in the target directory and renames
// it over path, so readers never observe a partial file.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// readEvents reports ok=false when the file does not exist or holds only whitespace.
func readEvents(path string, codec domain.EventCodec) ([]*domain.Event, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, nil
	}
	events, err := codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	return events, true, nil
}
