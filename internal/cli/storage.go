package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/YoussefDawod/finora-smart-finance-sub003/ledger"
)

// fileStorage adapts a JSON file on disk to the ledger.Storage port so guest
// ledger data survives between CLI invocations.
type fileStorage struct {
	path string
}

func newFileStorage() (*fileStorage, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &fileStorage{path: filepath.Join(dir, "guest-ledger.json")}, nil
}

func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "finora"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "finora"), nil
}

func (f *fileStorage) Get(key string) (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return "", false
	}
	v, ok := entries[key]
	return v, ok
}

func (f *fileStorage) Set(key, value string) error {
	entries := f.readAll()
	entries[key] = value
	return f.writeAll(entries)
}

func (f *fileStorage) Remove(key string) {
	entries := f.readAll()
	delete(entries, key)
	_ = f.writeAll(entries)
}

func (f *fileStorage) readAll() map[string]string {
	entries := map[string]string{}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return entries
	}
	_ = json.Unmarshal(data, &entries)
	return entries
}

func (f *fileStorage) writeAll(entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}

// consoleNotifier prints ledger notifications to stderr.
type consoleNotifier struct{}

func (consoleNotifier) Info(msg string) { fmt.Fprintln(os.Stderr, msg) }
func (consoleNotifier) Warn(msg string) { fmt.Fprintln(os.Stderr, "warning: "+msg) }

func openLedger() (*ledger.Store, error) {
	storage, err := newFileStorage()
	if err != nil {
		return nil, err
	}
	return ledger.NewStore(storage, ledger.WithNotifier(consoleNotifier{}), ledger.WithNoticeDelay(0)), nil
}
