package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeu5/taxi-rl/policies"
	"github.com/zeu5/taxi-rl/util"
)

const fileExt = ".json"

// FileStore keeps each snapshot as <dir>/<name>.json
type FileStore struct {
	dir string
}

var _ Store = &FileStore{}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+fileExt)
}

func (f *FileStore) Save(_ context.Context, name string, snapshot *policies.Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	bs, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return util.WriteToFile(f.path(name), string(bs))
}

func (f *FileStore) Load(_ context.Context, name string) (*policies.Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	bs, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return nil, err
	}
	snapshot := &policies.Snapshot{}
	if err := json.Unmarshal(bs, snapshot); err != nil {
		return nil, fmt.Errorf("decoding table %s: %w", name, err)
	}
	return snapshot, nil
}

func (f *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileStore) Close() error {
	return nil
}
