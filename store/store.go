package store

import (
	"context"
	"errors"
	"regexp"

	"github.com/zeu5/taxi-rl/policies"
	"github.com/zeu5/taxi-rl/types"
)

// ErrNotFound is returned when no table was saved under the name
var ErrNotFound = errors.New("saved table not found")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store persists agent snapshots under a name
type Store interface {
	Save(ctx context.Context, name string, snapshot *policies.Snapshot) error
	Load(ctx context.Context, name string) (*policies.Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// ValidateName checks that the name can be used as a file name and a key suffix
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return types.NewConfigError("invalid table name %q, use 1 to 64 letters, digits, '-' or '_'", name)
	}
	return nil
}
