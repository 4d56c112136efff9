package vpn

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yllada/vpn-connector/common"
)

// PersistenceStore keeps a durable record of the active connection's
// descriptor so that a process restart can resume visibility of a tunnel
// that is still up at the OS level.
//
// At most one descriptor file exists; saving replaces the previous record
// entirely. Writes are atomic: the record is written to a temporary file in
// the same directory and renamed onto the final path, so a crash can never
// leave a partial record behind.
type PersistenceStore struct {
	dir string
}

// NewPersistenceStore creates a store rooted at the per-user state
// directory, creating it with restrictive permissions if absent.
func NewPersistenceStore() (*PersistenceStore, error) {
	dir, err := common.GetStateDir()
	if err != nil {
		return nil, err
	}
	return &PersistenceStore{dir: dir}, nil
}

// NewPersistenceStoreAt creates a store rooted at an explicit directory.
func NewPersistenceStoreAt(dir string) (*PersistenceStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, common.WrapError(err, "failed to create persistence directory")
	}
	return &PersistenceStore{dir: dir}, nil
}

func (p *PersistenceStore) path() string {
	return filepath.Join(p.dir, common.ConnectionFileName)
}

// Save atomically writes the descriptor, superseding any previous record.
func (p *PersistenceStore) Save(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", common.ErrPersistenceWrite)
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistenceWrite, err)
	}

	tmp, err := os.CreateTemp(p.dir, common.ConnectionFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPersistenceWrite, err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrPersistenceWrite, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrPersistenceWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrPersistenceWrite, err)
	}

	if err := os.Rename(tmpName, p.path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrPersistenceWrite, err)
	}
	return nil
}

// Load returns the last saved descriptor, or nil if none was persisted.
// An unreadable or corrupt record is treated as "no prior connection": the
// machine must be able to boot after a bad shutdown.
func (p *PersistenceStore) Load() (*Descriptor, error) {
	data, err := os.ReadFile(p.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, common.WrapError(err, "failed to read persisted connection")
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		common.LogWarn("discarding corrupt connection record %s: %v", p.path(), err)
		return nil, nil
	}
	if d.Backend == "" || d.UniqueID == "" {
		common.LogWarn("discarding incomplete connection record %s", p.path())
		return nil, nil
	}
	return &d, nil
}

// Clear removes the persisted descriptor, if present.
func (p *PersistenceStore) Clear() error {
	err := os.Remove(p.path())
	if err != nil && !os.IsNotExist(err) {
		return common.WrapError(err, "failed to remove persisted connection")
	}
	return nil
}
