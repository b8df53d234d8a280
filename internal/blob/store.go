// Package blob persists the raw files of one screenshot under a directory
// named by its id. Items are assembled in a staging directory and renamed
// into place on Commit, so a failed save never leaves a partial item
// directory under the storage root.
package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/afero"
)

// Role identifies one of the fixed artifacts of an item
type Role string

const (
	RoleOriginal    Role = "original"
	RoleAnnotated   Role = "annotated"
	RoleThumbnail   Role = "thumbnail"
	RoleAnnotations Role = "annotations"
	RoleMeta        Role = "meta"
)

// StagingDirName is the root-level directory holding items being written.
// It is dot-prefixed so usage accounting never treats it as an item.
const StagingDirName = ".staging"

// FileName returns the fixed file name for the role
func (r Role) FileName() string {
	switch r {
	case RoleOriginal, RoleAnnotated, RoleThumbnail:
		return string(r) + ".png"
	case RoleAnnotations, RoleMeta:
		return string(r) + ".json"
	default:
		return ""
	}
}

// PathFor returns where the role's file of item id lives once committed
func PathFor(root, id string, role Role) string {
	return filepath.Join(root, id, role.FileName())
}

// Store manages item directories under a storage root
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore creates the storage root if needed
func NewStore(fs afero.Fs, root string) (*Store, error) {
	if root == "" {
		return nil, models.ValidationError("open blob store", fmt.Errorf("storage root is empty"))
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, models.IOError("create storage root", err)
	}
	return &Store{fs: fs, root: root}, nil
}

// Root returns the storage root
func (s *Store) Root() string {
	return s.root
}

// ItemPath returns the committed directory of item id
func (s *Store) ItemPath(id string) string {
	return filepath.Join(s.root, id)
}

func (s *Store) stagingPath(id string) string {
	return filepath.Join(s.root, StagingDirName, id)
}

// ValidateID rejects ids that would escape the storage root or collide
// with root-level bookkeeping entries.
func ValidateID(id string) error {
	if id == "" {
		return models.ValidationError("validate id", fmt.Errorf("id is empty"))
	}
	if strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return models.ValidationError("validate id", fmt.Errorf("invalid id %q", id))
	}
	return nil
}

// Create starts a new item in the staging area
func (s *Store) Create(id string) (*Dir, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if _, err := s.fs.Stat(s.root); err != nil {
		return nil, models.IOError("access storage root", err)
	}

	exists, err := afero.Exists(s.fs, s.ItemPath(id))
	if err != nil {
		return nil, models.IOError("check item directory", err)
	}
	if exists {
		return nil, models.IOError("create item directory", fmt.Errorf("%s already exists", s.ItemPath(id)))
	}

	if err := s.fs.MkdirAll(filepath.Join(s.root, StagingDirName), 0o755); err != nil {
		return nil, models.IOError("create staging directory", err)
	}
	staging := s.stagingPath(id)
	if err := s.fs.Mkdir(staging, 0o755); err != nil {
		return nil, models.IOError("create staging directory", err)
	}

	return &Dir{store: s, id: id, staging: staging}, nil
}

// Remove deletes the item directory recursively. Removing a missing item is not an error.
func (s *Store) Remove(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.fs.RemoveAll(s.ItemPath(id)); err != nil {
		return models.IOError("remove item directory", err)
	}
	return nil
}

// IDs lists the committed item directories under the root
func (s *Store) IDs() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, models.IOError("list storage root", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// ReadFile returns the committed role file of item id
func (s *Store) ReadFile(id string, role Role) ([]byte, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, PathFor(s.root, id, role))
	if err != nil {
		return nil, models.IOError("read "+role.FileName(), err)
	}
	return data, nil
}

// ReplaceFile atomically overwrites the role file of a committed item
func (s *Store) ReplaceFile(id string, role Role, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	dir := s.ItemPath(id)
	tmp, err := afero.TempFile(s.fs, dir, role.FileName()+".*.tmp")
	if err != nil {
		return models.IOError("create temp "+role.FileName(), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return models.IOError("write "+role.FileName(), err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return models.IOError("close "+role.FileName(), err)
	}
	if err := s.fs.Rename(tmpName, PathFor(s.root, id, role)); err != nil {
		s.fs.Remove(tmpName)
		return models.IOError("replace "+role.FileName(), err)
	}
	return nil
}

// SweepStaging removes staging directories left behind by interrupted
// saves. Only entries last modified before olderThan ago are touched so
// that a save running in another process is not disturbed.
func (s *Store) SweepStaging(olderThan time.Duration) ([]string, error) {
	stagingRoot := filepath.Join(s.root, StagingDirName)
	entries, err := afero.ReadDir(s.fs, stagingRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, models.IOError("list staging directory", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var removed []string
	for _, e := range entries {
		if e.ModTime().After(cutoff) {
			continue
		}
		if err := s.fs.RemoveAll(filepath.Join(stagingRoot, e.Name())); err != nil {
			return removed, models.IOError("remove stale staging entry", err)
		}
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// Dir is an item being assembled in the staging area
type Dir struct {
	store     *Store
	id        string
	staging   string
	committed bool
}

// ID returns the item id
func (d *Dir) ID() string {
	return d.id
}

// Path returns the directory currently holding the item's files
func (d *Dir) Path() string {
	if d.committed {
		return d.store.ItemPath(d.id)
	}
	return d.staging
}

// StoreFile copies src into the item as role and returns the committed path
func (d *Dir) StoreFile(role Role, src string) (string, error) {
	in, err := d.store.fs.Open(src)
	if err != nil {
		return "", models.IOError(fmt.Sprintf("open %s source", role), err)
	}
	defer in.Close()

	return d.write(role, in)
}

// StoreBytes writes data into the item as role and returns the committed path
func (d *Dir) StoreBytes(role Role, data []byte) (string, error) {
	return d.write(role, bytes.NewReader(data))
}

func (d *Dir) write(role Role, r io.Reader) (string, error) {
	if d.committed {
		return "", models.IOError("write "+role.FileName(), fmt.Errorf("item %s is already committed", d.id))
	}
	name := role.FileName()
	if name == "" {
		return "", models.ValidationError("write blob", fmt.Errorf("unknown role %q", role))
	}

	out, err := d.store.fs.OpenFile(filepath.Join(d.staging, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", models.IOError("create "+name, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return "", models.IOError("write "+name, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return "", models.IOError("sync "+name, err)
	}
	if err := out.Close(); err != nil {
		return "", models.IOError("close "+name, err)
	}

	return PathFor(d.store.root, d.id, role), nil
}

// Commit moves the staged item into the storage root
func (d *Dir) Commit() error {
	if d.committed {
		return nil
	}
	final := d.store.ItemPath(d.id)
	exists, err := afero.Exists(d.store.fs, final)
	if err != nil {
		return models.IOError("check item directory", err)
	}
	if exists {
		return models.IOError("commit item", fmt.Errorf("%s already exists", final))
	}
	if err := d.store.fs.Rename(d.staging, final); err != nil {
		return models.IOError("commit item", err)
	}
	d.committed = true
	return nil
}

// Abort discards the staged item. It is a no-op after Commit.
func (d *Dir) Abort() error {
	if d.committed {
		return nil
	}
	if err := d.store.fs.RemoveAll(d.staging); err != nil {
		return models.IOError("remove staging directory", err)
	}
	return nil
}
