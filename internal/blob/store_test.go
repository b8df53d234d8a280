package blob

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewOsFs()
	s, err := NewStore(fs, filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	return s, fs
}

func writeSource(t *testing.T, fs afero.Fs, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
	return path
}

func TestRoleFileName(t *testing.T) {
	assert.Equal(t, "original.png", RoleOriginal.FileName())
	assert.Equal(t, "annotated.png", RoleAnnotated.FileName())
	assert.Equal(t, "thumbnail.png", RoleThumbnail.FileName())
	assert.Equal(t, "annotations.json", RoleAnnotations.FileName())
	assert.Equal(t, "meta.json", RoleMeta.FileName())
	assert.Equal(t, "", Role("bogus").FileName())
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"", ".staging", "..", "a/b", `a\b`, "../escape"} {
		err := ValidateID(id)
		assert.ErrorIs(t, err, models.ErrValidation, "id %q", id)
	}
	assert.NoError(t, ValidateID("3f1c2b1e-8f7a-4d3e-9c55-0a7d1c2e4b6f"))
}

func TestNewStoreRequiresRoot(t *testing.T) {
	_, err := NewStore(afero.NewMemMapFs(), "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateCommit(t *testing.T) {
	s, fs := newTestStore(t)
	src := writeSource(t, fs, "shot.png", []byte("pixels"))

	dir, err := s.Create("item-1")
	require.NoError(t, err)

	path, err := dir.StoreFile(RoleOriginal, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "item-1", "original.png"), path)

	_, err = dir.StoreBytes(RoleAnnotations, []byte(`[]`))
	require.NoError(t, err)

	// Nothing is visible under the root until commit.
	exists, err := afero.DirExists(fs, s.ItemPath("item-1"))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, dir.Commit())
	assert.Equal(t, s.ItemPath("item-1"), dir.Path())

	data, err := s.ReadFile("item-1", RoleOriginal)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	data, err = s.ReadFile("item-1", RoleAnnotations)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	// Abort after commit keeps the item.
	require.NoError(t, dir.Abort())
	exists, err = afero.DirExists(fs, s.ItemPath("item-1"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAbortDiscardsStagedItem(t *testing.T) {
	s, fs := newTestStore(t)

	dir, err := s.Create("item-1")
	require.NoError(t, err)
	_, err = dir.StoreBytes(RoleMeta, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, dir.Abort())

	_, err = fs.Stat(filepath.Join(s.Root(), StagingDirName, "item-1"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	ids, err := s.IDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStoreFileMissingSource(t *testing.T) {
	s, _ := newTestStore(t)

	dir, err := s.Create("item-1")
	require.NoError(t, err)
	defer dir.Abort()

	_, err = dir.StoreFile(RoleOriginal, filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestWriteAfterCommitFails(t *testing.T) {
	s, _ := newTestStore(t)

	dir, err := s.Create("item-1")
	require.NoError(t, err)
	require.NoError(t, dir.Commit())

	_, err = dir.StoreBytes(RoleMeta, []byte(`{}`))
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestCreateExistingItemFails(t *testing.T) {
	s, _ := newTestStore(t)

	dir, err := s.Create("item-1")
	require.NoError(t, err)
	require.NoError(t, dir.Commit())

	_, err = s.Create("item-1")
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestCreateWithoutRootFails(t *testing.T) {
	s, fs := newTestStore(t)
	require.NoError(t, fs.RemoveAll(s.Root()))

	_, err := s.Create("item-1")
	assert.ErrorIs(t, err, models.ErrIO)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s, fs := newTestStore(t)

	dir, err := s.Create("item-1")
	require.NoError(t, err)
	require.NoError(t, dir.Commit())

	require.NoError(t, s.Remove("item-1"))
	require.NoError(t, s.Remove("item-1"))
	require.NoError(t, s.Remove("never-existed"))

	exists, err := afero.DirExists(fs, s.ItemPath("item-1"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIDsSkipsBookkeeping(t *testing.T) {
	s, fs := newTestStore(t)

	for _, id := range []string{"a", "b"} {
		dir, err := s.Create(id)
		require.NoError(t, err)
		require.NoError(t, dir.Commit())
	}
	// A staged item and the catalog document are not items.
	_, err := s.Create("c")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(s.Root(), "index.json"), []byte("[]"), 0o644))

	ids, err := s.IDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestReplaceFile(t *testing.T) {
	s, fs := newTestStore(t)

	dir, err := s.Create("item-1")
	require.NoError(t, err)
	_, err = dir.StoreBytes(RoleMeta, []byte(`{"v":1}`))
	require.NoError(t, err)
	require.NoError(t, dir.Commit())

	require.NoError(t, s.ReplaceFile("item-1", RoleMeta, []byte(`{"v":2}`)))

	data, err := s.ReadFile("item-1", RoleMeta)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	entries, err := afero.ReadDir(fs, s.ItemPath("item-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSweepStaging(t *testing.T) {
	s, fs := newTestStore(t)

	_, err := s.Create("stale")
	require.NoError(t, err)
	_, err = s.Create("fresh")
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, fs.Chtimes(filepath.Join(s.Root(), StagingDirName, "stale"), old, old))

	swept, err := s.SweepStaging(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, swept)

	ok, err := afero.DirExists(fs, filepath.Join(s.Root(), StagingDirName, "fresh"))
	require.NoError(t, err)
	assert.True(t, ok)
}
