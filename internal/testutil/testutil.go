package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// pngHeader makes fixture files look like PNGs to anything sniffing them
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// TempStore is a scratch storage root plus a directory of capture inputs
type TempStore struct {
	Root   string
	Inputs string
	T      *testing.T
}

// NewTempStore creates an empty storage root and input directory that are
// removed when the test finishes
func NewTempStore(t *testing.T) *TempStore {
	t.Helper()

	base := t.TempDir()
	s := &TempStore{
		Root:   filepath.Join(base, "history"),
		Inputs: filepath.Join(base, "inputs"),
		T:      t,
	}
	if err := os.MkdirAll(s.Inputs, 0o755); err != nil {
		t.Fatalf("failed to create input dir: %v", err)
	}
	return s
}

// CreateImage writes a fake PNG of exactly size bytes into the input
// directory and returns its path
func (s *TempStore) CreateImage(name string, size int) string {
	s.T.Helper()

	data := make([]byte, size)
	copy(data, pngHeader)
	for i := len(pngHeader); i < size; i++ {
		data[i] = byte(i)
	}
	return s.CreateFile(name, data)
}

// CreateFile writes data into the input directory and returns its path
func (s *TempStore) CreateFile(name string, data []byte) string {
	s.T.Helper()

	path := filepath.Join(s.Inputs, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.T.Fatalf("failed to create file: %v", err)
	}
	return path
}

// ItemDirs returns the item directories under the storage root, sorted
func (s *TempStore) ItemDirs() []string {
	s.T.Helper()

	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		s.T.Fatalf("failed to read storage root: %v", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs
}

// FileExists reports whether name exists inside item id
func (s *TempStore) FileExists(id, name string) bool {
	s.T.Helper()

	_, err := os.Stat(filepath.Join(s.Root, id, name))
	return err == nil
}

// GetFileContent reads name from inside item id
func (s *TempStore) GetFileContent(id, name string) []byte {
	s.T.Helper()

	data, err := os.ReadFile(filepath.Join(s.Root, id, name))
	if err != nil {
		s.T.Fatalf("failed to read %s/%s: %v", id, name, err)
	}
	return data
}

// SameContent reports whether two files hold identical bytes
func SameContent(t *testing.T, a, b string) bool {
	t.Helper()

	da, err := os.ReadFile(a)
	if err != nil {
		t.Fatalf("failed to read %s: %v", a, err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		t.Fatalf("failed to read %s: %v", b, err)
	}
	return bytes.Equal(da, db)
}

// SteppingClock returns a clock starting at start that advances by step on
// every call, so consecutive saves get strictly increasing timestamps
func SteppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
