// Package cache is the on-disk query cache: one JSON record per verified
// query in a flat directory, named query-<hash>.json. The directory is
// meant to be committed to version control, so writes are atomic and the
// encoding is byte-stable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/jakerosado/preflight/internal/query"
)

// Store reads and writes cache records under a single directory.
// Concurrent Puts are safe as long as they target distinct hashes, which
// the verifier guarantees; records for the same hash are identical anyway.
type Store struct {
	dir string
}

// New returns a store over dir. The directory is created lazily on the
// first Put; loading a store whose directory does not exist yet behaves
// as an empty cache.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

// LoadIssue is one cache file that could not be loaded.
type LoadIssue struct {
	Path string
	Err  error
}

func (i LoadIssue) String() string {
	return fmt.Sprintf("%s: %v", i.Path, i.Err)
}

// LoadAll reads every record in the cache. A file that fails to decode or
// validate is reported as an issue and skipped; one bad record never hides
// the rest. Files that do not look like record files, including the
// temporary names Put uses, are ignored entirely.
func (s *Store) LoadAll(ctx context.Context) (map[string]query.CacheRecord, []LoadIssue, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]query.CacheRecord{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading cache dir %s: %w", s.dir, err)
	}

	records := make(map[string]query.CacheRecord, len(entries))
	var issues []LoadIssue
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if entry.IsDir() {
			continue
		}
		hash, ok := query.HashFromFilename(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		rec, err := s.readRecord(path, hash)
		if err != nil {
			issues = append(issues, LoadIssue{Path: path, Err: err})
			continue
		}
		records[hash] = rec
	}
	return records, issues, nil
}

// Get reads the record for one hash. The second return is false when no
// record exists; a record that exists but fails to load is an error.
func (s *Store) Get(hash string) (query.CacheRecord, bool, error) {
	path := filepath.Join(s.dir, query.RecordFilename(hash))
	rec, err := s.readRecord(path, hash)
	if errors.Is(err, fs.ErrNotExist) {
		return query.CacheRecord{}, false, nil
	}
	if err != nil {
		return query.CacheRecord{}, false, err
	}
	return rec, true, nil
}

func (s *Store) readRecord(path, hash string) (query.CacheRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return query.CacheRecord{}, err
	}
	rec, err := query.UnmarshalRecord(data)
	if err != nil {
		return query.CacheRecord{}, err
	}
	if rec.ContentHash != hash {
		return query.CacheRecord{}, query.NewCorruptError(
			fmt.Sprintf("file name hash %s does not match record hash %s",
				query.ShortHash(hash), query.ShortHash(rec.ContentHash)), nil)
	}
	return rec, nil
}

// Put writes a record atomically: a uniquely named temp file in the same
// directory, fsync, then rename over the final name. A crash mid-write
// leaves only a temp file LoadAll never sees, so the cache always holds
// either the old record or the new one, never a torn one.
func (s *Store) Put(rec query.CacheRecord) error {
	data, err := rec.Marshal()
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir %s: %w", s.dir, err)
	}

	final := filepath.Join(s.dir, rec.Filename())
	tmp := final + ".tmp." + uuid.NewString()
	if err := writeFileSync(tmp, data); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("put record %s: %w", query.ShortHash(rec.ContentHash), err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("put record %s: %w", query.ShortHash(rec.ContentHash), err)
	}
	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Hashes lists the content hashes present in the cache, sorted.
func (s *Store) Hashes() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache dir %s: %w", s.dir, err)
	}

	hashes := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if hash, ok := query.HashFromFilename(entry.Name()); ok {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)
	return hashes, nil
}

// Stale returns the cached hashes not present in live, sorted. These are
// records for queries that no longer exist in source. Removal is advisory
// and left to the prune command; verification never deletes.
func (s *Store) Stale(live map[string]bool) ([]string, error) {
	hashes, err := s.Hashes()
	if err != nil {
		return nil, err
	}
	stale := []string{}
	for _, h := range hashes {
		if !live[h] {
			stale = append(stale, h)
		}
	}
	return stale, nil
}

// Remove deletes the record for hash. Removing a record that does not
// exist is not an error.
func (s *Store) Remove(hash string) error {
	err := os.Remove(filepath.Join(s.dir, query.RecordFilename(hash)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing record %s: %w", query.ShortHash(hash), err)
	}
	return nil
}
