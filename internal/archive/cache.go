package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Cache manages downloaded archive files on disk. Files are named by
// fetch timestamp so the newest copy is recoverable after a restart,
// and a lock file serializes downloads across processes sharing the
// cache directory (several CLI invocations, or CLI next to a server).
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache that stores files in dir and keeps at most maxFiles.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 3
	}
	return &Cache{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Write saves data to a timestamped file and prunes old files beyond maxFiles.
func (c *Cache) Write(data []byte, ts time.Time) error {
	if err := c.ensureDir(); err != nil {
		return err
	}

	filename := fmt.Sprintf("archive_%d.skb", ts.Unix())
	path := filepath.Join(c.dir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return c.prune()
}

// LoadLatest reads the newest cache file by timestamp in the filename.
// Returns the data, the timestamp, and any error.
func (c *Cache) LoadLatest() ([]byte, time.Time, error) {
	files, err := c.listFiles()
	if err != nil {
		return nil, time.Time{}, err
	}

	if len(files) == 0 {
		return nil, time.Time{}, fmt.Errorf("no cached archive found in %s", c.dir)
	}

	// Files are sorted oldest first; take the last one.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}

	return data, latest.ts, nil
}

// FetchOrCache returns a decoded archive, downloading only when the
// cache is empty or older than maxAge (maxAge <= 0 means any cached
// copy is acceptable). The download path holds a file lock so that
// concurrent processes do not fetch the same archive twice.
func (c *Cache) FetchOrCache(ctx context.Context, f *Fetcher, maxAge time.Duration) (*Archive, error) {
	if data, ts, err := c.LoadLatest(); err == nil {
		if maxAge <= 0 || time.Since(ts) <= maxAge {
			return decode(data)
		}
	}

	if err := c.ensureDir(); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(c.dir, "fetch.lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking cache dir: %w", err)
	}
	defer lock.Unlock()

	// Another process may have completed the download while we waited.
	if data, ts, err := c.LoadLatest(); err == nil {
		if maxAge <= 0 || time.Since(ts) <= maxAge {
			return decode(data)
		}
	}

	data, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	a, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := c.Write(data, time.Now()); err != nil {
		return nil, err
	}
	return a, nil
}

func decode(data []byte) (*Archive, error) {
	a, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding cached archive: %w", err)
	}
	return a, nil
}

type cacheFile struct {
	name string
	ts   time.Time
}

func (c *Cache) listFiles() ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "archive_") || !strings.HasSuffix(name, ".skb") {
			continue
		}
		secStr := strings.TrimSuffix(strings.TrimPrefix(name, "archive_"), ".skb")
		sec, err := strconv.ParseInt(secStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, ts: time.Unix(sec, 0)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ts.Before(files[j].ts) })
	return files, nil
}

func (c *Cache) prune() error {
	files, err := c.listFiles()
	if err != nil {
		return err
	}
	for len(files) > c.maxFiles {
		if err := os.Remove(filepath.Join(c.dir, files[0].name)); err != nil {
			return fmt.Errorf("pruning cache file: %w", err)
		}
		files = files[1:]
	}
	return nil
}

func (c *Cache) ensureDir() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	return nil
}
