// Package cache persists decoded page artefacts on disk so reopening a
// document does not pay the decode cost again. Entries are evicted by
// total size (least recently used first) and by age.
package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	dataExt = ".page"
	metaExt = ".meta"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	Dir string

	// MaxSizeMB bounds the bytes held on disk. Default: 256.
	MaxSizeMB int

	// TTL expires entries by age. Zero keeps them until evicted by size.
	TTL time.Duration

	// SweepInterval is how often expired entries are collected. Default: 10m.
	SweepInterval time.Duration
}

// Stats is a snapshot of store counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Bytes     int64
	Entries   int
}

type meta struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Variant string `json:"variant"`
	Created int64  `json:"created"`
	Size    int64  `json:"size"`
}

func (m meta) key() Key { return Key{Source: m.Source, Page: m.Page, Variant: m.Variant} }

type entry struct {
	digest  string
	key     Key
	size    int64
	created time.Time
}

// Store is a disk-backed page cache. Each entry is a data file plus a
// JSON sidecar; both are written through a temp file and renamed.
// Store is safe for concurrent use.
type Store struct {
	cfg StoreConfig

	mu      sync.Mutex
	lru     *list.List // front = most recently used
	byHash  map[string]*list.Element
	bytes   int64
	hits    int64
	misses  int64
	evicted int64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewStore opens (creating if needed) the cache directory and indexes
// the entries already in it.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache: empty directory")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 256
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create %s: %w", cfg.Dir, err)
	}

	s := &Store{
		cfg:    cfg,
		lru:    list.New(),
		byHash: make(map[string]*list.Element),
		done:   make(chan struct{}),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("cache: index %s: %w", cfg.Dir, err)
	}

	s.wg.Add(1)
	go s.sweepLoop()
	return s, nil
}

// Get returns the bytes stored under k. Expired entries count as misses
// and are removed.
func (s *Store) Get(k Key) ([]byte, bool) {
	d := k.digest()

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.byHash[d]
	if !ok {
		s.misses++
		return nil, false
	}
	e := elem.Value.(*entry)
	if s.expired(e.created) {
		s.removeLocked(elem)
		s.misses++
		return nil, false
	}
	data, err := os.ReadFile(s.dataPath(d))
	if err != nil {
		s.removeLocked(elem)
		s.misses++
		return nil, false
	}
	s.lru.MoveToFront(elem)
	s.hits++
	return data, true
}

// GetJSON decodes a JSON value stored with PutJSON.
func GetJSON[T any](s *Store, k Key) (T, bool) {
	var v T
	data, ok := s.Get(k)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// PutJSON encodes v as JSON and stores it under k.
func PutJSON[T any](s *Store, k Key, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", k, err)
	}
	return s.Put(k, data)
}

// Put stores data under k, replacing any previous value, then evicts
// until the store fits its size bound.
func (s *Store) Put(k Key, data []byte) error {
	d := k.digest()
	now := time.Now()
	m := meta{
		Source:  k.Source,
		Page:    k.Page,
		Variant: k.Variant,
		Created: now.UnixNano(),
		Size:    int64(len(data)),
	}
	mb, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("cache: encode meta %s: %w", k, err)
	}
	if err := writeAtomic(s.cfg.Dir, s.dataPath(d), data); err != nil {
		return fmt.Errorf("cache: write %s: %w", k, err)
	}
	if err := writeAtomic(s.cfg.Dir, s.metaPath(d), mb); err != nil {
		_ = os.Remove(s.dataPath(d))
		return fmt.Errorf("cache: write meta %s: %w", k, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.byHash[d]; ok {
		e := elem.Value.(*entry)
		s.bytes += m.Size - e.size
		e.size = m.Size
		e.created = now
		s.lru.MoveToFront(elem)
	} else {
		s.byHash[d] = s.lru.PushFront(&entry{digest: d, key: k, size: m.Size, created: now})
		s.bytes += m.Size
	}
	s.shrinkLocked()
	return nil
}

// Delete removes k. Deleting a missing key is not an error.
func (s *Store) Delete(k Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.byHash[k.digest()]; ok {
		s.removeLocked(elem)
	}
	return nil
}

// PurgeSource removes every entry of one document and reports how many
// were dropped.
func (s *Store) PurgeSource(source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for elem := s.lru.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*entry).key.Source == source {
			s.removeLocked(elem)
			n++
		}
		elem = next
	}
	return n
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evicted,
		Bytes:     s.bytes,
		Entries:   s.lru.Len(),
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

func (s *Store) dataPath(d string) string { return filepath.Join(s.cfg.Dir, d+dataExt) }
func (s *Store) metaPath(d string) string { return filepath.Join(s.cfg.Dir, d+metaExt) }

func (s *Store) limit() int64 { return int64(s.cfg.MaxSizeMB) << 20 }

func (s *Store) expired(created time.Time) bool {
	return s.cfg.TTL > 0 && time.Since(created) > s.cfg.TTL
}

// removeLocked drops elem from the index and deletes its files.
func (s *Store) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	s.lru.Remove(elem)
	delete(s.byHash, e.digest)
	s.bytes -= e.size
	_ = os.Remove(s.dataPath(e.digest))
	_ = os.Remove(s.metaPath(e.digest))
}

func (s *Store) shrinkLocked() {
	for s.bytes > s.limit() {
		back := s.lru.Back()
		if back == nil {
			return
		}
		s.removeLocked(back)
		s.evicted++
	}
}

// load rebuilds the index from sidecar files. Orphans, corrupt sidecars,
// stale temp files and expired entries are removed along the way.
func (s *Store) load() error {
	des, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return err
	}
	for _, de := range des {
		name := de.Name()
		if de.IsDir() {
			continue
		}
		if strings.HasPrefix(name, ".tmp-") {
			_ = os.Remove(filepath.Join(s.cfg.Dir, name))
			continue
		}
		if !strings.HasSuffix(name, metaExt) {
			continue
		}
		d := strings.TrimSuffix(name, metaExt)
		raw, err := os.ReadFile(s.metaPath(d))
		var m meta
		if err == nil {
			err = json.Unmarshal(raw, &m)
		}
		if err == nil {
			_, err = os.Stat(s.dataPath(d))
		}
		created := time.Unix(0, m.Created)
		if err != nil || s.expired(created) || m.key().digest() != d {
			_ = os.Remove(s.metaPath(d))
			_ = os.Remove(s.dataPath(d))
			continue
		}
		s.byHash[d] = s.lru.PushBack(&entry{digest: d, key: m.key(), size: m.Size, created: created})
		s.bytes += m.Size
	}
	s.shrinkLocked()
	return nil
}

func (s *Store) sweepLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	if s.cfg.TTL == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for elem := s.lru.Front(); elem != nil; {
		next := elem.Next()
		if s.expired(elem.Value.(*entry).created) {
			s.removeLocked(elem)
			s.evicted++
		}
		elem = next
	}
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
