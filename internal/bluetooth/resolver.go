package bluetooth

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ble-proximity.klederson.com/internal/proximity"
)

// DefaultBlueZRoot is where bluetoothd keeps per-adapter state.
const DefaultBlueZRoot = "/var/lib/bluetooth"

type cacheEntry struct {
	address string
	label   string
}

// CacheResolver looks up names bluetoothd has cached for a device, the way
// the desktop pairing dialog shows them. Lookups are memoized, including misses.
type CacheResolver struct {
	root string
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[proximity.Identity]cacheEntry
}

// NewCacheResolver creates a resolver reading below root. An empty root uses
// DefaultBlueZRoot.
func NewCacheResolver(root string, log zerolog.Logger) *CacheResolver {
	if root == "" {
		root = DefaultBlueZRoot
	}
	return &CacheResolver{
		root:    root,
		log:     log,
		entries: make(map[proximity.Identity]cacheEntry),
	}
}

// Resolve returns the cached address and name for a MAC identity. Platform
// UUID identities have no cache entry.
func (r *CacheResolver) Resolve(id proximity.Identity) (string, string) {
	if !id.IsMAC() {
		return "", ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		return e.address, e.label
	}

	e := r.lookup(id)
	r.entries[id] = e
	return e.address, e.label
}

// Forget drops a memoized lookup so the next Resolve reads the cache again.
func (r *CacheResolver) Forget(id proximity.Identity) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func (r *CacheResolver) lookup(id proximity.Identity) cacheEntry {
	matches, err := filepath.Glob(filepath.Join(r.root, "*", "cache", id.String()))
	if err != nil || len(matches) == 0 {
		return cacheEntry{}
	}

	for _, path := range matches {
		name, err := readCachedName(path)
		if err != nil {
			r.log.Debug().Err(err).Str("path", path).Msg("failed to read bluez cache")
			continue
		}
		return cacheEntry{address: id.String(), label: name}
	}
	return cacheEntry{}
}

// readCachedName returns Name= from the [General] group of a bluez cache file.
func readCachedName(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	group := ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			group = line[1 : len(line)-1]
		case group == "General":
			key, value, ok := strings.Cut(line, "=")
			if ok && strings.TrimSpace(key) == "Name" {
				return strings.TrimSpace(value), nil
			}
		}
	}
	return "", sc.Err()
}
