package bluetooth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ble-proximity.klederson.com/internal/proximity"
)

const cachedMAC proximity.Identity = "AA:BB:CC:DD:EE:01"

func writeCache(t *testing.T, root, adapter string, id proximity.Identity, body string) string {
	t.Helper()
	dir := filepath.Join(root, adapter, "cache")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, id.String())
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCacheResolver_ReadsGeneralName(t *testing.T) {
	root := t.TempDir()
	writeCache(t, root, "00:1A:7D:DA:71:13", cachedMAC, `[General]
Name=Kitchen Speaker
Appearance=0x0841

[ServiceRecords]
Name=not this one
`)

	r := NewCacheResolver(root, zerolog.Nop())
	address, label := r.Resolve(cachedMAC)
	assert.Equal(t, cachedMAC.String(), address)
	assert.Equal(t, "Kitchen Speaker", label)
}

func TestCacheResolver_IgnoresOtherGroups(t *testing.T) {
	root := t.TempDir()
	writeCache(t, root, "hci0", cachedMAC, "[ServiceRecords]\nName=Wrong\n")

	address, label := NewCacheResolver(root, zerolog.Nop()).Resolve(cachedMAC)
	assert.Equal(t, cachedMAC.String(), address, "a cache entry still proves the address")
	assert.Empty(t, label)
}

func TestCacheResolver_Misses(t *testing.T) {
	r := NewCacheResolver(t.TempDir(), zerolog.Nop())

	address, label := r.Resolve(cachedMAC)
	assert.Empty(t, address)
	assert.Empty(t, label)

	address, label = r.Resolve("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	assert.Empty(t, address)
	assert.Empty(t, label)
}

func TestCacheResolver_MemoizesUntilForgotten(t *testing.T) {
	root := t.TempDir()
	r := NewCacheResolver(root, zerolog.Nop())

	_, label := r.Resolve(cachedMAC)
	require.Empty(t, label)

	writeCache(t, root, "hci0", cachedMAC, "[General]\nName=Band 7\n")
	_, label = r.Resolve(cachedMAC)
	assert.Empty(t, label, "misses are memoized")

	r.Forget(cachedMAC)
	_, label = r.Resolve(cachedMAC)
	assert.Equal(t, "Band 7", label)
}

func TestNewCacheResolver_DefaultRoot(t *testing.T) {
	assert.Equal(t, DefaultBlueZRoot, NewCacheResolver("", zerolog.Nop()).root)
}
