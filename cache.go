package ddnsd

import (
	"net/netip"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Cache holds the last addresses that were successfully published.
// A zero netip.Addr means nothing has been published for that family.
type Cache struct {
	V4 netip.Addr
	V6 netip.Addr
}

// cacheFile is the on-disk form of Cache.
type cacheFile struct {
	V4 string `yaml:"v4,omitempty"`
	V6 string `yaml:"v6,omitempty"`
}

// Get returns the cached address for family f.
func (c *Cache) Get(f Family) netip.Addr {
	if f == IPv6 {
		return c.V6
	}
	return c.V4
}

// Set records addr as the published address for family f.
func (c *Cache) Set(f Family, addr netip.Addr) {
	if f == IPv6 {
		c.V6 = addr
		return
	}
	c.V4 = addr
}

// LoadCache reads the cache file at path.
//
// It never fails: a missing, unreadable or invalid file yields an empty Cache,
// and the directory containing path is created so that a later Save can succeed.
func LoadCache(path string) Cache {
	c, err := readCache(path)
	if err != nil {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		return Cache{}
	}
	return c
}

func readCache(path string) (Cache, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Cache{}, err
	}
	var f cacheFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Cache{}, err
	}

	var c Cache
	if f.V4 != "" {
		if c.V4, err = parseFamily(f.V4, IPv4); err != nil {
			return Cache{}, err
		}
	}
	if f.V6 != "" {
		if c.V6, err = parseFamily(f.V6, IPv6); err != nil {
			return Cache{}, err
		}
	}
	return c, nil
}

func parseFamily(s string, f Family) (netip.Addr, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if !f.Matches(a) {
		return netip.Addr{}, errors.Errorf("%s is not an %s address", s, f)
	}
	return a, nil
}

// Save rewrites the cache file at path with the contents of c.
func (c Cache) Save(path string) error {
	var f cacheFile
	if c.V4.IsValid() {
		f.V4 = c.V4.String()
	}
	if c.V6.IsValid() {
		f.V6 = c.V6.String()
	}
	b, err := yaml.Marshal(&f)
	if err != nil {
		return errors.Wrap(err, "failed to serialize cache")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write cache file %s", path)
	}
	return nil
}
