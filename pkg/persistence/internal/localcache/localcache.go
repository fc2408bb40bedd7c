// Package localcache is a bbolt-backed warm-start mirror of the last
// cluster image this node successfully saved to the control volume.
// It exists so initial_up() (spec §4.8) can reconstruct enough state to
// bring the control resource itself online before that resource's own
// backing device is reachable — a chicken-and-egg gap the control
// volume's own Gateway cannot close.
//
// Adapted from the teacher's pkg/storage/boltdb.go bucket-per-entity
// pattern, collapsed to a single bucket holding a single blob: spec §3
// treats the whole ClusterConfig as one atomic unit with no partial
// updates on disk, so per-entity buckets would buy nothing here.
package localcache

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

var (
	bucketCluster = []byte("cluster")
	keyImage      = []byte("image")
	keyHash       = []byte("hash")
)

// Cache is a warm-start mirror backed by a local bbolt file, independent
// of the control-volume Gateway.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("localcache: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCluster)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("localcache: init bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying bbolt file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Store persists cc and its content hash as the new warm-start image.
func (c *Cache) Store(cc *types.ClusterConfig, hash []byte) error {
	data, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("localcache: marshal: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCluster)
		if err := b.Put(keyImage, data); err != nil {
			return err
		}
		return b.Put(keyHash, hash)
	})
}

// Load reconstructs the last stored image into into. It reports
// ok=false if nothing has ever been cached.
func (c *Cache) Load(into *types.ClusterConfig) (ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCluster)
		data := b.Get(keyImage)
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, into)
	})
	if err != nil {
		return false, fmt.Errorf("localcache: load: %w", err)
	}
	return ok, nil
}

// StoredHash returns the hash recorded alongside the last Store call, or
// nil if nothing has been cached yet.
func (c *Cache) StoredHash() ([]byte, error) {
	var hash []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		hash = append([]byte(nil), tx.Bucket(bucketCluster).Get(keyHash)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("localcache: stored hash: %w", err)
	}
	if len(hash) == 0 {
		return nil, nil
	}
	return hash, nil
}
