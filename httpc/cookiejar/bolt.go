package cookiejar

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const cookieBucket = "cookies"

// BoltJar is a Jar whose non-session cookies survive restarts in a
// bbolt file. Session cookies stay memory-only, the way a browser
// treats them.
type BoltJar struct {
	jar *Jar
	db  *bolt.DB
}

// OpenBolt loads the cookie database at path, creating the file and
// its directory when absent. Expired records are dropped on load.
func OpenBolt(path string) (*BoltJar, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cookie directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cookie db: %w", err)
	}

	jar := NewJar()
	now := time.Now()
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(cookieBucket))
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var c storedCookie
			if err := json.Unmarshal(v, &c); err != nil {
				return nil
			}
			if !c.expired(now) {
				jar.add(c)
			}
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	return &BoltJar{jar: jar, db: db}, nil
}

// SetCookies records the response cookies and writes the persistent
// ones through to disk. A failed write is retried by the next update
// and by Close.
func (bj *BoltJar) SetCookies(u *url.URL, setCookies []string) {
	bj.jar.SetCookies(u, setCookies)
	_ = bj.persist()
}

// CookieHeader returns the Cookie line for a request to u.
func (bj *BoltJar) CookieHeader(u *url.URL) string {
	return bj.jar.CookieHeader(u)
}

// Clear drops every cookie, in memory and on disk.
func (bj *BoltJar) Clear() error {
	bj.jar.Clear()
	return bj.persist()
}

// Close flushes the persistent cookies and closes the database.
func (bj *BoltJar) Close() error {
	perr := bj.persist()
	cerr := bj.db.Close()
	if perr != nil {
		return perr
	}
	return cerr
}

// persist rewrites the bucket from the jar's current persistent set.
// The set is small; replacing it wholesale is simpler than mirroring
// individual inserts and removals.
func (bj *BoltJar) persist() error {
	cookies := bj.jar.persistent()
	return bj.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(cookieBucket)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket([]byte(cookieBucket))
		if err != nil {
			return err
		}
		for _, c := range cookies {
			v, err := json.Marshal(c)
			if err != nil {
				return err
			}
			key := c.Domain + "|" + c.Path + "|" + c.Name
			if err := b.Put([]byte(key), v); err != nil {
				return err
			}
		}
		return nil
	})
}
