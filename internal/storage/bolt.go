package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const savesBucket = "saves"

// Bolt stores saves in a BoltDB bucket.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens a BoltDB file at path.
func OpenBolt(path string) (*Bolt, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(savesBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create saves bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Save(ctx context.Context, slot string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(savesBucket))
		if bucket == nil {
			return fmt.Errorf("saves bucket is missing")
		}
		return bucket.Put([]byte(slot), data)
	})
}

func (b *Bolt) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(savesBucket))
		if bucket == nil {
			return fmt.Errorf("saves bucket is missing")
		}
		payload := bucket.Get([]byte(slot))
		if payload == nil {
			return ErrNotFound
		}
		// payload is only valid for the life of the transaction.
		data = append([]byte(nil), payload...)
		return nil
	})
	return data, err
}

func (b *Bolt) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(savesBucket))
		if bucket == nil {
			return fmt.Errorf("saves bucket is missing")
		}
		if bucket.Get([]byte(slot)) == nil {
			return ErrNotFound
		}
		return bucket.Delete([]byte(slot))
	})
}

func (b *Bolt) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var slots []string
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(savesBucket))
		if bucket == nil {
			return fmt.Errorf("saves bucket is missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			slots = append(slots, string(k))
			return nil
		})
	})
	return slots, err
}

// Close closes the underlying BoltDB database.
func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
