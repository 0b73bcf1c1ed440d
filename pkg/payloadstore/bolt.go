package payloadstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketPayloads = []byte("payloads")

// BoltPayloadStore is a local/dev blob store backed by a single BoltDB
// file, one bucket, keyed by a uuid.New()-derived token.
type BoltPayloadStore struct {
	db *bolt.DB
}

// NewBoltPayloadStore opens (creating if absent) a BoltDB file under
// dataDir and ensures the payloads bucket exists.
func NewBoltPayloadStore(dataDir string) (*BoltPayloadStore, error) {
	dbPath := filepath.Join(dataDir, "payloads.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("payloadstore: open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPayloads)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("payloadstore: create bucket: %w", err)
	}

	return &BoltPayloadStore{db: db}, nil
}

func (s *BoltPayloadStore) Put(_ context.Context, data []byte) (string, error) {
	token := uuid.New().String()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayloads)
		return b.Put([]byte(token), data)
	})
	if err != nil {
		return "", fmt.Errorf("payloadstore: put: %w", err)
	}
	return token, nil
}

func (s *BoltPayloadStore) Get(_ context.Context, token string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayloads)
		v := b.Get([]byte(token))
		if v == nil {
			return fmt.Errorf("payload not found: %s", token)
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	return data, err
}

func (s *BoltPayloadStore) Close() error {
	return s.db.Close()
}
