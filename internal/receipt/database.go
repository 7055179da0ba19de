package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptsBucket  = "receipts"
	snapshotsBucket = "snapshots"
)

// ErrNotFound is returned when a receipt id is unknown
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	SaveReceipt(receipt *Receipt) error
	// GetReceipt returns ErrNotFound for unknown ids
	GetReceipt(id string) (*Receipt, error)
	ListReceipts() ([]*Receipt, error)
	DeleteReceipt(id string) error

	SaveSnapshot(snapshot *Snapshot) error
	// GetSnapshot returns ErrNotFound when the user never pushed
	GetSnapshot(userID string) (*Snapshot, error)

	Close() error
}

// BoltDB implements DB on a single bbolt file
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens or creates the database at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptsBucket, snapshotsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", bucket, err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
	})
}

func (b *BoltDB) get(bucket, key string, v any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%s %q: %w", bucket, key, ErrNotFound)
		}
		return json.Unmarshal(data, v)
	})
}

// SaveReceipt inserts or replaces a receipt
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.put(receiptsBucket, receipt.ID, receipt)
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt Receipt
	if err := b.get(receiptsBucket, id, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ListReceipts returns every receipt in key order
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt. Deleting an unknown id is not an error.
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).Delete([]byte(id))
	})
}

// SaveSnapshot replaces the user's snapshot
func (b *BoltDB) SaveSnapshot(snapshot *Snapshot) error {
	return b.put(snapshotsBucket, snapshot.UserID, snapshot)
}

// GetSnapshot returns the user's last pushed snapshot
func (b *BoltDB) GetSnapshot(userID string) (*Snapshot, error) {
	var snapshot Snapshot
	if err := b.get(snapshotsBucket, userID, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
