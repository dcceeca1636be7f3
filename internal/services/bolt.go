package services

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/floatchat/floatchat/internal/models"
	bolt "go.etcd.io/bbolt"
)

const usersBucket = "users"

// BoltDB implements the Store interface using a BoltDB backend for persistent
// storage of per-user conversations. Each user gets a dedicated bucket; a
// root bucket tracks the known user IDs so Reset can find them.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB creates a new BoltDB instance with the specified file path. It
// initializes the database with required buckets and returns an error if the
// database cannot be opened or initialized. The database file is created with
// 0600 permissions if it doesn't exist.
func NewBoltDB(path string) (BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltDB{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(usersBucket))
		return err
	})

	return BoltDB{db: db}, err
}

// Close closes the underlying database file.
func (b BoltDB) Close() error {
	return b.db.Close()
}

func messageBucketName(userID string) []byte {
	return []byte(fmt.Sprintf("user-%s", userID))
}

// Messages retrieves all messages stored for the specified user in insertion
// order. An unknown user yields an empty history, not an error.
func (b BoltDB) Messages(_ context.Context, userID string) ([]models.Message, error) {
	var messages []models.Message
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messageBucketName(userID))
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			var message models.Message
			if err := json.Unmarshal(v, &message); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			messages = append(messages, message)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// AddMessage stores a new message in the user's bucket, creating the bucket
// on first use. It generates a unique ID for the message by combining a
// sequence number with the message's original ID, and returns the new ID or
// an error if the operation fails.
func (b BoltDB) AddMessage(_ context.Context, userID string, message models.Message) (string, error) {
	var newID string
	err := b.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket([]byte(usersBucket))
		if users == nil {
			return errors.New("users bucket is missing")
		}
		if err := users.Put([]byte(userID), []byte{}); err != nil {
			return fmt.Errorf("failed to record user: %w", err)
		}

		bkt, err := tx.CreateBucketIfNotExists(messageBucketName(userID))
		if err != nil {
			return fmt.Errorf("failed to create message bucket: %w", err)
		}

		seq, err := bkt.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		newID = fmt.Sprintf("%d-%s", seq, message.ID)
		message.ID = newID

		v, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		// Keys are fixed-width big-endian sequence numbers so bolt's
		// lexicographic iteration matches insertion order past nine messages.
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bkt.Put(key, v)
	})

	return newID, err
}

// Reset deletes every stored conversation.
func (b BoltDB) Reset(context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket([]byte(usersBucket))
		if users == nil {
			return nil
		}

		var ids [][]byte
		if err := users.ForEach(func(k, _ []byte) error {
			ids = append(ids, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}

		for _, id := range ids {
			if err := tx.DeleteBucket(messageBucketName(string(id))); err != nil &&
				!errors.Is(err, bolt.ErrBucketNotFound) {
				return fmt.Errorf("failed to delete message bucket: %w", err)
			}
			if err := users.Delete(id); err != nil {
				return fmt.Errorf("failed to delete user record: %w", err)
			}
		}
		return nil
	})
}
