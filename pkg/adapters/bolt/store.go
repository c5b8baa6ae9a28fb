// Package bolt stores conversations in an embedded BoltDB file.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/staffgate/pkg/domain"
	"go.etcd.io/bbolt"
)

const conversationBucket = "conversation"

// Store implements ports.StateStore on top of BoltDB.
// Each conversation is one JSON value keyed by the decimal identity.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open conversation db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save persists a conversation.
func (s *Store) Save(ctx context.Context, id domain.Identity, conv *domain.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(conversationBucket))
		if bucket == nil {
			return fmt.Errorf("conversation bucket is missing")
		}
		return bucket.Put(conversationKey(id), payload)
	})
}

// Load fetches a conversation by identity.
func (s *Store) Load(ctx context.Context, id domain.Identity) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var conv domain.Conversation
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(conversationBucket))
		if bucket == nil {
			return fmt.Errorf("conversation bucket is missing")
		}
		payload := bucket.Get(conversationKey(id))
		if payload == nil {
			return domain.ErrConversationNotFound
		}
		if err := json.Unmarshal(payload, &conv); err != nil {
			return fmt.Errorf("unmarshal conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Delete removes a conversation. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, id domain.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(conversationBucket))
		if bucket == nil {
			return fmt.Errorf("conversation bucket is missing")
		}
		return bucket.Delete(conversationKey(id))
	})
}

// List returns every stored identity.
func (s *Store) List(ctx context.Context) ([]domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []domain.Identity
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(conversationBucket))
		if bucket == nil {
			return fmt.Errorf("conversation bucket is missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			id, err := domain.ParseIdentity(string(k))
			if err != nil {
				return fmt.Errorf("corrupt conversation key: %w", err)
			}
			ids = append(ids, id)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(conversationBucket)); err != nil {
			return fmt.Errorf("create conversation bucket: %w", err)
		}
		return nil
	})
}

func conversationKey(id domain.Identity) []byte {
	return []byte(id.String())
}
