package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/layer-3/talkie/core"
)

const conflictRetries = 3

// BadgerStore is an embedded Store and ReplayGuard for single-node deployments
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an opened badger database
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func profileKey(tokenID int64) []byte {
	return []byte(fmt.Sprintf("profile:%d", tokenID))
}

// audio keys sort by creation time so iteration order is timeline order
func audioKey(msg core.AudioMessage) []byte {
	return []byte(fmt.Sprintf("audio:%020d:%s", msg.Timestamp.UnixNano(), msg.ID))
}

func tokenAudioPrefix(tokenID int64) []byte {
	return []byte(fmt.Sprintf("token_audio:%d:", tokenID))
}

func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		if err = s.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *BadgerStore) UpsertProfile(_ context.Context, tokenID int64, address string) error {
	err := s.update(func(txn *badger.Txn) error {
		now := time.Now().UTC()
		p, err := getProfile(txn, tokenID)
		if errors.Is(err, core.ErrNotFound) {
			p = &core.Profile{TokenID: tokenID, FirstLogin: now, LifetimeRecordings: []string{}}
		} else if err != nil {
			return err
		}
		p.WalletAddress = address
		p.LastActive = now
		return putJSON(txn, profileKey(tokenID), p)
	})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *BadgerStore) RecordAudio(_ context.Context, msg core.AudioMessage) error {
	err := s.update(func(txn *badger.Txn) error {
		key := audioKey(msg)
		if err := putJSON(txn, key, msg); err != nil {
			return err
		}
		index := append(tokenAudioPrefix(msg.TokenID), key...)
		return txn.Set(index, key)
	})
	if err != nil {
		return fmt.Errorf("record audio: %w", err)
	}
	return nil
}

func (s *BadgerStore) IncrementSent(_ context.Context, tokenID int64, messageID string) error {
	return s.modifyProfile(tokenID, func(p *core.Profile) {
		p.TotalMessagesSent++
		p.LifetimeRecordings = append(p.LifetimeRecordings, messageID)
		p.LastActive = time.Now().UTC()
	})
}

func (s *BadgerStore) TouchLastActive(_ context.Context, tokenID int64) error {
	return s.modifyProfile(tokenID, func(p *core.Profile) {
		p.LastActive = time.Now().UTC()
	})
}

func (s *BadgerStore) modifyProfile(tokenID int64, fn func(p *core.Profile)) error {
	err := s.update(func(txn *badger.Txn) error {
		p, err := getProfile(txn, tokenID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(p)
		return putJSON(txn, profileKey(tokenID), p)
	})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (s *BadgerStore) LatestAudio(_ context.Context) (*core.AudioMessage, error) {
	var msg *core.AudioMessage
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("audio:")
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return core.ErrNotFound
		}
		var m core.AudioMessage
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		}); err != nil {
			return err
		}
		msg = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *BadgerStore) FindProfile(_ context.Context, tokenID int64) (*core.Profile, error) {
	var p *core.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		p, err = getProfile(txn, tokenID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *BadgerStore) AudioByToken(_ context.Context, tokenID int64, limit int) ([]core.AudioMessage, error) {
	var out []core.AudioMessage
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := tokenAudioPrefix(tokenID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			key, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(key)
			if err != nil {
				return err
			}
			var m core.AudioMessage
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &m) }); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audio by token: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) CountProfiles(_ context.Context) (int64, error) {
	return s.count([]byte("profile:"))
}

func (s *BadgerStore) CountAudio(_ context.Context) (int64, error) {
	return s.count([]byte("audio:"))
}

func (s *BadgerStore) count(prefix []byte) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

// MarkUsed stores key with a badger TTL
func (s *BadgerStore) MarkUsed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	fresh := false
	err := s.update(func(txn *badger.Txn) error {
		k := []byte("challenge:" + key)
		_, err := txn.Get(k)
		if err == nil {
			fresh = false
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		fresh = true
		return txn.SetEntry(badger.NewEntry(k, []byte{1}).WithTTL(ttl))
	})
	if err != nil {
		return false, fmt.Errorf("mark challenge: %w", err)
	}
	return fresh, nil
}

func getProfile(txn *badger.Txn, tokenID int64) (*core.Profile, error) {
	item, err := txn.Get(profileKey(tokenID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p core.Profile
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &p) }); err != nil {
		return nil, err
	}
	return &p, nil
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}
