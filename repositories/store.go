package repositories

import (
	"chat-gate/codec"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrConflict       = errors.New("transaction conflict")
	ErrDuplicatePair  = errors.New("a request already exists for this pair")
	ErrDuplicateEmail = errors.New("email already belongs to another user")
)

// Store runs typed read/write units of work against BadgerDB.
// Every write of the chat gate that must be atomic goes through a single Update.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

func NewStore(db *badger.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log}
}

// Update runs fn in a read-write transaction. A concurrent commit touching a key
// read by fn surfaces as ErrConflict and nothing is written.
func (s *Store) Update(fn func(tx *Tx) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		s.log.Debug("badger transaction conflict")
		return ErrConflict
	}
	return err
}

func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// Tx exposes the typed operations of a single badger transaction.
type Tx struct {
	txn *badger.Txn
}

func (tx *Tx) get(key []byte, out any) error {
	item, err := tx.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return codec.Unmarshal(val, out)
	})
}

func (tx *Tx) put(key []byte, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	return tx.txn.Set(key, data)
}

// mark writes an index entry whose key is the whole information.
func (tx *Tx) mark(key []byte) error {
	return tx.txn.Set(key, []byte{})
}

// keySuffixes returns what follows prefix for every key under it, in key order.
func (tx *Tx) keySuffixes(prefix string) []string {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := tx.txn.NewIterator(options)
	defer it.Close()

	var suffixes []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		suffixes = append(suffixes, string(it.Item().Key()[len(p):]))
	}
	return suffixes
}

func (tx *Tx) hasPrefix(prefix string) bool {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := tx.txn.NewIterator(options)
	defer it.Close()

	p := []byte(prefix)
	it.Seek(p)
	return it.ValidForPrefix(p)
}
