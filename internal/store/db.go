package store

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// Open opens the embedded BadgerDB store at the given directory.
// The store holds the context records and the per-context message log.
func Open(dir string) (*badger.DB, error) {
	options := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	return badger.Open(options)
}
