// Package storagetest provides an in-memory storage.Store for tests.
package storagetest

import (
	"errors"
	"sync"

	"github.com/ichigozero/gtdkit/tasker/storage"
)

var ErrSaveFailed = errors.New("save failed")

// Store keeps documents in memory. Setting FailSave makes every Save fail
// without touching the stored documents.
type Store struct {
	mtx      sync.Mutex
	docs     map[storage.Kind][]byte
	FailSave bool
	Saves    int
}

func NewStore() *Store {
	return &Store{docs: map[storage.Kind][]byte{}}
}

func (s *Store) Load(kind storage.Kind) ([]byte, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	data, ok := s.docs[kind]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, data...), nil
}

func (s *Store) Save(kind storage.Kind, data []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.FailSave {
		return ErrSaveFailed
	}
	s.docs[kind] = append([]byte(nil), data...)
	s.Saves++
	return nil
}

// Put seeds a raw document.
func (s *Store) Put(kind storage.Kind, data string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.docs[kind] = []byte(data)
}

// Raw returns the stored document as a string.
func (s *Store) Raw(kind storage.Kind) string {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return string(s.docs[kind])
}
