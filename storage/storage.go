package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names one of the persisted documents.
type Kind string

const (
	KindUsers Kind = "users"
	KindTasks Kind = "tasks"
)

// Store is the durable backing for the user and task documents.
//
// Load returns nil data and a nil error when the document has never been
// written, and non-nil data (possibly empty) otherwise. Save replaces the whole document; implementations either apply
// the new contents completely or leave the previous contents in place.
type Store interface {
	Load(kind Kind) ([]byte, error)
	Save(kind Kind, data []byte) error
}

var ErrStorageFailure = errors.New("storage failure")

// LoadJSON decodes the document of the given kind into v. v is left
// untouched when the document does not exist yet; a document that exists
// but is empty fails to decode.
func LoadJSON(s Store, kind Kind, v interface{}) error {
	data, err := s.Load(kind)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", ErrStorageFailure, kind, err)
	}
	if data == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrStorageFailure, kind, err)
	}
	return nil
}

// SaveJSON encodes v and replaces the document of the given kind.
func SaveJSON(s Store, kind Kind, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorageFailure, kind, err)
	}
	if err := s.Save(kind, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrStorageFailure, kind, err)
	}
	return nil
}
