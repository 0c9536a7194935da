package gorm

import (
	"errors"
	"time"

	"github.com/ichigozero/gtdkit/tasker/storage"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one persisted collection, stored whole.
type Document struct {
	Kind      string `gorm:"primaryKey"`
	Body      []byte
	UpdatedAt time.Time
}

type documentStore struct {
	db *libgorm.DB
}

// NewDocumentStore migrates the documents table and returns a Store over it.
func NewDocumentStore(db *libgorm.DB) (storage.Store, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, err
	}
	return &documentStore{db}, nil
}

func (d documentStore) Load(kind storage.Kind) ([]byte, error) {
	var doc Document
	result := d.db.Where("kind = ?", string(kind)).First(&doc)
	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	if doc.Body == nil {
		return []byte{}, nil
	}
	return doc.Body, nil
}

func (d documentStore) Save(kind storage.Kind, data []byte) error {
	return d.db.Transaction(func(tx *libgorm.DB) error {
		doc := Document{Kind: string(kind), Body: data, UpdatedAt: time.Now()}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).Create(&doc).Error
	})
}
