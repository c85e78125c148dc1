package models

import (
	"context"
	"errors"
	"time"

	"github.com/nimbuscrm/crm_backend/config"
	"github.com/nimbuscrm/crm_backend/utils"
	"gorm.io/gorm"
)

// Document is a file attachment on a ledger document, stored in cloud storage
// and referenced by object key.
type Document struct {
	ID            int           `gorm:"primary_key" json:"id"`
	ClientId      string        `gorm:"type:char(36);index;not null" json:"client_id"`
	ReferenceType ReferenceType `gorm:"size:50;index" json:"reference_type"`
	ReferenceID   int           `gorm:"index" json:"reference_id"`
	ObjectKey     string        `gorm:"size:500;not null" json:"object_key"`
	FileName      string        `gorm:"size:255" json:"file_name"`
	ContentType   string        `gorm:"size:100" json:"content_type"`
	SizeBytes     int64         `json:"size_bytes"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// URL resolves the attachment's public access URL from its object key.
func (d *Document) URL() (string, error) {
	return utils.ObjectAccessURL(d.ObjectKey)
}

func CreateDocument(tx *gorm.DB, ctx context.Context, doc *Document) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return errors.New("client id is required")
	}
	doc.ClientId = clientId
	return tx.WithContext(ctx).Create(doc).Error
}

func GetDocuments(ctx context.Context, refType ReferenceType, refId int) ([]*Document, error) {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return nil, errors.New("client id is required")
	}

	db := config.GetDB()
	var results []*Document
	if err := db.WithContext(ctx).
		Where("client_id = ? AND reference_type = ? AND reference_id = ?", clientId, refType, refId).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteDocument(ctx context.Context, id int) error {
	clientId, ok := utils.GetClientIdFromContext(ctx)
	if !ok || clientId == "" {
		return errors.New("client id is required")
	}

	doc, err := utils.FetchModel[Document](ctx, clientId, id)
	if err != nil {
		return err
	}

	db := config.GetDB()
	return db.WithContext(ctx).Delete(doc).Error
}
