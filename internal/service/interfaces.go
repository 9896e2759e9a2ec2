package service

import (
	"context"
	"time"

	"tush00nka/s3files/internal/field"
	"tush00nka/s3files/internal/model"
)

type RecordService interface {
	CreateRecord(ctx context.Context, record *model.Record) error
	GetRecord(ctx context.Context, id uint) (*model.Record, error)
	DeleteRecord(ctx context.Context, id uint) error
	UpdateAttachments(ctx context.Context, req UpdateAttachmentsRequest) (*UpdateAttachmentsResult, error)
	AttachmentLink(ctx context.Context, recordID uint, fieldPath, attachmentID string, presign bool) (string, error)
	LastUploadReport(ctx context.Context, recordID uint) (*model.UploadReport, error)
	FieldSummary(ctx context.Context, recordID uint, fieldPath string) (*FieldSummary, error)
}

// RecordNotifier рассылает изменения записи подписчикам
type RecordNotifier interface {
	RecordUpdated(recordID uint, payload any)
}

// Presigner выдает временные ссылки на объекты
type Presigner interface {
	PresignGetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

type UpdateAttachmentsRequest struct {
	RecordID  uint
	FieldPath string
	ActorID   uint
	Payload   field.Payload
}

type UpdateAttachmentsResult struct {
	Record *model.Record
	Report model.UploadReport
}

type FieldSummary struct {
	Summary string   `json:"summary"`
	Items   []string `json:"items"`
	Links   []string `json:"links"`
}
