package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tush00nka/s3files/internal/field"
	"tush00nka/s3files/internal/model"
	"tush00nka/s3files/internal/repository"
)

var (
	ErrUnknownField       = errors.New("unknown attachment field")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrPresignUnsupported = errors.New("storage does not support presigned links")
)

type Options struct {
	Notifier   RecordNotifier
	ReportTTL  time.Duration
	PresignTTL time.Duration
}

// recordService реализация RecordService
type recordService struct {
	recordRepo repository.RecordRepository
	reportRepo repository.UploadReportRepository
	fields     map[string]*field.Field
	notifier   RecordNotifier
	reportTTL  time.Duration
	presignTTL time.Duration
}

// NewRecordService создает сервис записей с набором полей-вложений
func NewRecordService(
	recordRepo repository.RecordRepository,
	reportRepo repository.UploadReportRepository,
	fields []*field.Field,
	opts Options,
) RecordService {
	byPath := make(map[string]*field.Field, len(fields))
	for _, f := range fields {
		byPath[f.Path()] = f
	}

	if opts.ReportTTL <= 0 {
		opts.ReportTTL = 24 * time.Hour
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}

	return &recordService{
		recordRepo: recordRepo,
		reportRepo: reportRepo,
		fields:     byPath,
		notifier:   opts.Notifier,
		reportTTL:  opts.ReportTTL,
		presignTTL: opts.PresignTTL,
	}
}

func (s *recordService) CreateRecord(ctx context.Context, record *model.Record) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	return s.recordRepo.Create(ctx, record)
}

func (s *recordService) GetRecord(ctx context.Context, id uint) (*model.Record, error) {
	if id == 0 {
		return nil, errors.New("invalid record ID")
	}
	return s.recordRepo.FindByID(ctx, id)
}

// DeleteRecord удаляет запись; объекты в S3 удаляются по возможности
func (s *recordService) DeleteRecord(ctx context.Context, id uint) error {
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	if err := s.recordRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	// строка уже удалена, объекты чистим после нее
	for _, f := range s.fields {
		for _, att := range record.Attachments(f.Path()) {
			f.Delete(ctx, record, att.ID)
		}
	}

	if s.reportRepo != nil {
		if err := s.reportRepo.ClearReports(ctx, id); err != nil {
			log.Printf("failed to clear upload report of record %d: %v", id, err)
		}
	}
	return nil
}

// UpdateAttachments применяет одно обновление поля: сортировка, удаления,
// загрузки. Ошибки отдельных файлов попадают в отчет, а не в err.
func (s *recordService) UpdateAttachments(ctx context.Context, req UpdateAttachmentsRequest) (*UpdateAttachmentsResult, error) {
	f, ok := s.fields[req.FieldPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, req.FieldPath)
	}

	record, err := s.GetRecord(ctx, req.RecordID)
	if err != nil {
		return nil, err
	}
	record.SetActor(req.ActorID)

	batch := f.ApplyRequest(ctx, record, req.Payload)
	report := model.UploadReport{
		RecordID:   record.ID,
		Field:      f.Path(),
		Uploaded:   batch.Attachments(),
		Failures:   batch.Failures(),
		FinishedAt: time.Now(),
	}

	if f.IsModified(record) {
		if err := s.recordRepo.Update(ctx, record); err != nil {
			// объекты уже в S3, но метаданные не сохранились
			log.Printf("failed to save record %d after upload of %d files: %v", record.ID, len(report.Uploaded), err)
			return nil, fmt.Errorf("failed to save record: %w", err)
		}
	}

	if len(batch.Outcomes) > 0 && s.reportRepo != nil {
		if err := s.reportRepo.SaveReport(ctx, report, s.reportTTL); err != nil {
			log.Printf("failed to save upload report of record %d: %v", record.ID, err)
		}
	}

	if s.notifier != nil {
		s.notifier.RecordUpdated(record.ID, record)
	}

	return &UpdateAttachmentsResult{Record: record, Report: report}, nil
}

func (s *recordService) AttachmentLink(ctx context.Context, recordID uint, fieldPath, attachmentID string, presign bool) (string, error) {
	f, ok := s.fields[fieldPath]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, fieldPath)
	}

	record, err := s.GetRecord(ctx, recordID)
	if err != nil {
		return "", err
	}

	att, ok := record.Attachments(fieldPath).Find(attachmentID)
	if !ok {
		return "", ErrAttachmentNotFound
	}

	if !presign {
		return f.Href(att), nil
	}

	presigner, ok := f.Storage().(Presigner)
	if !ok {
		return "", ErrPresignUnsupported
	}
	return presigner.PresignGetURL(ctx, att.Key(), s.presignTTL)
}

func (s *recordService) LastUploadReport(ctx context.Context, recordID uint) (*model.UploadReport, error) {
	if s.reportRepo == nil {
		return nil, repository.ErrReportNotFound
	}
	return s.reportRepo.GetLastReport(ctx, recordID)
}

func (s *recordService) FieldSummary(ctx context.Context, recordID uint, fieldPath string) (*FieldSummary, error) {
	f, ok := s.fields[fieldPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, fieldPath)
	}

	record, err := s.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	list := record.Attachments(fieldPath)
	summary := &FieldSummary{
		Summary: f.Summary(record),
		Items:   make([]string, 0, len(list)),
		Links:   make([]string, 0, len(list)),
	}
	for i, att := range list {
		summary.Items = append(summary.Items, f.FormatItem(record, i))
		summary.Links = append(summary.Links, f.Href(att))
	}
	return summary, nil
}
