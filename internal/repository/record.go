package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tush00nka/s3files/internal/model"
)

var ErrRecordNotFound = errors.New("record not found")

type RecordRepository interface {
	Create(ctx context.Context, record *model.Record) error
	FindByID(ctx context.Context, id uint) (*model.Record, error)
	Update(ctx context.Context, record *model.Record) error
	Delete(ctx context.Context, id uint) error
}

type recordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) Create(ctx context.Context, record *model.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *recordRepository) FindByID(ctx context.Context, id uint) (*model.Record, error) {
	var record model.Record
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *recordRepository) Update(ctx context.Context, record *model.Record) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *recordRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.Record{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
