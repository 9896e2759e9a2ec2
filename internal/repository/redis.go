package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tush00nka/s3files/internal/model"
)

var ErrReportNotFound = errors.New("upload report not found")

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}

// UploadReportRepository хранит итог последней пачки загрузок по записи
type UploadReportRepository interface {
	SaveReport(ctx context.Context, report model.UploadReport, ttl time.Duration) error
	GetLastReport(ctx context.Context, recordID uint) (*model.UploadReport, error)
	ClearReports(ctx context.Context, recordID uint) error
}

type uploadReportRepository struct {
	rdb *redis.Client
}

func NewUploadReportRepository(rdb *redis.Client) UploadReportRepository {
	return &uploadReportRepository{rdb: rdb}
}

func (r *uploadReportRepository) reportKey(recordID uint) string {
	return fmt.Sprintf("record:%d:upload_report", recordID)
}

func (r *uploadReportRepository) SaveReport(ctx context.Context, report model.UploadReport, ttl time.Duration) error {
	if report.RecordID == 0 {
		return fmt.Errorf("recordID cannot be zero")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal upload report: %w", err)
	}

	return r.rdb.Set(ctx, r.reportKey(report.RecordID), data, ttl).Err()
}

func (r *uploadReportRepository) GetLastReport(ctx context.Context, recordID uint) (*model.UploadReport, error) {
	data, err := r.rdb.Get(ctx, r.reportKey(recordID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	var report model.UploadReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal upload report: %w", err)
	}

	return &report, nil
}

func (r *uploadReportRepository) ClearReports(ctx context.Context, recordID uint) error {
	return r.rdb.Del(ctx, r.reportKey(recordID)).Err()
}
