package app

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"tush00nka/s3files/internal/config"
	"tush00nka/s3files/internal/field"
	"tush00nka/s3files/internal/handler"
	"tush00nka/s3files/internal/pkg/metrics"
	"tush00nka/s3files/internal/repository"
	"tush00nka/s3files/internal/service"
	"tush00nka/s3files/internal/storage"
	"tush00nka/s3files/internal/ws"
)

// StorageSettings собирает настройки S3 по умолчанию для всех полей
func StorageSettings(cfg *config.Config) *storage.Settings {
	return &storage.Settings{
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3BucketName,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		Protocol:        cfg.S3Protocol,
	}
}

// S3ClientFactory создает клиент хранилища для поля
func S3ClientFactory(settings storage.Settings) (field.ObjectStorage, error) {
	return storage.NewS3Client(settings)
}

// FieldConfig описывает поле вложений записи из настроек приложения
func FieldConfig(cfg *config.Config, observer field.Observer) field.Config {
	return field.Config{
		S3Path:            cfg.AttachmentsPath,
		DatePrefix:        cfg.AttachmentsDatePrefix,
		AllowedTypes:      cfg.AllowedTypes(),
		NoOverwrite:       !cfg.AttachmentsOverwrite,
		Prefix:            cfg.AttachmentsPrefix,
		DetectContentType: true,
		MaxConcurrency:    cfg.MaxUploadConcurrency,
		Headers: map[string]string{
			"Cache-Control": "max-age=31536000",
		},
		Observer: observer,
	}
}

type dbChecker struct {
	db *gorm.DB
}

func (c dbChecker) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(cfg.DSN())
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}

	rdb, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	observer, err := metrics.NewStorageObserver("attachments", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	defaults := StorageSettings(cfg)
	attachments, err := field.New(cfg.AttachmentsField, FieldConfig(cfg, observer), defaults, S3ClientFactory)
	if err != nil {
		return fmt.Errorf("failed to configure attachment field: %w", err)
	}
	log.Printf("📎 Attachment field %q stores objects in %s/%s", attachments.Path(), defaults.Bucket, cfg.AttachmentsPath)

	hub := ws.NewHub()
	defer hub.Shutdown()

	recordRepo := repository.NewRecordRepository(db)
	reportRepo := repository.NewUploadReportRepository(rdb)
	recordService := service.NewRecordService(recordRepo, reportRepo, []*field.Field{attachments}, service.Options{
		Notifier:   hub,
		ReportTTL:  cfg.UploadReportTTL,
		PresignTTL: cfg.PresignTTL,
	})

	recordHandler := handler.NewRecordHandler(recordService, cfg.MaxUploadMemory)
	origins := cfg.AllowedOrigins()
	wsHandler := handler.NewWSHandler(hub, ws.NewUpgrader(origins, len(origins) == 0))

	checkers := []handler.HealthChecker{dbChecker{db: db}}
	if s3Client, ok := attachments.Storage().(handler.HealthChecker); ok {
		checkers = append(checkers, s3Client)
	}

	server := NewServer(recordHandler, wsHandler, checkers...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Migrate применяет миграции схемы и завершает работу
func Migrate(cfg *config.Config) error {
	db, err := repository.NewDB(cfg.DSN())
	if err != nil {
		return err
	}
	return repository.Migrate(db)
}
