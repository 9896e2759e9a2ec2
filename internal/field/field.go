// Package field implements a multi-valued S3 attachment field: an ordered
// list of file metadata kept on a parent record while the bytes live in an
// object store.
package field

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tush00nka/s3files/internal/model"
	"tush00nka/s3files/internal/storage"
)

// Entity is the parent record owning the attachment field.
type Entity interface {
	Attachments(path string) model.AttachmentList
	SetAttachments(path string, list model.AttachmentList)
	IsModified(path string) bool
}

// ObjectStorage is the remote object store the field transfers files to.
type ObjectStorage interface {
	PutObject(ctx context.Context, sourcePath, key string, headers http.Header) (*storage.PutResult, error)
	DeleteObject(ctx context.Context, key string) error
}

// ClientFactory builds the storage client once the settings are resolved.
type ClientFactory func(settings storage.Settings) (ObjectStorage, error)

// Observer receives timing and outcome of storage operations.
type Observer interface {
	RecordUpload(duration time.Duration, sizeBytes int64, err error)
	RecordDelete(duration time.Duration, err error)
}

type (
	FilenameFunc func(entity Entity, name string) string
	HeaderFunc   func(entity Entity, req UploadRequest, contentType string) (http.Header, error)
	FormatFunc   func(entity Entity, att model.Attachment, href string) string
	UploadHook   = Hook[*UploadContext]
)

// Config describes one field instance.
type Config struct {
	// Storage overrides the process-wide storage settings for this field.
	Storage *storage.Settings

	// S3Path is prepended to every object key ("<S3Path>/<filename>").
	S3Path string
	// DatePrefix is a time layout; when set, names become "<date>-<name>".
	DatePrefix   string
	AllowedTypes []string
	Filename     FilenameFunc

	// Headers are sent with every upload; HeaderFunc can extend or replace them.
	Headers    map[string]string
	HeaderFunc HeaderFunc

	// NoOverwrite makes uploads fail instead of replacing an existing object.
	NoOverwrite bool

	// Prefix is the public base used by Href instead of the stored URL.
	Prefix string
	Format FormatFunc

	DetectContentType bool
	// MaxConcurrency limits parallel transfers within a batch, 0 means unlimited.
	MaxConcurrency int

	PreUpload  []UploadHook
	PostUpload []UploadHook

	Observer Observer
	Now      func() time.Time
}

type Field struct {
	path     string
	cfg      Config
	settings storage.Settings
	client   ObjectStorage
	hooks    *HookChain[*UploadContext]
	allowed  map[string]struct{}
	observer Observer
	now      func() time.Time
}

// New resolves storage settings (field override, else defaults) and builds the
// field. Any configuration problem is returned immediately.
func New(path string, cfg Config, defaults *storage.Settings, factory ClientFactory) (*Field, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: field path is required", ErrInvalidConfiguration)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: field %s has no storage client factory", ErrInvalidConfiguration, path)
	}

	settings := cfg.Storage
	if settings == nil {
		settings = defaults
	}
	if settings == nil {
		return nil, fmt.Errorf("%w: field %s requires S3 settings", ErrInvalidConfiguration, path)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: field %s: %w", ErrInvalidConfiguration, path, err)
	}
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("%w: field %s: negative max concurrency", ErrInvalidConfiguration, path)
	}

	client, err := factory(*settings)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %w", ErrInvalidConfiguration, path, err)
	}

	f := &Field{
		path:     path,
		cfg:      cfg,
		settings: *settings,
		client:   client,
		hooks:    NewHookChain[*UploadContext](),
		observer: cfg.Observer,
		now:      cfg.Now,
	}
	if f.observer == nil {
		f.observer = nopObserver{}
	}
	if f.now == nil {
		f.now = time.Now
	}
	if len(cfg.AllowedTypes) > 0 {
		f.allowed = make(map[string]struct{}, len(cfg.AllowedTypes))
		for _, t := range cfg.AllowedTypes {
			f.allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
		}
	}

	for _, hook := range cfg.PreUpload {
		if err := f.RegisterHook(prePrefix+uploadOperation, hook); err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", ErrInvalidConfiguration, path, err)
		}
	}
	for _, hook := range cfg.PostUpload {
		if err := f.RegisterHook(postPrefix+uploadOperation, hook); err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", ErrInvalidConfiguration, path, err)
		}
	}

	return f, nil
}

func (f *Field) Path() string {
	return f.path
}

func (f *Field) Settings() storage.Settings {
	return f.settings
}

func (f *Field) Storage() ObjectStorage {
	return f.client
}

// RegisterHook adds a handler for phase. Handlers run in registration order.
// Registration is closed once the field has handled its first upload.
func (f *Field) RegisterHook(phase string, hook UploadHook) error {
	return f.hooks.Register(phase, hook)
}

// IsModified reports whether the field's list changed on entity.
func (f *Field) IsModified(entity Entity) bool {
	return entity.IsModified(f.path)
}

func (f *Field) keyPrefix() string {
	if f.cfg.S3Path == "" {
		return ""
	}
	return strings.TrimSuffix(f.cfg.S3Path, "/") + "/"
}

type nopObserver struct{}

func (nopObserver) RecordUpload(time.Duration, int64, error) {}

func (nopObserver) RecordDelete(time.Duration, error) {}
