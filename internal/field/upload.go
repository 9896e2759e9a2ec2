package field

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tush00nka/s3files/internal/model"
)

const (
	uploadOperation    = "upload"
	defaultContentType = "application/octet-stream"
)

var urlScheme = regexp.MustCompile(`(?i)^https?:`)

// UploadRequest is one file of an upload batch, already spooled to disk.
type UploadRequest struct {
	SourcePath string
	Name       string
	MimeType   string
	Size       int64
}

// UploadContext is shared by the hooks and the transfer of a single file.
// Pre hooks may change Filename and Headers; Attachment is set once the
// transfer succeeds.
type UploadContext struct {
	Entity      Entity
	Request     UploadRequest
	Filename    string
	ContentType string
	Headers     http.Header
	Attachment  *model.Attachment
}

// UploadOutcome is the settled result of one file. Attachment is set whenever
// the object was stored, even if a post hook then failed and Err is set too.
type UploadOutcome struct {
	Request    UploadRequest
	Attachment *model.Attachment
	Err        error
}

// BatchResult keeps one outcome per input file, in input order.
type BatchResult struct {
	Outcomes []UploadOutcome
}

// Attachments returns the produced attachments in input order.
func (r BatchResult) Attachments() model.AttachmentList {
	var out model.AttachmentList
	for _, o := range r.Outcomes {
		if o.Attachment != nil {
			out = append(out, *o.Attachment)
		}
	}
	return out
}

func (r BatchResult) Failures() []model.UploadFailure {
	var out []model.UploadFailure
	for i, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, model.UploadFailure{Index: i, Filename: o.Request.Name, Error: o.Err.Error()})
		}
	}
	return out
}

// Err joins per-file errors. It is meant for reporting; the batch itself
// never fails as a whole.
func (r BatchResult) Err() error {
	var errs []error
	for i, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("file %d (%s): %w", i, o.Request.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}

// UploadFiles transfers files concurrently and calls done exactly once, after
// every file has settled. When appendToEntity is set, each produced attachment
// is appended to the entity's list.
func (f *Field) UploadFiles(ctx context.Context, entity Entity, files []UploadRequest, appendToEntity bool, done func(BatchResult)) {
	f.hooks.Seal()
	go func() {
		result := f.Upload(ctx, entity, files, appendToEntity)
		if done != nil {
			done(result)
		}
	}()
}

// Upload is the blocking form of UploadFiles.
func (f *Field) Upload(ctx context.Context, entity Entity, files []UploadRequest, appendToEntity bool) BatchResult {
	f.hooks.Seal()

	result := BatchResult{Outcomes: make([]UploadOutcome, len(files))}
	var mu sync.Mutex

	var g errgroup.Group
	if f.cfg.MaxConcurrency > 0 {
		g.SetLimit(f.cfg.MaxConcurrency)
	}

	for i, file := range files {
		g.Go(func() error {
			att, err := f.uploadFile(ctx, entity, file)
			result.Outcomes[i] = UploadOutcome{Request: file, Attachment: att, Err: err}
			if err != nil {
				log.Printf("⚠️ upload of %s to field %s failed: %v", file.Name, f.path, err)
			}

			if att != nil && appendToEntity {
				mu.Lock()
				entity.SetAttachments(f.path, append(entity.Attachments(f.path), *att))
				mu.Unlock()
			}
			// per-file failures live in the outcome, the group must not cancel siblings
			return nil
		})
	}
	_ = g.Wait()

	return result
}

func (f *Field) uploadFile(ctx context.Context, entity Entity, file UploadRequest) (*model.Attachment, error) {
	start := f.now()

	contentType := f.contentType(file)
	if !f.allowsType(contentType) {
		err := &UnsupportedTypeError{ContentType: contentType}
		f.observer.RecordUpload(f.now().Sub(start), file.Size, err)
		return nil, err
	}

	headers, err := f.buildHeaders(entity, file, contentType)
	if err != nil {
		err = fmt.Errorf("failed to build upload headers: %w", err)
		f.observer.RecordUpload(f.now().Sub(start), file.Size, err)
		return nil, err
	}

	hctx := &UploadContext{
		Entity:      entity,
		Request:     file,
		Filename:    f.destinationName(entity, file.Name),
		ContentType: contentType,
		Headers:     headers,
	}

	err = f.hooks.Run(ctx, uploadOperation, hctx, f.transfer)
	f.observer.RecordUpload(f.now().Sub(start), file.Size, err)

	return hctx.Attachment, err
}

func (f *Field) transfer(ctx context.Context, hctx *UploadContext) error {
	res, err := f.client.PutObject(ctx, hctx.Request.SourcePath, f.keyPrefix()+hctx.Filename, hctx.Headers)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if res == nil {
		return fmt.Errorf("%w: storage returned no response", ErrTransferFailed)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: storage returned HTTP code %d", ErrTransferFailed, res.StatusCode)
	}

	hctx.Attachment = &model.Attachment{
		ID:       uuid.NewString(),
		Filename: hctx.Filename,
		Path:     f.keyPrefix(),
		Size:     hctx.Request.Size,
		Filetype: hctx.ContentType,
		URL:      f.normalizeURL(res.URL),
	}
	return nil
}

func (f *Field) destinationName(entity Entity, original string) string {
	name := original
	if f.cfg.DatePrefix != "" {
		name = f.now().Format(f.cfg.DatePrefix) + "-" + original
	}
	if f.cfg.Filename != nil {
		name = f.cfg.Filename(entity, name)
	}
	return name
}

func (f *Field) contentType(file UploadRequest) string {
	if ct := strings.TrimSpace(file.MimeType); ct != "" {
		return ct
	}
	if f.cfg.DetectContentType && file.SourcePath != "" {
		if mt, err := mimetype.DetectFile(file.SourcePath); err == nil {
			ct, _, _ := strings.Cut(mt.String(), ";")
			return ct
		}
	}
	return defaultContentType
}

func (f *Field) allowsType(contentType string) bool {
	if f.allowed == nil {
		return true
	}
	_, ok := f.allowed[strings.ToLower(contentType)]
	return ok
}

func (f *Field) buildHeaders(entity Entity, file UploadRequest, contentType string) (http.Header, error) {
	headers := http.Header{}
	headers.Set("Content-Type", contentType)
	headers.Set("x-amz-acl", "public-read")
	if f.cfg.NoOverwrite {
		headers.Set("If-None-Match", "*")
	}
	for name, value := range f.cfg.Headers {
		headers.Set(name, value)
	}

	if f.cfg.HeaderFunc != nil {
		extra, err := f.cfg.HeaderFunc(entity, file, contentType)
		if err != nil {
			return nil, err
		}
		for name, values := range extra {
			headers.Del(name)
			for _, v := range values {
				headers.Add(name, v)
			}
		}
	}

	return headers, nil
}

// normalizeURL swaps the scheme returned by the store for the configured
// protocol, or drops it to produce a protocol-relative URL.
func (f *Field) normalizeURL(raw string) string {
	protocol := ""
	if f.settings.Protocol != "" {
		protocol = f.settings.Protocol + ":"
	}
	return urlScheme.ReplaceAllLiteralString(raw, protocol)
}
