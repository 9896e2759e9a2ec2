package field

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tush00nka/s3files/internal/model"
	"tush00nka/s3files/internal/storage"
)

const testPath = "files"

var testSettings = storage.Settings{
	AccessKeyID:     "key",
	SecretAccessKey: "secret",
	Bucket:          "bucket",
	Region:          "us-east-1",
}

type putCall struct {
	SourcePath string
	Key        string
	Headers    http.Header
}

type fakeStorage struct {
	mu      sync.Mutex
	puts    []putCall
	putFn   func(ctx context.Context, sourcePath, key string) (*storage.PutResult, error)
	delErr  error
	deleted chan string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{deleted: make(chan string, 16)}
}

func (s *fakeStorage) PutObject(ctx context.Context, sourcePath, key string, headers http.Header) (*storage.PutResult, error) {
	s.mu.Lock()
	s.puts = append(s.puts, putCall{SourcePath: sourcePath, Key: key, Headers: headers.Clone()})
	fn := s.putFn
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, sourcePath, key)
	}
	return &storage.PutResult{StatusCode: http.StatusOK, URL: "https://bucket.s3.amazonaws.com/" + key}, nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	s.deleted <- key
	return s.delErr
}

func (s *fakeStorage) putCalls() []putCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]putCall(nil), s.puts...)
}

func newTestField(t *testing.T, cfg Config, store *fakeStorage) *Field {
	t.Helper()
	f, err := New(testPath, cfg, &testSettings, func(storage.Settings) (ObjectStorage, error) {
		return store, nil
	})
	require.NoError(t, err)
	return f
}

func newRecord(ids ...string) *model.Record {
	record := &model.Record{}
	list := model.AttachmentList{}
	for _, id := range ids {
		list = append(list, model.Attachment{
			ID:       id,
			Filename: id + ".txt",
			Path:     "uploads/",
			Size:     10,
			Filetype: "text/plain",
			URL:      "https://bucket.s3.amazonaws.com/uploads/" + id + ".txt",
		})
	}
	record.Fields = map[string]model.AttachmentList{testPath: list}
	return record
}
