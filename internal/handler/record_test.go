package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tush00nka/s3files/internal/model"
	"tush00nka/s3files/internal/pkg/auth"
	"tush00nka/s3files/internal/repository"
	"tush00nka/s3files/internal/service"
)

type stubRecordService struct {
	service.RecordService

	record   *model.Record
	update   service.UpdateAttachmentsRequest
	contents map[string]string
	presign  bool
	err      error
}

func (s *stubRecordService) CreateRecord(ctx context.Context, record *model.Record) error {
	s.record = record
	return s.err
}

func (s *stubRecordService) GetRecord(ctx context.Context, id uint) (*model.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubRecordService) UpdateAttachments(ctx context.Context, req service.UpdateAttachmentsRequest) (*service.UpdateAttachmentsResult, error) {
	s.update = req
	s.contents = make(map[string]string)
	for _, f := range req.Payload.Files {
		data, err := os.ReadFile(f.SourcePath)
		if err != nil {
			return nil, err
		}
		s.contents[f.Name] = string(data)
	}
	return &service.UpdateAttachmentsResult{
		Record: s.record,
		Report: model.UploadReport{RecordID: req.RecordID, Field: req.FieldPath},
	}, nil
}

func (s *stubRecordService) AttachmentLink(ctx context.Context, recordID uint, fieldPath, attachmentID string, presign bool) (string, error) {
	s.presign = presign
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.example.com/" + attachmentID, nil
}

func newTestRouter(svc service.RecordService) *mux.Router {
	router := mux.NewRouter()
	NewRecordHandler(svc, 0).RegisterRoutes(router)
	return router
}

func bearer(t *testing.T, userID uint) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func TestUpdateAttachmentsBuildsPayload(t *testing.T) {
	svc := &stubRecordService{record: &model.Record{}}
	router := newTestRouter(svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("files_order", "b,a"))
	require.NoError(t, mw.WriteField("files_action", "delete:c"))

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="files_upload"; filename="notes.txt"`)
	hdr.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/records/7/files", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Bearer", bearer(t, 42))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, uint(7), svc.update.RecordID)
	assert.Equal(t, "files", svc.update.FieldPath)
	assert.Equal(t, uint(42), svc.update.ActorID)
	assert.Equal(t, "b,a", svc.update.Payload.Order)
	assert.Equal(t, "delete:c", svc.update.Payload.Action)

	require.Len(t, svc.update.Payload.Files, 1)
	upload := svc.update.Payload.Files[0]
	assert.Equal(t, "notes.txt", upload.Name)
	assert.Equal(t, "text/plain", upload.MimeType)
	assert.Equal(t, int64(5), upload.Size)
	assert.Equal(t, "hello", svc.contents["notes.txt"])

	_, err = os.Stat(upload.SourcePath)
	assert.True(t, os.IsNotExist(err), "temp file should be removed after the request")
}

func TestCreateRecord(t *testing.T) {
	svc := &stubRecordService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest("POST", "/records", strings.NewReader(`{"title":"contract"}`))
	req.Header.Set("Bearer", bearer(t, 5))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NotNil(t, svc.record)
	assert.Equal(t, "contract", svc.record.Title)
}

func TestCreateRecordRejectsUnknownFields(t *testing.T) {
	svc := &stubRecordService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest("POST", "/records", strings.NewReader(`{"name":"contract"}`))
	req.Header.Set("Bearer", bearer(t, 5))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, svc.record)
}

func TestUpdateAttachmentsRequiresToken(t *testing.T) {
	svc := &stubRecordService{}
	router := newTestRouter(svc)

	req := httptest.NewRequest("POST", "/records/7/files", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetRecordNotFound(t *testing.T) {
	svc := &stubRecordService{err: repository.ErrRecordNotFound}
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/records/3", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAttachmentLinkPresign(t *testing.T) {
	svc := &stubRecordService{}
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/records/3/files/abc/link?presign=1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, svc.presign)

	var resp linkResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "https://cdn.example.com/abc", resp.URL)
}

func TestAttachmentLinkUnknownAttachment(t *testing.T) {
	svc := &stubRecordService{err: service.ErrAttachmentNotFound}
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/records/3/files/missing/link", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.False(t, svc.presign)
}
