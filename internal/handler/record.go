package handler

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"tush00nka/s3files/internal/field"
	"tush00nka/s3files/internal/model"
	"tush00nka/s3files/internal/pkg/auth"
	"tush00nka/s3files/internal/pkg/httputils"
	"tush00nka/s3files/internal/repository"
	"tush00nka/s3files/internal/service"
)

const defaultMaxUploadMemory = 32 << 20

type RecordHandler struct {
	recordService   service.RecordService
	maxUploadMemory int64
}

func NewRecordHandler(recordService service.RecordService, maxUploadMemory int64) *RecordHandler {
	if maxUploadMemory <= 0 {
		maxUploadMemory = defaultMaxUploadMemory
	}
	return &RecordHandler{recordService: recordService, maxUploadMemory: maxUploadMemory}
}

func (h *RecordHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/records", h.createRecord).Methods("POST", "OPTIONS")
	router.HandleFunc("/records/{id:[0-9]+}", h.getRecord).Methods("GET", "OPTIONS")
	router.HandleFunc("/records/{id:[0-9]+}", h.deleteRecord).Methods("DELETE", "OPTIONS")
	router.HandleFunc("/records/{id:[0-9]+}/uploads/last", h.lastUploadReport).Methods("GET", "OPTIONS")
	router.HandleFunc("/records/{id:[0-9]+}/{field}", h.fieldSummary).Methods("GET", "OPTIONS")
	router.HandleFunc("/records/{id:[0-9]+}/{field}", h.updateAttachments).Methods("POST", "OPTIONS")
	router.HandleFunc("/records/{id:[0-9]+}/{field}/{attachment}/link", h.attachmentLink).Methods("GET", "OPTIONS")
}

type createRecordRequest struct {
	Title string `json:"title"`
}

// @Summary Create record
// @Tags records
// @Accept json
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Param data body createRecordRequest true "Record data"
// @Success 201 {object} model.Record
// @Failure 400 {object} httputils.ErrorResponse
// @Failure 401 {object} httputils.ErrorResponse
// @Router /records [post]
func (h *RecordHandler) createRecord(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var request createRecordRequest
	if err := httputils.DecodeJSON(w, r, &request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	record := &model.Record{Title: request.Title}
	record.SetActor(userID)
	if err := h.recordService.CreateRecord(r.Context(), record); err != nil {
		httputils.ResponseError(w, http.StatusInternalServerError, "failed to create record")
		return
	}

	httputils.ResponseJSON(w, http.StatusCreated, record)
}

// @Summary Get record
// @Tags records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} model.Record
// @Failure 404 {object} httputils.ErrorResponse
// @Router /records/{id} [get]
func (h *RecordHandler) getRecord(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordIDFromPath(w, r)
	if !ok {
		return
	}

	record, err := h.recordService.GetRecord(r.Context(), recordID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, record)
}

// @Summary Delete record
// @Tags records
// @Param Bearer header string true "Auth Token"
// @Param id path int true "Record ID"
// @Success 204
// @Failure 401 {object} httputils.ErrorResponse
// @Failure 404 {object} httputils.ErrorResponse
// @Router /records/{id} [delete]
func (h *RecordHandler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserFromRequest(r); err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	recordID, ok := recordIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.recordService.DeleteRecord(r.Context(), recordID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateAttachmentsResponse struct {
	Record   *model.Record         `json:"record"`
	Uploaded model.AttachmentList  `json:"uploaded"`
	Failures []model.UploadFailure `json:"failures"`
}

// @Summary Update attachment field
// @Description Multipart form: <field>_order, <field>_action ("delete:id1,id2|reset:id3"), files in <field>_upload
// @Tags records
// @Accept mpfd
// @Produce json
// @Param Bearer header string true "Auth Token"
// @Param id path int true "Record ID"
// @Param field path string true "Field path"
// @Success 200 {object} updateAttachmentsResponse
// @Failure 400 {object} httputils.ErrorResponse
// @Failure 401 {object} httputils.ErrorResponse
// @Failure 404 {object} httputils.ErrorResponse
// @Router /records/{id}/{field} [post]
func (h *RecordHandler) updateAttachments(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	recordID, ok := recordIDFromPath(w, r)
	if !ok {
		return
	}
	fieldPath := mux.Vars(r)["field"]

	if err := r.ParseMultipartForm(h.maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		httputils.ResponseError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	payload := field.Payload{
		Order:  r.FormValue(fieldPath + "_order"),
		Action: r.FormValue(fieldPath + "_action"),
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File[fieldPath+"_upload"]
	}
	for _, fh := range files {
		upload, err := spoolUpload(fh)
		if err != nil {
			log.Printf("failed to spool upload %s: %v", fh.Filename, err)
			httputils.ResponseError(w, http.StatusInternalServerError, "failed to read uploaded file")
			cleanupUploads(payload.Files)
			return
		}
		payload.Files = append(payload.Files, upload)
	}
	defer cleanupUploads(payload.Files)

	result, err := h.recordService.UpdateAttachments(r.Context(), service.UpdateAttachmentsRequest{
		RecordID:  recordID,
		FieldPath: fieldPath,
		ActorID:   userID,
		Payload:   payload,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, updateAttachmentsResponse{
		Record:   result.Record,
		Uploaded: result.Report.Uploaded,
		Failures: result.Report.Failures,
	})
}

// @Summary Field summary
// @Tags records
// @Produce json
// @Param id path int true "Record ID"
// @Param field path string true "Field path"
// @Success 200 {object} service.FieldSummary
// @Failure 404 {object} httputils.ErrorResponse
// @Router /records/{id}/{field} [get]
func (h *RecordHandler) fieldSummary(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordIDFromPath(w, r)
	if !ok {
		return
	}

	summary, err := h.recordService.FieldSummary(r.Context(), recordID, mux.Vars(r)["field"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, summary)
}

type linkResponse struct {
	URL string `json:"url"`
}

// @Summary Attachment link
// @Description Public link of an attachment, or a presigned one with presign=1
// @Tags records
// @Produce json
// @Param id path int true "Record ID"
// @Param field path string true "Field path"
// @Param attachment path string true "Attachment ID"
// @Param presign query bool false "Presigned URL"
// @Success 200 {object} linkResponse
// @Failure 404 {object} httputils.ErrorResponse
// @Router /records/{id}/{field}/{attachment}/link [get]
func (h *RecordHandler) attachmentLink(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordIDFromPath(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	presign, _ := strconv.ParseBool(r.URL.Query().Get("presign"))

	link, err := h.recordService.AttachmentLink(r.Context(), recordID, vars["field"], vars["attachment"], presign)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, linkResponse{URL: link})
}

// @Summary Last upload report
// @Tags records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} model.UploadReport
// @Failure 404 {object} httputils.ErrorResponse
// @Router /records/{id}/uploads/last [get]
func (h *RecordHandler) lastUploadReport(w http.ResponseWriter, r *http.Request) {
	recordID, ok := recordIDFromPath(w, r)
	if !ok {
		return
	}

	report, err := h.recordService.LastUploadReport(r.Context(), recordID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, report)
}

func recordIDFromPath(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		httputils.ResponseError(w, http.StatusBadRequest, "failed to parse record ID")
		return 0, false
	}
	return uint(id), true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrRecordNotFound),
		errors.Is(err, repository.ErrReportNotFound),
		errors.Is(err, service.ErrAttachmentNotFound),
		errors.Is(err, service.ErrUnknownField):
		httputils.ResponseError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPresignUnsupported):
		httputils.ResponseError(w, http.StatusNotImplemented, err.Error())
	default:
		log.Printf("request failed: %v", err)
		httputils.ResponseError(w, http.StatusInternalServerError, "internal error")
	}
}

// spoolUpload копирует загруженный файл во временный файл на диске
func spoolUpload(fh *multipart.FileHeader) (field.UploadRequest, error) {
	src, err := fh.Open()
	if err != nil {
		return field.UploadRequest{}, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*")
	if err != nil {
		return field.UploadRequest{}, err
	}
	defer tmp.Close()

	size, err := io.Copy(tmp, src)
	if err != nil {
		os.Remove(tmp.Name())
		return field.UploadRequest{}, err
	}

	return field.UploadRequest{
		SourcePath: tmp.Name(),
		Name:       fh.Filename,
		MimeType:   fh.Header.Get("Content-Type"),
		Size:       size,
	}, nil
}

func cleanupUploads(files []field.UploadRequest) {
	for _, f := range files {
		if err := os.Remove(f.SourcePath); err != nil && !os.IsNotExist(err) {
			log.Printf("failed to remove temp file %s: %v", f.SourcePath, err)
		}
	}
}
