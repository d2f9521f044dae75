package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/3leaps/lingoflow/pkg/intake"
)

// maxUploadBytes bounds the multipart body read. Slightly above the intake
// payload ceiling so oversize documents reach the service and get a proper
// validation error instead of a truncated read.
const maxUploadBytes = 6 << 20

// maxJSONUploadBytes bounds JSON bodies, which carry the payload
// base64-encoded: a ceiling-sized document inflates by 4/3 on the wire, plus
// the envelope fields.
const maxJSONUploadBytes = 8 << 20

// DocumentsHandler serves document submission and presigned direct uploads.
type DocumentsHandler struct {
	intake *intake.Service
}

// NewDocumentsHandler creates the handler.
func NewDocumentsHandler(svc *intake.Service) *DocumentsHandler {
	return &DocumentsHandler{intake: svc}
}

// submitResponse is returned for async submissions.
type submitResponse struct {
	RequestID string `json:"request_id"`
	Key       string `json:"key"`
	Status    string `json:"status"`
}

// jsonSubmitRequest is the JSON submission body. Content is base64-encoded
// in the wire JSON and decoded by encoding/json.
type jsonSubmitRequest struct {
	Filename       string `json:"filename"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language"`
	Content        []byte `json:"content"`
}

// Submit accepts a document either as multipart/form-data with a "document"
// file field and optional "target_language" and "source_language" fields, or
// as a JSON body carrying the payload base64-encoded in "content".
//
// Small text and HTML documents are translated inline and returned as the
// response body; everything else is accepted with 202 and a request id to
// poll.
func (h *DocumentsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	limit := int64(maxUploadBytes)
	if isJSONRequest(r) {
		limit = maxJSONUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	req, err := decodeSubmitRequest(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	result, err := h.intake.Submit(r.Context(), *req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if result.Translated != nil {
		w.Header().Set("Content-Type", result.ContentType)
		w.Header().Set("X-Translation-Mode", "sync")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Translated)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(submitResponse{
		RequestID: result.RequestID,
		Key:       result.Key,
		Status:    "processing",
	})
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// decodeSubmitRequest reads a submission from either supported body format.
func decodeSubmitRequest(r *http.Request) (*intake.Request, error) {
	if isJSONRequest(r) {
		var req jsonSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, &intake.ValidationError{Reason: "invalid JSON body"}
		}
		return &intake.Request{
			Filename:       req.Filename,
			TargetLanguage: req.TargetLanguage,
			SourceLanguage: req.SourceLanguage,
			Content:        req.Content,
		}, nil
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		return nil, &intake.ValidationError{
			Reason: "multipart field \"document\" is required",
		}
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return &intake.Request{
		Filename:       header.Filename,
		TargetLanguage: r.FormValue("target_language"),
		SourceLanguage: r.FormValue("source_language"),
		Content:        content,
	}, nil
}

// presignRequest is the JSON body for direct-upload requests.
type presignRequest struct {
	Filename       string `json:"filename"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language"`
}

// presignResponse carries the upload reference back to the client.
type presignResponse struct {
	RequestID string `json:"request_id"`
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
}

// Presign issues a presigned direct-upload URL for documents too large to
// post through the API.
func (h *DocumentsHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, &intake.ValidationError{Reason: "invalid JSON body"})
		return
	}

	result, err := h.intake.PresignUpload(r.Context(), intake.PresignRequest{
		Filename:       req.Filename,
		TargetLanguage: req.TargetLanguage,
		SourceLanguage: req.SourceLanguage,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(presignResponse{
		RequestID: result.RequestID,
		Key:       result.Key,
		UploadURL: result.UploadURL,
	})
}
