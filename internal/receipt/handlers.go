package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/billlens/internal/parsing"
	"github.com/zombor/billlens/internal/scanning"
	"github.com/zombor/billlens/internal/settlement"
)

// maxUploadSize allows full resolution phone photos
const maxUploadSize = 50 << 20

const tooLargeMessage = "File is too large. Maximum size is 50MB. Please compress or resize your image."

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps service errors onto status codes
func writeServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalid), errors.Is(err, scanning.ErrUnsupportedFormat):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNoScanner):
		writeError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.Error("Error "+action, "error", err)
		writeError(w, fmt.Sprintf("%s failed", action), http.StatusInternalServerError)
	}
}

// splitMemberIDs reads a comma separated member list
func splitMemberIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return parsing.UniqueMemberIDs(strings.Split(raw, ","))
}

// formBool reads a "true"/"1"/"yes" form value, falling back to def when absent
func formBool(raw string, def bool) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return def
	}
	return raw == "true" || raw == "1" || raw == "yes"
}

// contentTypeFor trusts the part header, then the file extension, then the bytes
func contentTypeFor(header *multipart.FileHeader, data []byte) string {
	if ct := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type"))); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return http.DetectContentType(data)
}

// readUpload pulls the "file" part out of a multipart request
func readUpload(w http.ResponseWriter, r *http.Request) (Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, tooLargeMessage, http.StatusRequestEntityTooLarge)
		} else {
			writeError(w, "Error parsing form", http.StatusBadRequest)
		}
		return Upload{}, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return Upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return Upload{}, false
	}
	if len(data) == 0 {
		writeError(w, "The uploaded file is empty.", http.StatusBadRequest)
		return Upload{}, false
	}

	return Upload{
		Filename:    header.Filename,
		ContentType: contentTypeFor(header, data),
		Data:        data,
		Hint:        r.FormValue("hint"),
		Currency:    r.FormValue("currency"),
		MemberIDs:   splitMemberIDs(r.FormValue("member_ids")),
		Enhance:     formBool(r.FormValue("use_preprocessing"), true),
	}, true
}

// imageRequest is the JSON body of the base64 OCR endpoints
type imageRequest struct {
	ImageBase64 string `json:"image_base64"`
	Currency    string `json:"currency"`
	Hint        string `json:"hint"`
}

// decodeImageRequest accepts raw base64 or a data: URL
func decodeImageRequest(w http.ResponseWriter, r *http.Request) (Upload, bool) {
	var req imageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return Upload{}, false
	}

	encoded := req.ImageBase64
	if strings.HasPrefix(encoded, "data:") {
		if _, after, ok := strings.Cut(encoded, ","); ok {
			encoded = after
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(data) == 0 {
		writeError(w, "Invalid base64 image", http.StatusBadRequest)
		return Upload{}, false
	}

	return Upload{
		ContentType: http.DetectContentType(data),
		Data:        data,
		Hint:        req.Hint,
		Currency:    req.Currency,
		Enhance:     true,
	}, true
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "BillLens API",
		"version": s.version,
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleExtractText returns the raw OCR text of an uploaded image
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.service.ExtractText(r.Context(), upload.Data, upload.ContentType, upload.Enhance)
	if err != nil {
		writeServiceError(w, "extracting text", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleParseImage runs OCR on a base64 image and returns the parsed receipt
func (s *Server) handleParseImage(w http.ResponseWriter, r *http.Request) {
	upload, ok := decodeImageRequest(w, r)
	if !ok {
		return
	}

	analysis, err := s.service.ParseImage(r.Context(), upload)
	if err != nil {
		writeServiceError(w, "parsing receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// handleParseImageWithSplit is handleParseImage plus a split among ?member_ids=
func (s *Server) handleParseImageWithSplit(w http.ResponseWriter, r *http.Request) {
	upload, ok := decodeImageRequest(w, r)
	if !ok {
		return
	}
	upload.MemberIDs = splitMemberIDs(r.URL.Query().Get("member_ids"))

	analysis, err := s.service.ParseImage(r.Context(), upload)
	if err != nil {
		writeServiceError(w, "parsing receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// handleParseText parses text the client already ran OCR on
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string   `json:"text"`
		Hint      string   `json:"hint"`
		Currency  string   `json:"currency"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, s.service.ParseText(req.Text, req.Hint, req.Currency, req.MemberIDs))
}

// handleUploadReceipt stores, scans and parses an uploaded receipt
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.ProcessReceipt(r.Context(), upload)
	if err != nil {
		writeServiceError(w, "processing receipt", err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		writeServiceError(w, "listing receipts", err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "getting receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "getting receipt file", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		writeServiceError(w, "deleting receipt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportReceipts downloads every receipt as a spreadsheet
func (s *Server) handleExportReceipts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.service.ExportReceipts(&buf); err != nil {
		writeServiceError(w, "exporting receipts", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.Write(buf.Bytes())
}

// handleValidateSettlement recomputes a group's balances and audits them
func (s *Server) handleValidateSettlement(w http.ResponseWriter, r *http.Request) {
	export, err := settlement.ReadExport(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, export.Validate())
}

func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string          `json:"user_id"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snapshot, err := s.service.PushSnapshot(req.UserID, req.Payload)
	if err != nil {
		writeServiceError(w, "pushing snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"user_id":    snapshot.UserID,
		"updated_at": snapshot.UpdatedAt,
	})
}

func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.PullSnapshot(r.URL.Query().Get("user_id"))
	if err != nil {
		writeServiceError(w, "pulling snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"user_id": snapshot.UserID,
		"payload": snapshot.Payload,
	})
}
