package handlers

import (
	"errors"
	"net/http"

	"homeflix/internal/logging"
	"homeflix/internal/scanner"
)

// ScanRequest is the POST /api/admin/scan body.
type ScanRequest struct {
	FolderPath       string `json:"folderPath"`
	SkipIncompatible bool   `json:"skipIncompatible"`
	SkipFormatCheck  bool   `json:"skipFormatCheck"`
}

// TriggerScan runs a catalog scan of the requested directory.
func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.FolderPath == "" {
		req.FolderPath = h.moviesDir
	}

	result, err := h.scanner.Scan(r.Context(), req.FolderPath, scanner.Options{
		SkipIncompatible: req.SkipIncompatible,
		SkipFormatCheck:  req.SkipFormatCheck,
	})
	if err != nil {
		writeScanError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// ConvertRequest is the POST /api/admin/convert body.
type ConvertRequest struct {
	FolderPath      string   `json:"folderPath"`
	Files           []string `json:"files"`
	DeleteOriginals bool     `json:"deleteOriginals"`
}

// TriggerConvert converts the named files and catalogs the results.
func (h *Handlers) TriggerConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Files) == 0 {
		writeJSONError(w, "no files given", http.StatusBadRequest)
		return
	}
	if req.FolderPath == "" {
		req.FolderPath = h.moviesDir
	}

	result, err := h.scanner.ConvertAndAdd(r.Context(), req.FolderPath, req.Files, req.DeleteOriginals)
	if err != nil {
		writeScanError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// TriggerRefreshMetadata re-enriches stale catalog entries.
func (h *Handlers) TriggerRefreshMetadata(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.RefreshMetadata(r.Context())
	if err != nil {
		logging.Error("Metadata refresh failed: %v", err)
		writeJSONError(w, "metadata refresh failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// writeScanError maps the scanner's directory sentinels to HTTP statuses.
func writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scanner.ErrDirNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scanner.ErrNotDirectory):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, scanner.ErrDirNotReadable):
		writeJSONError(w, err.Error(), http.StatusForbidden)
	default:
		logging.Error("Scan failed: %v", err)
		writeJSONError(w, "scan failed", http.StatusInternalServerError)
	}
}
