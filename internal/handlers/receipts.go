package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rotacerta/rota-certa/internal/remote"
	"github.com/rotacerta/rota-certa/internal/service"
)

// ReceiptHandler uploads and serves receipt blobs for expenses and
// fuelings. A failed upload is logged and reported, but never corrupts the
// owning record: the receipt is attached only after the blob is stored.
type ReceiptHandler struct {
	svc   *service.Service
	blobs remote.BlobStore
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(svc *service.Service, blobs remote.BlobStore) *ReceiptHandler {
	return &ReceiptHandler{svc: svc, blobs: blobs}
}

// Upload handles POST /api/receipts/upload?owner=<expense|fueling>&id=<localId>
// with a multipart "receipt" file.
func (h *ReceiptHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owner := r.URL.Query().Get("owner")
	localID := r.URL.Query().Get("id")
	if localID == "" || (owner != "expense" && owner != "fueling") {
		http.Error(w, "owner (expense|fueling) and id are required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		http.Error(w, "receipt file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path := fmt.Sprintf("receipts/%s/%s/%d", owner, localID, time.Now().UnixNano())
	receipt, err := h.blobs.Upload(r.Context(), path, header.Filename, file)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("receipt upload failed")
		http.Error(w, "Failed to store receipt", http.StatusBadGateway)
		return
	}

	if owner == "expense" {
		err = h.svc.AttachExpenseReceipt(r.Context(), localID, receipt)
	} else {
		err = h.svc.AttachFuelingReceipt(r.Context(), localID, receipt)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// Download streams a stored receipt: GET /api/receipts/<path>.
func (h *ReceiptHandler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/receipts/")
	if path == "" {
		http.Error(w, "receipt path is required", http.StatusBadRequest)
		return
	}
	stream, err := h.blobs.Download(r.Context(), path)
	if err != nil {
		http.Error(w, "Receipt not found", http.StatusNotFound)
		return
	}
	defer stream.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, stream); err != nil {
		log.WithError(err).Warn("receipt download interrupted")
	}
}
