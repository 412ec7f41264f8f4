package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxRequestBody caps the JSON body of a generate request.
const maxRequestBody = 1 << 20

type generateRequest struct {
	Data string `json:"data"`
	Size *int   `json:"size,omitempty"`
}

type generateResponse struct {
	Success      bool   `json:"success"`
	QRCodeURL    string `json:"qr_code_url"`
	QRCodeData   string `json:"qr_code_data"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Data == "" {
		writeError(w, http.StatusBadRequest, "Data is required")
		return
	}

	size := s.Generator.DefaultSize()
	if req.Size != nil {
		size = *req.Size
	}

	gen, err := s.Generator.Generate(r.Context(), req.Data, size)
	if err != nil {
		s.Log.Error("qr generation failed", "error", err, "size", size)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Success:      true,
		QRCodeURL:    gen.URL,
		QRCodeData:   gen.Data,
		QRCodeBase64: gen.DataURI(),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, os.DirFS(s.UploadDir), name)
}
