package http

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"course-scene-service/internal/typeid"
)

// MediaResponse is returned from the upload endpoint. Width and Height are
// set for decodable images only.
type MediaResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   int64  `json:"size"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// MediaHandler stores uploaded backgrounds, images, videos and presentations.
type MediaHandler struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

func NewMediaHandler(dir, urlPrefix string, maxBytes int64) *MediaHandler {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create media dir", "error", err, "dir", dir)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &MediaHandler{dir: dir, urlPrefix: urlPrefix, maxBytes: maxBytes}
}

var allowedMedia = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
}

// Upload handles POST /api/media (multipart form with a "file" field).
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large or malformed form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file")
		return
	}
	contentType := http.DetectContentType(data)
	if declared := header.Header.Get("Content-Type"); strings.HasPrefix(contentType, "application/octet-stream") || strings.HasPrefix(contentType, "application/zip") {
		contentType = declared
	}
	contentType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	ext, ok := allowedMedia[contentType]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported media type "+contentType)
		return
	}

	resp := MediaResponse{
		ID:   typeid.NewAssetID(),
		Name: header.Filename,
		Type: contentType,
		Size: int64(len(data)),
	}
	if strings.HasPrefix(contentType, "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			resp.Width, resp.Height = cfg.Width, cfg.Height
		} else if contentType == "image/png" || contentType == "image/jpeg" {
			writeError(w, http.StatusBadRequest, "invalid image: "+err.Error())
			return
		}
	}

	filename := resp.ID + ext
	if err := os.WriteFile(filepath.Join(h.dir, filename), data, 0o644); err != nil {
		slog.Error("save media file", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	resp.URL = h.urlPrefix + filename
	writeJSON(w, http.StatusCreated, resp)
}

// Serve returns an http.Handler for stored media files.
func (h *MediaHandler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix(h.urlPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// media ids are never reused
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}
