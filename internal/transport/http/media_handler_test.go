package http

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMediaUploadDecodesImageSize(t *testing.T) {
	handler := NewMediaHandler(t.TempDir(), "/media", 1<<20)

	body, ct := multipartBody(t, "shot.png", "image/png", pngBytes(t, 64, 36))
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp MediaResponse
	require.NoError(t, jsonDecode(rec.Body, &resp))
	assert.Equal(t, 64, resp.Width)
	assert.Equal(t, 36, resp.Height)
	assert.Equal(t, "image/png", resp.Type)
	assert.Regexp(t, `^/media/asset_[0-9a-z]{26}\.png$`, resp.URL)

	serve := httptest.NewRecorder()
	handler.Serve().ServeHTTP(serve, httptest.NewRequest(http.MethodGet, resp.URL, nil))
	assert.Equal(t, http.StatusOK, serve.Code)
	assert.Equal(t, pngBytes(t, 64, 36), serve.Body.Bytes())
}

func TestMediaUploadKeepsPDFWithoutSize(t *testing.T) {
	handler := NewMediaHandler(t.TempDir(), "/media/", 1<<20)

	body, ct := multipartBody(t, "deck.pdf", "application/pdf", []byte("%PDF-1.4\n%%EOF\n"))
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp MediaResponse
	require.NoError(t, jsonDecode(rec.Body, &resp))
	assert.Equal(t, "application/pdf", resp.Type)
	assert.Zero(t, resp.Width)
}

func TestMediaUploadRejectsUnknownTypes(t *testing.T) {
	handler := NewMediaHandler(t.TempDir(), "/media/", 1<<20)

	body, ct := multipartBody(t, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestMediaUploadEnforcesLimit(t *testing.T) {
	handler := NewMediaHandler(t.TempDir(), "/media/", 1024)

	body, ct := multipartBody(t, "big.png", "image/png", bytes.Repeat([]byte{0}, 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
