package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/rembg/matte"
)

// onesEngine 假引擎：总是返回全 1 的 (1,1,N,N) 输出
type onesEngine struct {
	size int
}

func (e *onesEngine) Infer(_ context.Context, _ matte.Tensor) (matte.Tensor, error) {
	data := make([]float32, e.size*e.size)
	for i := range data {
		data[i] = 1
	}
	return matte.Tensor{Data: data, Shape: []int64{1, 1, int64(e.size), int64(e.size)}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := DefaultConfig()
	cfg.ScratchDir = t.TempDir()
	return New(cfg, map[string]*matte.Pipeline{
		"modnet": matte.NewMODNet(&onesEngine{size: matte.MODNetTargetSize}),
	})
}

func multipartImage(t *testing.T, field, model string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "input.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	if model != "" {
		require.NoError(t, writer.WriteField("model", model))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHandleMatte(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartImage(t, "image", "")

	req := httptest.NewRequest(http.MethodPost, "/api/matte", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	out, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, out.Bounds().Dx())
	assert.Equal(t, 48, out.Bounds().Dy())
}

func TestHandleMatte_UnknownModel(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartImage(t, "image", "birefnet")

	req := httptest.NewRequest(http.MethodPost, "/api/matte", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "birefnet")
}

func TestHandleMatte_MissingImage(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartImage(t, "file", "")

	req := httptest.NewRequest(http.MethodPost, "/api/matte", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCleanScratch(t *testing.T) {
	s := newTestServer(t)

	stale := filepath.Join(s.cfg.ScratchDir, "old.png")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(s.cfg.ScratchDir, "new.png")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))

	s.cleanScratch()

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}
