package util

import (
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpenImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	img.SetNRGBA(2, 3, color.NRGBA{1, 2, 3, 255})

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, SaveImage(path, img))

	got, err := OpenImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Bounds().Dx())
	assert.Equal(t, 6, got.Bounds().Dy())
}

func TestOpenImage_NotImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.png")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := OpenImage(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestDownloadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = png.Encode(w, image.NewGray(image.Rect(0, 0, 4, 4)))
	}))
	defer srv.Close()

	img, err := DownloadImage(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	// LoadImage 对 http 前缀走下载
	img, err = LoadImage(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestDownloadImage_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := DownloadImage(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
