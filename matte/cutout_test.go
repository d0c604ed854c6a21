package matte

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutout(t *testing.T) {
	img := uniformImage(4, 4, color.NRGBA{200, 10, 10, 255})
	m := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range m.Pix {
		m.Pix[i] = uint8(i * 16)
	}

	out, err := Cutout(img, m)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		assert.Equal(t, uint8(i*16), out.Pix[i*4+3], "alpha at %d", i)
		assert.Equal(t, uint8(200), out.Pix[i*4], "red at %d", i)
	}
	// 原图不被修改
	assert.Equal(t, uint8(255), img.Pix[3])
}

func TestCutout_SizeMismatch(t *testing.T) {
	img := uniformImage(4, 4, color.NRGBA{1, 1, 1, 255})
	m := image.NewGray(image.Rect(0, 0, 2, 2))

	_, err := Cutout(img, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2x2")
}

func TestPremultiply(t *testing.T) {
	img := uniformImage(1, 1, color.NRGBA{200, 100, 50, 127})

	Premultiply(img)

	assert.Equal(t, uint8(99), img.Pix[0])
	assert.Equal(t, uint8(49), img.Pix[1])
	assert.Equal(t, uint8(24), img.Pix[2])
	assert.Equal(t, uint8(127), img.Pix[3])
}

func TestForegroundBounds(t *testing.T) {
	img := uniformImage(10, 10, color.NRGBA{0, 0, 0, 0})
	for y := 3; y <= 6; y++ {
		for x := 2; x <= 5; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}

	bbox, err := ForegroundBounds(img, 0.8)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(2, 3, 6, 7), bbox)
}

func TestForegroundBounds_Empty(t *testing.T) {
	img := uniformImage(4, 4, color.NRGBA{9, 9, 9, 0})

	_, err := ForegroundBounds(img, 0.8)
	require.ErrorIs(t, err, ErrNoForeground)
}

func TestCropForeground(t *testing.T) {
	img := uniformImage(10, 10, color.NRGBA{5, 6, 7, 255})

	out := CropForeground(img, image.Rect(2, 2, 8, 6))
	assert.Equal(t, 6, out.Bounds().Dx())
	assert.Equal(t, 4, out.Bounds().Dy())

	// 超出边界的区域先裁到图内
	out = CropForeground(img, image.Rect(-5, -5, 4, 4))
	assert.Equal(t, 4, out.Bounds().Dx())
	assert.Equal(t, 4, out.Bounds().Dy())
}
