package matte

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrNoForeground matte 里没有超过阈值的前景像素
var ErrNoForeground = errors.New("未检测到前景区域")

// Cutout 把 matte 当作 alpha 通道贴回原图，得到透明背景的抠图
// matte 尺寸必须和原图一致（Process 的输出天然满足）
func Cutout(img image.Image, m *image.Gray) (*image.NRGBA, error) {
	b := img.Bounds()
	if m.Bounds().Dx() != b.Dx() || m.Bounds().Dy() != b.Dy() {
		return nil, fmt.Errorf("matte size %dx%d does not match image %dx%d",
			m.Bounds().Dx(), m.Bounds().Dy(), b.Dx(), b.Dy())
	}

	out := toNRGBA(img)
	for y := 0; y < b.Dy(); y++ {
		row := y * out.Stride
		mrow := y * m.Stride
		for x := 0; x < b.Dx(); x++ {
			out.Pix[row+x*4+3] = m.Pix[mrow+x]
		}
	}
	return out, nil
}

// Premultiply 预乘 Alpha，RGB × alpha
// 例如：红色半透明 (1,0,0,0.5) → (0.5,0,0)，背景自然变黑，
// 消除抠图边缘的白边/透明边污染
func Premultiply(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		a := float64(img.Pix[i+3]) / 255.0
		img.Pix[i] = uint8(float64(img.Pix[i]) * a)
		img.Pix[i+1] = uint8(float64(img.Pix[i+1]) * a)
		img.Pix[i+2] = uint8(float64(img.Pix[i+2]) * a)
	}
}

// ForegroundBounds 从 alpha 通道计算主体 bounding box
// 把 alpha > threshold * 255 的像素当作主体
func ForegroundBounds(img *image.NRGBA, threshold float64) (image.Rectangle, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	th := uint8(threshold * 255)

	minX, minY := w, h
	maxX, maxY := 0, 0
	found := false

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			if img.Pix[row+x*4+3] > th {
				found = true
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if x > maxX {
					maxX = x
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if !found {
		return image.Rectangle{}, ErrNoForeground
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}

// CropForeground 裁剪到给定区域（与 img 边界求交）
func CropForeground(img *image.NRGBA, bbox image.Rectangle) *image.NRGBA {
	rect := bbox.Intersect(img.Bounds())
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		out := image.NewNRGBA(nrgba.Bounds())
		copy(out.Pix, nrgba.Pix)
		return out
	}
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
