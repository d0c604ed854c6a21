package matte

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ImageNet 预训练模型的归一化常数，与 torchvision 保持一致
var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetSTD  = [3]float32{0.229, 0.224, 0.225}
)

// Normalization 像素归一化方式，由模型家族在构造流水线时固定
type Normalization int

const (
	// NormalizeSymmetric 把字节值映射到 [-1, 1]：(v - 127.5) / 127.5
	NormalizeSymmetric Normalization = iota
	// NormalizeImageNet 先除 255，再按 ImageNet 均值/方差归一化
	NormalizeImageNet
)

// Padding 一次 letterbox 缩放的填充信息
// ContentW/ContentH 是缩放后、填充前的内容尺寸
// 只对产生它的那次缩放有效，随填充后的图一起传给解码端
type Padding struct {
	X, Y               int
	ContentW, ContentH int
}

// ResizeWithPadding 等比缩放并用黑边填充到 targetW x targetH
// 缩放后的宽高四舍五入取整（0.5 远离零），填充量按整除居中，
// 所以左右（上下）两侧的黑边最多差一个像素；
// 正反两个方向都用 Lanczos3，保证 matte 边缘不漂移
func ResizeWithPadding(img image.Image, targetW, targetH int) (*image.NRGBA, Padding, error) {
	b := img.Bounds()
	origW, origH := b.Dx(), b.Dy()

	scale := math.Min(float64(targetW)/float64(origW), float64(targetH)/float64(origH))
	newW := int(math.Round(float64(origW) * scale))
	newH := int(math.Round(float64(origH) * scale))
	if newW <= 0 || newH <= 0 {
		return nil, Padding{}, &InvalidDimensionsError{OrigW: origW, OrigH: origH, W: newW, H: newH}
	}

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)

	pad := Padding{
		X:        (targetW - newW) / 2,
		Y:        (targetH - newH) / 2,
		ContentW: newW,
		ContentH: newH,
	}

	dst := image.NewNRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(dst,
		image.Rect(pad.X, pad.Y, pad.X+newW, pad.Y+newH),
		resized, resized.Bounds().Min, draw.Src)

	return dst, pad, nil
}

// ToTensor 把填充后的 RGB 图编码为 (1, 3, H, W) 的 float32 张量
// 通道优先（平面）排布：整块 R 平面在前，然后 G、B，不是逐像素交错；
// 排布错了模型不会报错，只会输出垃圾。编码阶段不做 clamp
func ToTensor(img *image.NRGBA, norm Normalization) Tensor {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	data := make([]float32, 3*h*w)

	for c := 0; c < 3; c++ {
		plane := data[c*h*w : (c+1)*h*w]
		for y := 0; y < h; y++ {
			row := y * img.Stride
			for x := 0; x < w; x++ {
				v := float32(img.Pix[row+x*4+c])
				if norm == NormalizeImageNet {
					plane[y*w+x] = (v/255 - imageNetMean[c]) / imageNetSTD[c]
				} else {
					plane[y*w+x] = (v - 127.5) / 127.5
				}
			}
		}
	}

	return Tensor{Data: data, Shape: []int64{1, 3, int64(h), int64(w)}}
}
