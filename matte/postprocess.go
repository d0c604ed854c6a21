package matte

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// MatteFromTensor 把模型输出张量还原成 origW x origH 的灰度 matte
// 兼容 (B,1,H,W) 和省略通道维的 (B,H,W) 两种输出，其余秩视为契约被破坏。
// 灰度图按张量自身的 H、W 构建（个别导出的模型内部会改分辨率），
// 裁剪矩形放不进去时直接报错，不做静默的比例换算
func MatteFromTensor(t Tensor, pad Padding, origW, origH int) (*image.Gray, error) {
	h, w, err := outputDims(t)
	if err != nil {
		return nil, err
	}

	if pad.X+pad.ContentW > w || pad.Y+pad.ContentH > h {
		return nil, &PaddingMismatchError{Padding: pad, W: w, H: h}
	}

	// 第一个 batch 的单通道平面就是 Data 的前 h*w 个值
	full := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * full.Stride
		for x := 0; x < w; x++ {
			v := t.Data[y*w+x]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			full.Pix[row+x] = uint8(math.Round(float64(v) * 255))
		}
	}

	cropped := full.SubImage(image.Rect(pad.X, pad.Y, pad.X+pad.ContentW, pad.Y+pad.ContentH)).(*image.Gray)

	return toGray(resize.Resize(uint(origW), uint(origH), cropped, resize.Lanczos3)), nil
}

// outputDims 校验输出秩并返回空间尺寸，3 维输出按 (B,H,W) 解读
func outputDims(t Tensor) (h, w int, err error) {
	switch t.Rank() {
	case 4:
		h, w = int(t.Shape[2]), int(t.Shape[3])
	case 3:
		h, w = int(t.Shape[1]), int(t.Shape[2])
	default:
		return 0, 0, &UnexpectedRankError{Shape: t.Shape}
	}
	if h <= 0 || w <= 0 {
		return 0, 0, &UnexpectedRankError{Shape: t.Shape}
	}
	if len(t.Data) < h*w {
		return 0, 0, fmt.Errorf("model output has %d values, want at least %d for shape %v",
			len(t.Data), h*w, t.Shape)
	}
	return h, w, nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}
