package matte

import (
	"context"
	"fmt"
	"image"
	"log/slog"
)

// 两个模型家族的固定输入边长
const (
	MODNetTargetSize = 512
	U2NetTargetSize  = 320
)

// Pipeline 单个模型家族的处理流水线：
//
//	等比缩放填充 -> 张量编码 -> [引擎推理] -> 裁剪还原
//
// 流水线本身无状态，中间缓冲都是每次 Process 自己的，
// 多个实例可以并发使用，只要不共享引擎以外的对象
type Pipeline struct {
	targetSize int
	norm       Normalization
	engine     Engine
}

// NewMODNet 人像 matting：512 输入，[-1, 1] 归一化
func NewMODNet(engine Engine) *Pipeline {
	return &Pipeline{targetSize: MODNetTargetSize, norm: NormalizeSymmetric, engine: engine}
}

// NewU2Net 通用显著目标检测：320 输入，ImageNet 归一化
func NewU2Net(engine Engine) *Pipeline {
	return &Pipeline{targetSize: U2NetTargetSize, norm: NormalizeImageNet, engine: engine}
}

// Process 对一张图片生成灰度 matte，输出尺寸与输入一致
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*image.Gray, error) {
	b := img.Bounds()

	padded, pad, err := ResizeWithPadding(img, p.targetSize, p.targetSize)
	if err != nil {
		return nil, err
	}

	output, err := p.engine.Infer(ctx, ToTensor(padded, p.norm))
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}

	slog.Debug("model output", "shape", output.Shape)

	return MatteFromTensor(output, pad, b.Dx(), b.Dy())
}
