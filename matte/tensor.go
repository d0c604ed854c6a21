package matte

import (
	"context"
)

// Tensor NCHW 平面排布的 float32 张量
// Data 按 batch、channel、行、列的顺序排列，长度等于 Shape 各维之积
type Tensor struct {
	Data  []float32
	Shape []int64 // 例如 [1, 3, H, W]
}

// Rank 返回张量维度数
func (t Tensor) Rank() int {
	return len(t.Shape)
}

// Engine 推理引擎边界：输入一个张量，返回模型的第一个输出张量
// 实现方（ONNX Runtime 等）对本包是黑盒
type Engine interface {
	Infer(ctx context.Context, input Tensor) (Tensor, error)
}
