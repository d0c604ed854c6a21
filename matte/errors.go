package matte

import (
	"fmt"
)

// InvalidDimensionsError 等比缩放后某一边塌缩为 0
// 极端长宽比的输入才会出现，此时继续贴图只会得到全黑画布
type InvalidDimensionsError struct {
	OrigW, OrigH int
	W, H         int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid image dimensions: %dx%d resized to %dx%d", e.OrigW, e.OrigH, e.W, e.H)
}

// UnexpectedRankError 模型输出既不是 3 维也不是 4 维，输出契约被破坏
type UnexpectedRankError struct {
	Shape []int64
}

func (e *UnexpectedRankError) Error() string {
	return fmt.Sprintf("unexpected output rank %d (shape %v), want 3 or 4", len(e.Shape), e.Shape)
}

// PaddingMismatchError 裁剪矩形超出模型输出的空间范围
// 说明模型输出分辨率和编码时的目标尺寸不一致，静默裁剪会产生错位的 matte
type PaddingMismatchError struct {
	Padding Padding
	W, H    int
}

func (e *PaddingMismatchError) Error() string {
	return fmt.Sprintf("padding rect (%d,%d %dx%d) does not fit model output %dx%d",
		e.Padding.X, e.Padding.Y, e.Padding.ContentW, e.Padding.ContentH, e.W, e.H)
}
