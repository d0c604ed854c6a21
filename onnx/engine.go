// Package onnx 用 ONNX Runtime 实现 matte.Engine 推理边界
package onnx

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/chaos-io/rembg/matte"
)

// Config 引擎的初始化参数
type Config struct {
	ModelPath   string // ONNX 模型路径
	LibraryPath string // onnxruntime 动态库路径，留空时自动探测

	Threads     int  // intra-op 线程数
	UseCUDA     bool // (可选) 注册 CUDA EP
	UseTensorRT bool // (可选) 注册 TensorRT EP，和 CUDA 同时开启时优先 TensorRT
	UseDirectML bool // (可选) 注册 DirectML EP
	DeviceID    int  // CUDA / TensorRT / DirectML 的 GPU 编号
}

// DefaultConfig 默认配置
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath: modelPath,
		Threads:   4,
	}
}

// onnxruntime 动态库进程内只初始化一次
var (
	initOnce sync.Once
	initErr  error
)

func initRuntime(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = defaultLibraryPath()
		}
		ort.SetSharedLibraryPath(libraryPath)
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// Engine matte.Engine 的 ONNX Runtime 实现，按位置取第一个输入/输出
type Engine struct {
	session *ort.DynamicAdvancedSession
}

// NewEngine 加载模型并创建会话
func NewEngine(cfg Config) (*Engine, error) {
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model %s: %w", cfg.ModelPath, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no usable input/output", cfg.ModelPath)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer func() {
		_ = options.Destroy()
	}()

	if cfg.Threads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.Threads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}

	if cfg.UseTensorRT {
		trtOpts, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("create TensorRT options: %w", err)
		}
		defer func() {
			_ = trtOpts.Destroy()
		}()
		if err := trtOpts.Update(map[string]string{"device_id": strconv.Itoa(cfg.DeviceID)}); err != nil {
			return nil, fmt.Errorf("set TensorRT device: %w", err)
		}
		if err := options.AppendExecutionProviderTensorRT(trtOpts); err != nil {
			return nil, fmt.Errorf("append TensorRT provider: %w", err)
		}
	}

	if cfg.UseCUDA {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("create CUDA options: %w", err)
		}
		defer func() {
			_ = cudaOpts.Destroy()
		}()
		if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(cfg.DeviceID)}); err != nil {
			return nil, fmt.Errorf("set CUDA device: %w", err)
		}
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("append CUDA provider: %w", err)
		}
	}

	if cfg.UseDirectML {
		if err := options.AppendExecutionProviderDirectML(cfg.DeviceID); err != nil {
			return nil, fmt.Errorf("append DirectML provider: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, options)
	if err != nil {
		return nil, fmt.Errorf("load ONNX model %s: %w", cfg.ModelPath, err)
	}

	return &Engine{session: session}, nil
}

// Infer 执行一次推理，返回第一个输出张量的拷贝
func (e *Engine) Infer(ctx context.Context, input matte.Tensor) (matte.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return matte.Tensor{}, err
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return matte.Tensor{}, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() {
		_ = in.Destroy()
	}()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{in}, outputs); err != nil {
		return matte.Tensor{}, fmt.Errorf("run session: %w", err)
	}
	out := outputs[0]
	defer func() {
		_ = out.Destroy()
	}()

	tensor, ok := out.(*ort.Tensor[float32])
	if !ok {
		return matte.Tensor{}, fmt.Errorf("model output is not a float32 tensor")
	}

	// 输出缓冲随 Destroy 一起释放，必须拷出来
	data := make([]float32, len(tensor.GetData()))
	copy(data, tensor.GetData())
	shape := append([]int64(nil), tensor.GetShape()...)

	return matte.Tensor{Data: data, Shape: shape}, nil
}

// Destroy 释放会话资源
func (e *Engine) Destroy() {
	if e.session != nil {
		_ = e.session.Destroy()
	}
}

// defaultLibraryPath 按平台探测 onnxruntime 动态库
func defaultLibraryPath() string {
	if p := os.Getenv("ONNXRUNTIME_LIB_PATH"); p != "" {
		return p
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/opt/homebrew/lib/libonnxruntime.dylib",
			"/usr/local/lib/libonnxruntime.dylib",
			"libonnxruntime.dylib",
		}
	case "windows":
		candidates = []string{"onnxruntime.dll"}
	default:
		candidates = []string{
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"libonnxruntime.so",
		}
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	// 交给动态链接器按默认搜索路径兜底
	return candidates[len(candidates)-1]
}
