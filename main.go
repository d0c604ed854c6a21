package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaos-io/rembg/matte"
	"github.com/chaos-io/rembg/onnx"
	"github.com/chaos-io/rembg/server"
	"github.com/chaos-io/rembg/util"
)

var modelFiles = map[string]string{
	"modnet": "models/modnet.onnx",
	"u2net":  "models/u2net.onnx",
}

var (
	flagModel    string
	flagInput    string
	flagOutput   string
	flagCutout   string
	flagCrop     bool
	flagThreads  int
	flagCUDA     bool
	flagTensorRT bool
	flagDirectML bool
	flagDeviceID int
	flagVerbose  bool

	flagAddr       string
	flagScratchDir string
)

var rootCmd = &cobra.Command{
	Use:           "rembg",
	Short:         "用 MODNet / U²-Net 生成前景 matte",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
	RunE: runMatte,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "以 HTTP 服务方式提供 matting",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 4, "ORT intra-op 线程数")
	rootCmd.PersistentFlags().BoolVar(&flagCUDA, "use-cuda", false, "注册 CUDA EP")
	rootCmd.PersistentFlags().BoolVar(&flagTensorRT, "use-tensorrt", false, "注册 TensorRT EP（与 CUDA 同开时优先 TensorRT）")
	rootCmd.PersistentFlags().BoolVar(&flagDirectML, "use-directml", false, "注册 DirectML EP")
	rootCmd.PersistentFlags().IntVarP(&flagDeviceID, "device-id", "d", 0, "GPU 编号")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "输出调试日志")

	rootCmd.Flags().StringVarP(&flagModel, "model", "m", "modnet", "模型：modnet 或 u2net")
	rootCmd.Flags().StringVarP(&flagInput, "input", "i", "", "输入图片路径或 URL")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "matte.png", "matte 输出路径")
	rootCmd.Flags().StringVar(&flagCutout, "cutout", "", "可选：把 matte 贴回原图输出透明背景抠图")
	rootCmd.Flags().BoolVar(&flagCrop, "crop", false, "抠图时裁剪到前景 bounding box")

	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8188", "监听地址")
	serveCmd.Flags().StringVar(&flagScratchDir, "scratch-dir", "scratch", "上传文件的临时目录")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// newPipeline 解析模型路径、创建 ORT 引擎并装配对应家族的流水线
func newPipeline(model string) (*matte.Pipeline, *onnx.Engine, error) {
	file, ok := modelFiles[model]
	if !ok {
		return nil, nil, fmt.Errorf("unknown model %q (want modnet or u2net)", model)
	}

	path, err := onnx.ResolveModelPath(file)
	if err != nil {
		return nil, nil, err
	}

	cfg := onnx.DefaultConfig(path)
	cfg.Threads = flagThreads
	cfg.UseCUDA = flagCUDA
	cfg.UseTensorRT = flagTensorRT
	cfg.UseDirectML = flagDirectML
	cfg.DeviceID = flagDeviceID

	engine, err := onnx.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}

	if model == "u2net" {
		return matte.NewU2Net(engine), engine, nil
	}
	return matte.NewMODNet(engine), engine, nil
}

func runMatte(cmd *cobra.Command, args []string) error {
	if flagInput == "" {
		return fmt.Errorf("--input is required")
	}

	img, err := util.LoadImage(flagInput)
	if err != nil {
		return fmt.Errorf("load image %s: %w", flagInput, err)
	}

	pipeline, engine, err := newPipeline(flagModel)
	if err != nil {
		return err
	}
	defer engine.Destroy()

	m, err := pipeline.Process(cmd.Context(), img)
	if err != nil {
		return err
	}

	if err := util.SaveImage(flagOutput, m); err != nil {
		return err
	}
	log.Printf("saved %s matte to %s", flagModel, flagOutput)

	if flagCutout != "" {
		out, err := matte.Cutout(img, m)
		if err != nil {
			return err
		}
		if flagCrop {
			bbox, err := matte.ForegroundBounds(out, 0.8)
			if err != nil {
				return err
			}
			out = matte.CropForeground(out, bbox)
		}
		if err := util.SaveImage(flagCutout, out); err != nil {
			return err
		}
		log.Printf("saved cutout to %s", flagCutout)
	}

	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	pipelines := make(map[string]*matte.Pipeline)
	for model := range modelFiles {
		p, _, err := newPipeline(model)
		if err != nil {
			// 缺哪个模型就少一个入口，不影响其它模型
			slog.Warn("skip model", "model", model, "error", err)
			continue
		}
		pipelines[model] = p
	}
	if len(pipelines) == 0 {
		return fmt.Errorf("no usable model found")
	}

	cfg := server.DefaultConfig()
	cfg.Addr = flagAddr
	cfg.ScratchDir = flagScratchDir

	_ = os.MkdirAll(cfg.ScratchDir, 0o755)
	return server.New(cfg, pipelines).Run()
}
