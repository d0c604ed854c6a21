// Package server 把 matting 流水线通过 HTTP 暴露出去
package server

import (
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/rembg/matte"
	"github.com/chaos-io/rembg/util"
)

// Config 服务模式参数
type Config struct {
	Addr       string
	ScratchDir string        // 上传文件的临时目录
	ScratchTTL time.Duration // 超过 TTL 的临时文件由定时任务清理
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Addr:       ":8188",
		ScratchDir: "scratch",
		ScratchTTL: time.Hour,
	}
}

// Server 持有按模型名（modnet、u2net）注册的流水线
type Server struct {
	cfg       Config
	pipelines map[string]*matte.Pipeline
	cron      *cron.Cron
}

// New 创建服务
func New(cfg Config, pipelines map[string]*matte.Pipeline) *Server {
	return &Server{cfg: cfg, pipelines: pipelines, cron: cron.New()}
}

// Router 注册路由
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.POST("/api/matte", s.handleMatte)
	return r
}

// Run 启动清理任务并监听
func (s *Server) Run() error {
	if err := os.MkdirAll(s.cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}

	// 每小时清理过期的临时文件
	if _, err := s.cron.AddFunc("@hourly", s.cleanScratch); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	s.cron.Start()
	defer s.cron.Stop()

	slog.Info("serving", "addr", s.cfg.Addr, "models", len(s.pipelines))
	return s.Router().Run(s.cfg.Addr)
}

/*
	curl -X POST "$BASE_URL/api/matte" \
	  -F "image=@my_image.png" \
	  -F "model=modnet" \
	  -o matte.png
*/
func (s *Server) handleMatte(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image field"})
		return
	}

	model := c.DefaultPostForm("model", "modnet")
	p, ok := s.pipelines[model]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown model %q", model)})
		return
	}

	scratch := filepath.Join(s.cfg.ScratchDir, ksuid.New().String()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, scratch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	img, err := util.OpenImage(scratch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("decode image: %v", err)})
		return
	}

	m, err := p.Process(c.Request.Context(), img)
	if err != nil {
		slog.Error("process image", "model", model, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := png.Encode(c.Writer, m); err != nil {
		slog.Error("encode matte", "error", err)
	}
}

// cleanScratch 删除超过 TTL 的临时文件
func (s *Server) cleanScratch() {
	entries, err := os.ReadDir(s.cfg.ScratchDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-s.cfg.ScratchTTL)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(s.cfg.ScratchDir, e.Name()))
		}
	}
}
