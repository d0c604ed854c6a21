package onnx

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveModelPath 查找模型文件：先看可执行文件所在目录，再看工作目录
func ResolveModelPath(name string) (string, error) {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), name)
		if fileExists(p) {
			return p, nil
		}
	}

	if fileExists(name) {
		return name, nil
	}

	return "", fmt.Errorf("cannot find the model %s", name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
