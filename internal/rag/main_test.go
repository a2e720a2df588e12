package rag

import (
	"os"
	"testing"

	"akademikai/internal/logger"
)

func TestMain(m *testing.M) {
	// 单测共用的日志初始化，输出到 stderr 避免污染测试输出
	if err := logger.Init("error", "console", "stderr"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
