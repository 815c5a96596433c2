package raffle

import (
	"io"
	"os"
	"testing"

	"github.com/google/logger"
)

// 测试期间初始化日志并丢弃输出
func TestMain(m *testing.M) {
	l := logger.Init("test", false, false, io.Discard)
	code := m.Run()
	l.Close()
	os.Exit(code)
}
