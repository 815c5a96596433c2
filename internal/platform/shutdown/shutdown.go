package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/qa-raffle-backend/pkg/lifecycle"
	"github.com/google/logger"
)

const (
	httpTimeout       = 15 * time.Second
	backgroundTimeout = 10 * time.Second
)

// Closer 是停机最后阶段需要释放的资源，例如数据库和Redis连接。
type Closer struct {
	Name  string
	Close func() error
}

// Coordinator 负责编排应用程序的优雅停机流程。
type Coordinator struct {
	Background *lifecycle.Manager
	Closers    []Closer
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(background *lifecycle.Manager, closers ...Closer) *Coordinator {
	return &Coordinator{Background: background, Closers: closers}
}

// ListenForSignalsAndShutdown 阻塞直到收到停机信号，然后依次关闭HTTP服务器、后台服务和底层连接。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("收到关闭信号，开始优雅停机...")
	c.Shutdown(server)
}

// Shutdown 执行停机流程。先停止接收请求，让进行中的事务完成，再释放资源。
func (c *Coordinator) Shutdown(server *http.Server) {
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("Gin服务器关闭错误: %v", err)
		} else {
			logger.Info("Gin服务器已关闭。")
		}
	}

	if c.Background != nil {
		c.Background.Shutdown()
		if remaining := c.Background.WaitWithTimeout(backgroundTimeout); len(remaining) > 0 {
			logger.Warningf("以下后台服务未能按时退出: %v", remaining)
		}
	}

	for _, closer := range c.Closers {
		if err := closer.Close(); err != nil {
			logger.Errorf("关闭 %s 失败: %v", closer.Name, err)
		}
	}
	logger.Info("优雅停机完成。")
}
