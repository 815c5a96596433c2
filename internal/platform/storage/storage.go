// Package storage 把奖品图片上传到S3兼容的对象存储，并返回可公开访问的地址。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/google/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStore 是业务层依赖的上传能力
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// MinioStore 使用 minio 客户端实现 ImageStore
type MinioStore struct {
	cli        *minio.Client
	bucket     string
	publicBase string
}

// splitEndpoint 接受 "host:port" 或带协议的地址，返回 minio 需要的 host 和是否使用TLS
func splitEndpoint(address string) (string, bool, error) {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		return address, false, nil
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", false, err
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, errors.New("对象存储地址不能包含路径")
	}
	return u.Host, u.Scheme == "https", nil
}

// publicURL 拼出对象的公开访问地址
func publicURL(base, bucket, key string) string {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + key
}

// NewMinioStore 按配置创建客户端。未启用时返回 nil, nil。
func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	endpoint, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("对象存储地址无效: %w", err)
	}
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("无法创建对象存储客户端: %w", err)
	}

	publicBase := cfg.PublicEndpoint
	if publicBase == "" {
		publicBase = cfg.Endpoint
	}
	return &MinioStore{cli: cli, bucket: cfg.Bucket, publicBase: publicBase}, nil
}

// EnsureBucket 创建存储桶（如果不存在）
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.cli.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.cli.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return err
	}
	logger.Infof("已创建对象存储桶 %s", s.bucket)
	return nil
}

// Put 上传一个对象并返回其公开地址
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.cli.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}
	return publicURL(s.publicBase, s.bucket, key), nil
}
