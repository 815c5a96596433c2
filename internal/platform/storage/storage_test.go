package storage

import (
	"testing"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
)

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantTLS  bool
		wantErr  bool
	}{
		{"minio:9000", "minio:9000", false, false},
		{"http://minio:9000", "minio:9000", false, false},
		{"https://s3.example.com", "s3.example.com", true, false},
		{"https://s3.example.com/bucket", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, tls, err := splitEndpoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitEndpoint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if host != tt.wantHost || tls != tt.wantTLS {
				t.Errorf("splitEndpoint() = %q, %v; want %q, %v", host, tls, tt.wantHost, tt.wantTLS)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	if got := publicURL("https://cdn.example.com/", "prizes", "1/a.png"); got != "https://cdn.example.com/prizes/1/a.png" {
		t.Errorf("publicURL() = %q", got)
	}
	if got := publicURL("minio:9000", "prizes", "a.png"); got != "http://minio:9000/prizes/a.png" {
		t.Errorf("publicURL() = %q", got)
	}
}

func TestDisabledStore(t *testing.T) {
	store, err := NewMinioStore(config.StorageConfig{Enabled: false})
	if err != nil || store != nil {
		t.Fatalf("NewMinioStore(disabled) = %v, %v; want nil, nil", store, err)
	}
}

func TestNewMinioStore(t *testing.T) {
	store, err := NewMinioStore(config.StorageConfig{
		Enabled:   true,
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "prizes",
	})
	if err != nil {
		t.Fatalf("NewMinioStore() error = %v", err)
	}
	if store.publicBase != "http://localhost:9000" || store.bucket != "prizes" {
		t.Fatalf("unexpected store %+v", store)
	}
}
