//go:build integration

// Package testutils provides a tile server and a MinIO bucket for
// integration tests.
package testutils

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"
)

// TileServer is an HTTP tile server for tests.
type TileServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests map[string]int
}

// Template returns the URL template for the server.
func (s *TileServer) Template(ext string) string {
	return s.URL + "/{zoom}/{x}/{y}." + ext
}

// Requests returns how often path was requested.
func (s *TileServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// Total returns the number of requests served.
func (s *TileServer) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// TileData returns the body served for a tile path. It starts with a PNG
// signature so content sniffing reports image/png.
func TileData(path string) []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), path...)
}

// StartTileServer starts a server answering /{zoom}/{x}/{y}.{ext} with
// TileData. Any other path is a 404.
func StartTileServer(t *testing.T) *TileServer {
	t.Helper()

	s := &TileServer{requests: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		s.mu.Unlock()

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
		if len(parts) != 3 {
			http.NotFound(w, r)
			return
		}
		for _, p := range []string{parts[0], parts[1], strings.TrimSuffix(parts[2], path.Ext(parts[2]))} {
			if _, err := strconv.Atoi(p); err != nil {
				http.NotFound(w, r)
				return
			}
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(TileData(r.URL.Path))
	}))
	t.Cleanup(s.Close)
	return s
}

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

// Minio is a MinIO server holding one bucket.
type Minio struct {
	Container testcontainers.Container
	Bucket    string
	Endpoint  string
}

// BucketURL returns a gocloud s3blob URL for the bucket. prefix, if set,
// scopes the bucket to keys under it.
func (m *Minio) BucketURL(prefix string) string {
	u := fmt.Sprintf("s3://%s?endpoint=http://%s&use_path_style=true&disable_https=true&region=us-east-1",
		m.Bucket, m.Endpoint)
	if prefix != "" {
		u += "&prefix=" + prefix
	}
	return u
}

// OpenBucket opens the bucket through gocloud.
func (m *Minio) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, m.BucketURL(""))
}

// StartMinio starts MinIO with an empty bucket and sets the AWS credential
// environment variables s3blob reads. The container is terminated when the
// test ends.
func StartMinio(t *testing.T, ctx context.Context, bucket string) *Minio {
	t.Helper()

	// mc reaches the server by its network alias
	networkName := fmt.Sprintf("tilerip-minio-net-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{Name: networkName},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(context.Background()) })

	server, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "minio/minio:latest",
			ExposedPorts:   []string{"9000/tcp"},
			Networks:       []string{networkName},
			NetworkAliases: map[string][]string{networkName: {"minio"}},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd: []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").
				WithPort("9000").
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Terminate(context.Background()); err != nil {
			t.Logf("terminate minio container: %v", err)
		}
	})

	makeBucket(t, ctx, networkName, bucket)

	host, err := server.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := server.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", minioUser)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioPassword)

	return &Minio{
		Container: server,
		Bucket:    bucket,
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
	}
}

// makeBucket runs a throwaway minio/mc container that creates the bucket.
func makeBucket(t *testing.T, ctx context.Context, networkName, bucket string) {
	t.Helper()

	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      "minio/mc:latest",
			Networks:   []string{networkName},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd: []string{fmt.Sprintf(
				"mc alias set local http://minio:9000 %s %s && mc mb --ignore-existing local/%s",
				minioUser, minioPassword, bucket,
			)},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mc container: %v", err)
	}
	defer mc.Terminate(context.Background())

	state, err := mc.State(ctx)
	if err != nil {
		t.Fatalf("inspect mc container: %v", err)
	}
	if state.ExitCode != 0 {
		t.Fatalf("create bucket %q: mc exited with %d", bucket, state.ExitCode)
	}
}
