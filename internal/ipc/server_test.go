package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tsdev/internal/logging"
)

type fakeCoordinator struct {
	bodies map[string]string
	err    error
}

func (f *fakeCoordinator) FileGroup(ctx context.Context, path string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bodies, nil
}

type fakeRegistrar struct {
	registered []string
}

func (f *fakeRegistrar) AddPath(path string) error {
	f.registered = append(f.registered, path)
	return nil
}

func unixClient(socket string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socket)
			},
		},
	}
}

func TestIPCCompileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	socket := filepath.Join(dir, "ipc.sock")

	coord := &fakeCoordinator{bodies: map[string]string{"/proj/a.ts": "console.log(1)"}}
	reg := &fakeRegistrar{}
	log := logging.New(logging.DefaultConfig())

	srv := New(socket, NewRoutes(coord, reg, log), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	require.Eventually(t, func() bool {
		_, err := net.Dial("unix", socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	client := unixClient(socket)
	body, _ := json.Marshal("/proj/a.ts")
	resp, err := client.Post("http://unix/compile", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded compileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "console.log(1)", decoded.Filenames["/proj/a.ts"])
	assert.Contains(t, reg.registered, "/proj/a.ts")
}

func TestIPCFileRequiredSkipsNodeModules(t *testing.T) {
	dir := t.TempDir()
	socket := filepath.Join(dir, "ipc.sock")

	coord := &fakeCoordinator{}
	reg := &fakeRegistrar{}
	log := logging.New(logging.DefaultConfig())

	srv := New(socket, NewRoutes(coord, reg, log), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)

	require.Eventually(t, func() bool {
		_, err := net.Dial("unix", socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	client := unixClient(socket)
	paths := []string{"/proj/a.ts", "/proj/node_modules/dep/index.ts"}
	body, _ := json.Marshal(paths)
	resp, err := client.Post("http://unix/file-required", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded fileRequiredResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "ok", decoded.Status)
	assert.Equal(t, []string{"/proj/a.ts"}, reg.registered)
}
