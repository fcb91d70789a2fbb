package executors

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/flowrun/flowrun/internal/client"
	"github.com/flowrun/flowrun/internal/engine"
	"github.com/flowrun/flowrun/internal/proxy"
	"github.com/flowrun/flowrun/internal/vfs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNode(id, typ string, config map[string]any) *engine.Node {
	cfg := make(map[string]engine.ConfigValue, len(config))
	for k, v := range config {
		cfg[k] = engine.ConfigValue{Value: v}
	}
	return &engine.Node{ID: id, Type: typ, Config: cfg}
}

// fakeServer emulates the workflow server: the virtual-files endpoints
// over an in-memory tree plus the HTTP proxy endpoint.
type fakeServer struct {
	mu      sync.Mutex
	files   map[string][]byte
	listing map[string][]vfs.Entry

	// proxyReply is returned verbatim as the proxy envelope.
	proxyReply map[string]any
	// lastProxyRequest captures the decoded proxy payload.
	lastProxyRequest map[string]any

	server *httptest.Server
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		files:   make(map[string][]byte),
		listing: make(map[string][]vfs.Entry),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/virtual-files/read/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/virtual-files/read")
		fs.mu.Lock()
		content, ok := fs.files[path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"content": string(content)})
	})
	mux.HandleFunc("/api/virtual-files/info/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/virtual-files/info")
		fs.mu.Lock()
		_, ok := fs.files[path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"name": path})
	})
	mux.HandleFunc("/api/virtual-files/download/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/virtual-files/download")
		fs.mu.Lock()
		content, ok := fs.files[path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(content)
	})
	mux.HandleFunc("/api/virtual-files/list", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		fs.mu.Lock()
		items, ok := fs.listing[path]
		fs.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	})
	mux.HandleFunc("/api/virtual-files/create-file", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name       string `json:"name"`
			ParentPath string `json:"parent_path"`
			Content    string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.files[joinVFS(req.ParentPath, req.Name)] = []byte(req.Content)
		fs.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/api/virtual-files/upload-file", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)

		fs.mu.Lock()
		fs.files[joinVFS(r.FormValue("parent_path"), header.Filename)] = content
		fs.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/api/virtual-files/delete/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/virtual-files/delete")
		fs.mu.Lock()
		delete(fs.files, path)
		fs.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/api/proxy/http", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		fs.mu.Lock()
		fs.lastProxyRequest = req
		reply := fs.proxyReply
		fs.mu.Unlock()
		if reply == nil {
			http.Error(w, "no proxy reply configured", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(reply)
	})

	fs.server = httptest.NewServer(mux)
	t.Cleanup(fs.server.Close)
	return fs
}

func joinVFS(parent, name string) string {
	if parent == "/" || parent == "" {
		return "/" + name
	}
	return parent + "/" + name
}

func (fs *fakeServer) put(path string, content []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = content
}

func (fs *fakeServer) get(path string) ([]byte, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	content, ok := fs.files[path]
	return content, ok
}

func (fs *fakeServer) vfs() *vfs.Adapter {
	return vfs.New(client.New(fs.server.URL, "test-token"))
}

func (fs *fakeServer) proxy() *proxy.Adapter {
	return proxy.New(client.New(fs.server.URL, "test-token"))
}
