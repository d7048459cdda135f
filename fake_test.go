package odloader

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// fakeNode is one item served by fakeDrive. Folders have IsFolder set.
type fakeNode struct {
	Name     string
	Link     string
	IsFolder bool
	Content  string
	Status   int // status of the content request, 0 means 200
	Children []*fakeNode
}

func fakeFile(name, content string) *fakeNode {
	return &fakeNode{Name: name, Link: "https://1drv.ms/u/s!" + name, Content: content}
}

func fakeFolder(name string, children ...*fakeNode) *fakeNode {
	return &fakeNode{Name: name, Link: "https://1drv.ms/f/s!" + name, IsFolder: true, Children: children}
}

func (n *fakeNode) json() map[string]interface{} {
	m := map[string]interface{}{
		"name":   n.Name,
		"size":   len(n.Content),
		"webUrl": n.Link,
	}
	if n.IsFolder {
		m["folder"] = map[string]interface{}{"childCount": len(n.Children)}
	} else {
		m["file"] = map[string]interface{}{"mimeType": "application/octet-stream"}
	}
	return m
}

// fakeDrive serves the shares API for a tree of fakeNodes, resolving the
// "u!" token in the request path back to the share link.
type fakeDrive struct {
	mu       sync.Mutex
	nodes    map[string]*fakeNode
	requests []string
	// overrides replaces the response for a request path suffix of a link.
	overrides map[string]http.HandlerFunc
}

func newFakeDrive(t *testing.T, roots ...*fakeNode) (*fakeDrive, *httptest.Server) {
	t.Helper()
	d := &fakeDrive{
		nodes:     make(map[string]*fakeNode),
		overrides: make(map[string]http.HandlerFunc),
	}
	for _, r := range roots {
		d.add(r)
	}
	ts := httptest.NewServer(d)
	t.Cleanup(ts.Close)
	return d, ts
}

func (d *fakeDrive) add(n *fakeNode) {
	d.nodes[n.Link] = n
	for _, c := range n.Children {
		d.add(c)
	}
}

func (d *fakeDrive) override(link, suffix string, h http.HandlerFunc) {
	d.overrides[link+suffix] = h
}

func (d *fakeDrive) count(suffix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.requests {
		if strings.HasSuffix(r, "/root"+suffix) {
			n++
		}
	}
	return n
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.requests = append(d.requests, r.URL.Path)
	d.mu.Unlock()

	rest := strings.TrimPrefix(r.URL.Path, "/shares/")
	token, suffix, ok := strings.Cut(rest, "/root")
	if !ok {
		http.NotFound(w, r)
		return
	}
	link, err := DecodeShareToken(token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h, ok := d.overrides[link+suffix]; ok {
		h(w, r)
		return
	}

	node, ok := d.nodes[link]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{"code": "itemNotFound", "message": "Item does not exist"},
		})
		return
	}

	switch suffix {
	case "":
		writeJSON(w, http.StatusOK, node.json())
	case "/children":
		value := make([]map[string]interface{}, 0, len(node.Children))
		for _, c := range node.Children {
			value = append(value, c.json())
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"value": value})
	case "/content":
		status := node.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(node.Content))
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func testConfig(t *testing.T, ts *httptest.Server) *Config {
	config := NewDefaultConfig()
	config.APIBase = ts.URL
	config.DownloadDir = t.TempDir()
	config.Logger = zaptest.NewLogger(t)
	return config
}

func testClient(t *testing.T, ts *httptest.Server, mutate ...func(*Config)) *OneDriveClient {
	config := testConfig(t, ts)
	for _, m := range mutate {
		m(config)
	}
	return NewOneDriveClient(config)
}

func withLogger(l *zap.Logger) func(*Config) {
	return func(c *Config) { c.Logger = l }
}
