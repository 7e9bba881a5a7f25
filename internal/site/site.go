// Package site serves the relay's browser client from a document root.
//
// HTML documents are read on every request and rendered through
// security.InjectNonce so their inline scripts and styles carry the nonce of
// the current response. All other files are served as-is with explicit
// content types for the asset kinds browsers refuse to execute when
// mis-typed.
package site

import (
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/ferro-labs/ai-relay/internal/logging"
	"github.com/ferro-labs/ai-relay/internal/metrics"
	"github.com/ferro-labs/ai-relay/internal/security"
)

// loadErrorBody is the only detail a client sees when a document cannot be
// served.
const loadErrorBody = "Error loading page"

// contentTypes pins the Content-Type of common asset extensions instead of
// relying on the platform MIME table.
var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".mjs":  "application/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
}

// DocumentLoadError is logged when an HTML document cannot be read or
// rewritten.
type DocumentLoadError struct {
	Path string
	Err  error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("loading document %s: %v", e.Path, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// Handler serves a document root. It expects to run behind
// security.Headers, which supplies the per-response nonce.
type Handler struct {
	fsys fs.FS
}

// New returns a Handler serving fsys.
func New(fsys fs.FS) *Handler {
	return &Handler{fsys: fsys}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
	}
	name := strings.TrimPrefix(path.Clean(upath), "/")
	if name == "" {
		name = "."
	}
	if hidden(name) {
		http.NotFound(w, r)
		return
	}

	// Directory index. The root index is the main document and is always
	// rendered, so a missing one is a load error rather than a 404.
	if strings.HasSuffix(upath, "/") {
		index := path.Join(name, "index.html")
		if name != "." {
			if fi, err := fs.Stat(h.fsys, index); err != nil || fi.IsDir() {
				http.NotFound(w, r)
				return
			}
		}
		h.render(w, r, index)
		return
	}

	fi, err := fs.Stat(h.fsys, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if fi.IsDir() {
		target := upath + "/"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	ext := strings.ToLower(path.Ext(name))
	if ext == ".html" || ext == ".htm" {
		h.render(w, r, name)
		return
	}

	if ct, ok := contentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFileFS(w, r, h.fsys, name)
}

// render serves an HTML document with the response nonce injected into every
// inline script and style tag.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string) {
	log := logging.FromContext(r.Context())

	doc, err := fs.ReadFile(h.fsys, name)
	if err != nil {
		h.loadError(w, r, &DocumentLoadError{Path: name, Err: err})
		return
	}

	nonce := security.Nonce(r.Context())
	if nonce == "" {
		log.Warn("serving document without CSP nonce", "path", name)
	} else {
		doc, err = security.InjectNonceBytes(doc, nonce)
		if err != nil {
			h.loadError(w, r, &DocumentLoadError{Path: name, Err: err})
			return
		}
	}

	metrics.PageRenders.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", contentTypes[".html"])
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(doc)
	}
}

func (h *Handler) loadError(w http.ResponseWriter, r *http.Request, err *DocumentLoadError) {
	metrics.PageRenders.WithLabelValues("load_error").Inc()
	logging.FromContext(r.Context()).Error("document load failed", "error", err.Error())
	http.Error(w, loadErrorBody, http.StatusInternalServerError)
}

// hidden reports whether any path segment is a dotfile, such as a .env next
// to the served files.
func hidden(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if len(seg) > 1 && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
