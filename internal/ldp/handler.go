package ldp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

// DefaultMaxBodySize bounds request bodies accepted by a Handler.
const DefaultMaxBodySize = 16 << 20

// Handler serves a resource.Store over HTTP.
type Handler struct {
	store    resource.Store
	origin   string
	maxBody  int64
	logger   *slog.Logger
	readOnly bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithOrigin fixes the scheme and host used to form locators, for servers
// behind a proxy. Without it the request's Host header is used.
func WithOrigin(origin string) HandlerOption {
	return func(h *Handler) {
		h.origin = strings.TrimSuffix(origin, "/")
	}
}

// WithMaxBodySize sets the request body limit in bytes.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxBody = n
	}
}

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithReadOnly rejects PUT, PATCH and POST with 405 Method Not Allowed.
func WithReadOnly() HandlerOption {
	return func(h *Handler) {
		h.readOnly = true
	}
}

// NewHandler returns a Handler serving store.
func NewHandler(store resource.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:   store,
		maxBody: DefaultMaxBodySize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	locator := h.locator(r)

	switch {
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		h.get(w, r, locator)
	case h.readOnly:
		h.methodNotAllowed(w)
	case r.Method == http.MethodPut:
		h.put(w, r, locator)
	case r.Method == http.MethodPatch:
		h.patch(w, r, locator)
	case r.Method == http.MethodPost:
		h.post(w, r, locator)
	default:
		h.methodNotAllowed(w)
	}
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter) {
	allow := "GET, HEAD, PUT, PATCH, POST"
	if h.readOnly {
		allow = "GET, HEAD"
	}
	w.Header().Set("Allow", allow)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func (h *Handler) locator(r *http.Request) string {
	origin := h.origin
	if origin == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		origin = scheme + "://" + r.Host
	}
	return origin + r.URL.EscapedPath()
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, locator string) {
	g, err := h.store.Get(r.Context(), locator)
	if err != nil {
		h.fail(w, r, locator, err)
		return
	}
	body, err := tree.MarshalGraph(g)
	if err != nil {
		h.fail(w, r, locator, err)
		return
	}
	digest, err := tree.GraphDigest(g)
	if err != nil {
		h.fail(w, r, locator, err)
		return
	}

	w.Header().Set("Content-Type", tree.ContentType)
	w.Header().Set("ETag", `"`+digest+`"`)
	if strings.HasSuffix(locator, "/") {
		w.Header().Add("Link", "<"+tree.NamespaceLDP+`BasicContainer>; rel="type"`)
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(body)
	}
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request, locator string) {
	g, ok := h.readGraph(w, r)
	if !ok {
		return
	}
	existed, err := resource.Exists(r.Context(), h.store, locator)
	if err != nil {
		h.fail(w, r, locator, err)
		return
	}
	if err := h.store.Put(r.Context(), locator, g); err != nil {
		h.fail(w, r, locator, err)
		return
	}
	if existed {
		w.WriteHeader(http.StatusResetContent)
		return
	}
	w.Header().Set("Location", locator)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request, locator string) {
	if !h.checkContentType(w, r, PatchContentType) {
		return
	}
	data, ok := h.readBody(w, r)
	if !ok {
		return
	}
	insert, del, err := unmarshalPatch(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.Patch(r.Context(), locator, insert, del); err != nil {
		h.fail(w, r, locator, err)
		return
	}
	w.WriteHeader(http.StatusResetContent)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request, container string) {
	if !strings.HasSuffix(container, "/") {
		http.Error(w, "POST target is not a container", http.StatusMethodNotAllowed)
		return
	}
	g, ok := h.readGraph(w, r)
	if !ok {
		return
	}
	child, err := h.store.CreateChild(r.Context(), container, g)
	if err != nil {
		h.fail(w, r, container, err)
		return
	}
	w.Header().Set("Location", child)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) readGraph(w http.ResponseWriter, r *http.Request) (tree.Graph, bool) {
	if !h.checkContentType(w, r, tree.ContentType) {
		return nil, false
	}
	data, ok := h.readBody(w, r)
	if !ok {
		return nil, false
	}
	g, err := tree.UnmarshalGraph(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return g, true
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

func (h *Handler) checkContentType(w http.ResponseWriter, r *http.Request, want string) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || mt != want {
		http.Error(w, fmt.Sprintf("unsupported content type %q", ct), http.StatusUnsupportedMediaType)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, locator string, err error) {
	switch {
	case errors.Is(err, resource.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, resource.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"locator", locator,
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
