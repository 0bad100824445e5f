package main

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/glint-ui/glint/internal/errors"
	"github.com/glint-ui/glint/pkg/dataset"
	"github.com/glint-ui/glint/pkg/dataset/blobsource"
)

func serveCmd() *cobra.Command {
	var (
		addr string
		root string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a blob service for dataset development",
		Long: `Serve blobs from a local directory over HTTP.

Endpoints:

  GET  /v1/blob/{key}   fetch a blob by canonical key
  PUT  /v1/blob/{key}   store a blob; subscribers on the watch feed
                        receive an invalidation event
  GET  /v1/watch        websocket feed of changed canonical keys

Point an HTTPSource at this service to develop against real fetch
latency without a production blob store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(root, 0o755); err != nil {
				return errors.New("G040").
					WithDetail("root: " + root).
					Wrap(err)
			}
			srv := newBlobServer(blobsource.NewDirSource(root))

			success("Blob service listening on %s", addr)
			info("root: %s", root)
			return http.ListenAndServe(addr, srv.router())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":7420", "listen address")
	cmd.Flags().StringVar(&root, "root", ".glint/blobs", "blob storage directory")
	return cmd
}

// blobServer serves a DirSource over HTTP and fans invalidation events
// out to websocket watchers.
type blobServer struct {
	source *blobsource.DirSource

	mu       sync.Mutex
	watchers map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
}

func newBlobServer(source *blobsource.DirSource) *blobServer {
	return &blobServer{
		source:   source,
		watchers: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *blobServer) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/v1/blob/{key}", s.handleFetch)
	r.Put("/v1/blob/{key}", s.handleStore)
	r.Get("/v1/watch", s.handleWatch)
	return r
}

func keyParam(r *http.Request) (dataset.Key, error) {
	raw := chi.URLParam(r, "key")
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return dataset.Key{}, err
	}
	return dataset.ParseCanonical(unescaped)
}

func (s *blobServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := s.source.Fetch(r.Context(), key)
	if err == dataset.ErrNotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *blobServer) handleStore(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.source.Store(r.Context(), key, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.broadcast(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *blobServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.watchers[conn] = struct{}{}
	s.mu.Unlock()

	// Drain (and discard) reads so we notice when the peer goes away.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.watchers, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *blobServer) broadcast(key dataset.Key) {
	ev := blobsource.InvalidationEvent{Key: key.Canonical()}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.watchers {
		if err := conn.WriteJSON(ev); err != nil {
			delete(s.watchers, conn)
			conn.Close()
		}
	}
}
