// Package api serves the enrolled-key HTTP API used by the operator console.
package api

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/keyscan/internal/httputil"
	"github.com/banshee-data/keyscan/internal/session"
)

// KeySummary is the list view of one enrolled key.
type KeySummary struct {
	ID         uuid.UUID `json:"id"`
	EnrolledAt time.Time `json:"enrolledDate"`
	Vectors    int       `json:"vectorCount"`
	Dimension  int       `json:"dimension"`
}

// Server exposes the key cache of a session.Manager over HTTP.
type Server struct {
	mgr *session.Manager
}

func NewServer(mgr *session.Manager) *Server {
	return &Server{mgr: mgr}
}

// ServeMux returns the API routes, rooted at /keys. Mount it under /api/
// with http.StripPrefix.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/keys", s.listKeys)
	mux.HandleFunc("/keys/", s.keyByID)
	return mux
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	keys := s.mgr.Keys()
	out := make([]KeySummary, 0, len(keys))
	for _, k := range keys {
		out = append(out, KeySummary{
			ID:         k.ID,
			EnrolledAt: k.EnrolledAt,
			Vectors:    len(k.FeatureVectors),
			Dimension:  k.Dimension(),
		})
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) keyByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/keys/"))
	if err != nil {
		httputil.BadRequest(w, "invalid key id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		k, ok := s.mgr.Key(id)
		if !ok {
			httputil.NotFound(w, "key not found")
			return
		}
		httputil.WriteJSONOK(w, k)

	case http.MethodDelete:
		err := s.mgr.RemoveKey(r.Context(), id)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, session.ErrKeyNotFound):
			httputil.NotFound(w, "key not found")
		case errors.Is(err, session.ErrSessionActive):
			httputil.Conflict(w, err.Error())
		default:
			log.Printf("remove key %s: %v", id, err)
			httputil.InternalServerError(w, "failed to remove key")
		}

	default:
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}
