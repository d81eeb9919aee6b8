package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/apswitch/internal/logging"
)

// Route paths served by the device.
const (
	PathRoot  = "/"
	PathAdmin = "/admin"
)

// registerRoutes builds the fixed route table: status page, admin stub and
// not-found.
func (s *Server) registerRoutes() error {
	if err := s.router.HandleMethod(http.MethodGet, PathRoot, s.handleRoot); err != nil {
		return err
	}
	// TODO: gate /admin behind authentication once settings can be changed from it.
	if err := s.router.Handle(PathAdmin, s.handleAdmin); err != nil {
		return err
	}
	if err := s.router.NotFound(s.handleNotFound); err != nil {
		return err
	}

	for _, route := range s.router.Routes() {
		logging.Info("Route registered",
			zap.String("method", methodLabel(route.Method)),
			zap.String("path", route.Path),
		)
	}
	logging.Info("Route registered", zap.String("path", "*"), zap.String("handler", "not_found"))

	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, s.pages.Root(r.Context()))
}

// handleAdmin serves the login page for every method. No credentials are
// checked.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, s.pages.Admin())
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusNotFound, s.pages.NotFound())
}
