package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cbodonnell/buddybeacon/pkg/api/handlers"
	"github.com/cbodonnell/buddybeacon/pkg/api/middleware"
	authproviders "github.com/cbodonnell/buddybeacon/pkg/auth/providers"
	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/gorilla/mux"
)

type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port         int
	TLS          *TLSConfig
	AuthProvider authproviders.AuthProvider
	// AdminUIDs restricts the authenticated routes. Empty allows any
	// verified token.
	AdminUIDs []string
	Querier   handlers.Querier
}

// NewAPIServer creates a new http.Server for the admin and status API
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// NewRouter builds the API routes. Only /healthz is public.
func NewRouter(opts NewAPIServerOptions) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handlers.HandleHealth()).Methods(http.MethodGet)

	admin := r.NewRoute().Subrouter()
	admin.Use(middleware.NewAuthMiddleware(opts.AuthProvider, opts.AdminUIDs))
	admin.HandleFunc("/players", handlers.HandleListPlayers(opts.Querier)).Methods(http.MethodGet)
	admin.HandleFunc("/parties", handlers.HandleListParties(opts.Querier)).Methods(http.MethodGet)
	admin.HandleFunc("/groups", handlers.HandleListGroups(opts.Querier)).Methods(http.MethodGet)
	admin.HandleFunc("/players/{uid}/items/{item}", handlers.HandleGiveItem(opts.Querier)).Methods(http.MethodPost)

	return r
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
