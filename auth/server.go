package auth

import (
	"log/slog"
	"net/http"

	"github.com/flexio/bbauth/account"
	"github.com/flexio/bbauth/exchange"
	"github.com/flexio/bbauth/provider"
	"github.com/flexio/bbauth/token"
)

// Server handles the federated login flow against a bbauth provider.
type Server struct {
	cfg      Config
	store    exchange.Store
	provider *provider.Client
	accounts account.Store
	resolver *account.Resolver
	issuer   *token.Issuer
}

func NewServer(cfg Config, store exchange.Store, client *provider.Client, accounts account.Store, issuer *token.Issuer) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		provider: client,
		accounts: accounts,
		resolver: account.NewResolver(accounts),
		issuer:   issuer,
	}
}

// RegisterRoutes mounts the auth endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/login", s.guard(requireMethod(http.MethodGet, s.LoginHandler)))
	mux.HandleFunc("/auth/callback", s.guard(requireMethod(http.MethodGet, s.CallbackHandler)))
	mux.HandleFunc("/auth/link", s.guard(requireMethod(http.MethodPost, s.LinkHandler)))
	mux.HandleFunc("/auth/unlink", s.guard(requireMethod(http.MethodPost, s.UnlinkHandler)))
	mux.HandleFunc("/auth/status", s.guard(requireMethod(http.MethodGet, s.StatusHandler)))
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

// guard converts handler panics into a generic 500 so a single bad request
// cannot take down the listener.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("auth handler panic", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next(w, r)
	}
}
