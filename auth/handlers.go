package auth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flexio/bbauth/exchange"
	"github.com/flexio/bbauth/pkce"
	"github.com/flexio/bbauth/token"
)

// LoginHandler starts the authorization code flow. It stores the PKCE
// material under the state key and redirects the browser to the provider.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	s.startLogin(w, r)
}

func (s *Server) startLogin(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.ProviderConfigured() {
		writeError(w, http.StatusServiceUnavailable, "bbauth provider is not configured")
		return
	}

	returnURL := s.sanitizeReturnURL(r.URL.Query().Get("return_url"))

	verifier, err := pkce.GenerateCodeVerifier()
	if err != nil {
		slog.Error("generate code verifier failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to initiate login")
		return
	}
	state, err := pkce.GenerateState()
	if err != nil {
		slog.Error("generate state failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to initiate login")
		return
	}

	pe := &exchange.PendingExchange{
		CodeVerifier: verifier,
		State:        state,
		ReturnURL:    returnURL,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.PutExchange(r.Context(), pe); err != nil {
		slog.Error("store pending exchange failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to initiate login")
		return
	}

	http.Redirect(w, r, s.provider.AuthCodeURL(state, pkce.GenerateCodeChallenge(verifier)), http.StatusFound)
}

// CallbackHandler completes the flow: it consumes the pending exchange,
// trades the code for provider tokens, resolves the local account, mints a
// service token and sends the browser back to the frontend.
func (s *Server) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		msg := q.Get("error_description")
		if msg == "" {
			msg = "authorization was denied by the provider"
		}
		writeErrorNamed(w, http.StatusBadRequest, msg, errCode)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "missing code or state parameter")
		return
	}

	pe, err := s.store.ConsumeExchange(r.Context(), state)
	if err != nil {
		slog.Error("consume pending exchange failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to complete login")
		return
	}
	if pe == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired state parameter")
		return
	}

	tok, err := s.provider.Exchange(r.Context(), code, pe.CodeVerifier)
	if err != nil {
		slog.Error("authorization code exchange failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to exchange authorization code")
		return
	}

	info, err := s.provider.FetchUserInfo(r.Context(), tok.AccessToken)
	if err != nil {
		slog.Error("userinfo fetch failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve user information")
		return
	}

	acct, err := s.resolver.ResolveOrCreate(r.Context(), info.Subject, info.Email)
	if err != nil {
		slog.Error("account resolution failed", "err", err, "external_account_id", info.Subject)
		writeError(w, http.StatusInternalServerError, "failed to resolve account")
		return
	}

	serviceToken, err := s.issuer.Issue(acct.AccountID)
	if err != nil {
		slog.Error("service token issue failed", "err", err, "account_id", acct.AccountID)
		writeError(w, http.StatusInternalServerError, "failed to issue service token")
		return
	}

	pt := &exchange.ProviderToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
	}
	if err := s.store.PutProviderToken(r.Context(), acct.AccountID, pt, time.Until(tok.ExpiresAt)); err != nil {
		slog.Error("provider token cache failed", "err", err, "account_id", acct.AccountID)
		writeError(w, http.StatusInternalServerError, "failed to complete login")
		return
	}

	dest, err := s.redirectDestination(pe.ReturnURL, serviceToken, acct.AccountID)
	if err != nil {
		slog.Error("redirect destination build failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to complete login")
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

// LinkHandler lets an already authenticated caller attach a bbauth identity
// by re-entering the login flow.
func (s *Server) LinkHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireBearer(w, r); !ok {
		return
	}
	s.startLogin(w, r)
}

// UnlinkHandler is reserved until accounts support a second credential;
// removing the only login would strand the account.
func (s *Server) UnlinkHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireBearer(w, r); !ok {
		return
	}
	writeError(w, http.StatusNotImplemented, "unlink is not supported")
}

// StatusHandler reports whether the caller's account has a linked bbauth
// identity.
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.requireBearer(w, r)
	if !ok {
		return
	}

	acct, err := s.accounts.GetByID(r.Context(), claims.AccountID)
	if err != nil {
		slog.Error("account lookup failed", "err", err, "account_id", claims.AccountID)
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": acct.AccountID,
		"linked":     acct.ExternalAccountID != "",
		"email":      acct.Email,
	})
}

// requireBearer verifies the Authorization header and writes the 401 itself
// when the token is missing or invalid.
func (s *Server) requireBearer(w http.ResponseWriter, r *http.Request) (*token.Claims, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		writeError(w, http.StatusUnauthorized, "missing or invalid authorization header")
		return nil, false
	}
	claims, err := s.issuer.Verify(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid service token")
		return nil, false
	}
	return claims, true
}

// sanitizeReturnURL accepts relative paths and absolute URLs whose host is
// the frontend or on the allowlist. Anything else falls back to the default
// so the callback never redirects to an attacker controlled location.
func (s *Server) sanitizeReturnURL(raw string) string {
	if raw == "" {
		return DefaultReturnURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return DefaultReturnURL
	}
	if u.Scheme != "" || u.Host != "" {
		if u.Scheme != "http" && u.Scheme != "https" {
			return DefaultReturnURL
		}
		if s.allowedHost(u.Host) {
			return raw
		}
		return DefaultReturnURL
	}
	// Protocol-relative and backslash tricks must not survive as paths.
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.Contains(u.Path, "\\") {
		return DefaultReturnURL
	}
	return raw
}

func (s *Server) allowedHost(host string) bool {
	if front, err := url.Parse(s.cfg.FrontendURL); err == nil && strings.EqualFold(host, front.Host) {
		return true
	}
	for _, h := range s.cfg.ReturnURLHosts {
		if strings.EqualFold(host, strings.TrimSpace(h)) {
			return true
		}
	}
	return false
}

// redirectDestination resolves the stored return URL against the frontend
// base and appends the credential query parameters.
func (s *Server) redirectDestination(returnURL, serviceToken, accountID string) (string, error) {
	dest, err := url.Parse(returnURL)
	if err != nil || returnURL == "" {
		dest = &url.URL{Path: DefaultReturnURL}
	}
	if !dest.IsAbs() {
		base, err := url.Parse(s.cfg.FrontendURL)
		if err != nil {
			return "", err
		}
		dest = base.ResolveReference(dest)
	}
	q := dest.Query()
	q.Set("service_token", serviceToken)
	q.Set("account_id", accountID)
	dest.RawQuery = q.Encode()
	return dest.String(), nil
}
