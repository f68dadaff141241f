// Package gateway authenticates every caller and authorizes each operation.
//
// A request carries Credentials (session cookie and/or Authorization header).
// Resolvers are tried in order and the first success yields an AuthContext.
// A session grants full access to its owner's data; an API key grants only
// the scopes it was issued with.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/credential"
	"github.com/starford/recall/internal/metrics"
	"github.com/starford/recall/internal/models"
)

// Channel records how a caller authenticated.
type Channel string

const (
	ChannelSession Channel = "session"
	ChannelAPIKey  Channel = "api_key"
)

// AuthContext is the authenticated identity for one call. It is never
// persisted. Nil Scopes means full access to Owner's data; a non-nil slice
// restricts the caller to exactly those scopes.
type AuthContext struct {
	Owner        string         `json:"owner"`
	Channel      Channel        `json:"channel"`
	CredentialID string         `json:"credential_id,omitempty"`
	Scopes       []models.Scope `json:"scopes,omitempty"`
}

// Restricted reports whether the caller is limited to a scope set.
func (a *AuthContext) Restricted() bool {
	return a.Scopes != nil
}

// Credentials are the raw secrets presented by a caller.
type Credentials struct {
	SessionToken string
	Bearer       string
}

// Resolver turns presented credentials into an AuthContext. It returns
// apperr.ErrUnauthorized when the credentials are not its kind or are invalid.
type Resolver interface {
	Resolve(ctx context.Context, c Credentials) (*AuthContext, error)
}

// SessionVerifier validates a session token and returns its owner.
type SessionVerifier interface {
	Verify(token string) (string, error)
}

// KeyStore resolves an API key secret to its credential record.
type KeyStore interface {
	Resolve(ctx context.Context, secret string) (*models.ApiCredential, error)
}

// SessionResolver accepts a session token from the cookie, or from the
// bearer header when the bearer is not an API key.
type SessionResolver struct {
	Sessions SessionVerifier
}

func (r SessionResolver) Resolve(_ context.Context, c Credentials) (*AuthContext, error) {
	token := c.SessionToken
	if token == "" && c.Bearer != "" && !isAPIKey(c.Bearer) {
		token = c.Bearer
	}
	if token == "" {
		return nil, apperr.ErrUnauthorized
	}
	owner, err := r.Sessions.Verify(token)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrUnauthorized, err)
	}
	return &AuthContext{Owner: owner, Channel: ChannelSession}, nil
}

// KeyResolver accepts an API key presented as a bearer token.
type KeyResolver struct {
	Keys KeyStore
}

func (r KeyResolver) Resolve(ctx context.Context, c Credentials) (*AuthContext, error) {
	if !isAPIKey(c.Bearer) {
		return nil, apperr.ErrUnauthorized
	}
	cred, err := r.Keys.Resolve(ctx, c.Bearer)
	if err != nil {
		return nil, err
	}
	scopes := slices.Clone(cred.Scopes)
	if scopes == nil {
		scopes = []models.Scope{}
	}
	return &AuthContext{
		Owner:        cred.Owner,
		Channel:      ChannelAPIKey,
		CredentialID: cred.ID,
		Scopes:       scopes,
	}, nil
}

func isAPIKey(s string) bool {
	return strings.HasPrefix(s, credential.KeyPrefix)
}

// Gateway runs the resolver chain and applies per-key rate limits.
type Gateway struct {
	resolvers []Resolver
	limiter   *keyLimiter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithKeyRate limits each API key to perMinute calls. Zero disables limiting.
func WithKeyRate(perMinute int) Option {
	return func(g *Gateway) { g.limiter = newKeyLimiter(perMinute) }
}

// WithMetrics records authentication outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a gateway that tries resolvers in order.
func New(resolvers []Resolver, opts ...Option) *Gateway {
	g := &Gateway{resolvers: resolvers, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate returns the AuthContext for c. It fails with
// apperr.ErrUnauthorized when no resolver accepts the credentials and with
// apperr.ErrRateLimited when a key exceeds its rate.
func (g *Gateway) Authenticate(ctx context.Context, c Credentials) (*AuthContext, error) {
	for _, r := range g.resolvers {
		ac, err := r.Resolve(ctx, c)
		if err == nil {
			if ac.Channel == ChannelAPIKey && !g.limiter.allow(ac.CredentialID) {
				g.metrics.AuthAttempt(string(ac.Channel), "rate_limited")
				return nil, apperr.ErrRateLimited
			}
			g.metrics.AuthAttempt(string(ac.Channel), "ok")
			return ac, nil
		}
		if !errors.Is(err, apperr.ErrUnauthorized) {
			g.logger.Error("credential resolution failed", slog.String("error", err.Error()))
			return nil, err
		}
	}
	g.metrics.AuthAttempt(presentedChannel(c), "unauthorized")
	return nil, apperr.ErrUnauthorized
}

func presentedChannel(c Credentials) string {
	switch {
	case isAPIKey(c.Bearer):
		return string(ChannelAPIKey)
	case c.SessionToken != "" || c.Bearer != "":
		return string(ChannelSession)
	}
	return "none"
}

// Operation is a note operation subject to authorization.
type Operation string

const (
	OpSearch Operation = "search"
	OpList   Operation = "list"
	OpGet    Operation = "get"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

var requiredScope = map[Operation]models.Scope{
	OpSearch: models.ScopeNotesRead,
	OpList:   models.ScopeNotesRead,
	OpGet:    models.ScopeNotesRead,
	OpCreate: models.ScopeNotesCreate,
	OpUpdate: models.ScopeNotesUpdate,
	OpDelete: models.ScopeNotesDelete,
}

// RequiredScope returns the scope op needs and whether op is known.
func RequiredScope(op Operation) (models.Scope, bool) {
	s, ok := requiredScope[op]
	return s, ok
}

// RequirePermission allows op for unrestricted callers and for restricted
// callers holding the op's scope. Unknown operations are always denied.
func RequirePermission(ac *AuthContext, op Operation) error {
	if ac == nil {
		return apperr.ErrUnauthorized
	}
	scope, ok := requiredScope[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", apperr.ErrPermissionDenied, op)
	}
	if !ac.Restricted() {
		return nil
	}
	if !slices.Contains(ac.Scopes, scope) {
		return fmt.Errorf("%w: %s requires %s", apperr.ErrPermissionDenied, op, scope)
	}
	return nil
}

// RequireSession allows only session callers. API keys can never manage keys.
func RequireSession(ac *AuthContext) error {
	if ac == nil {
		return apperr.ErrUnauthorized
	}
	if ac.Channel != ChannelSession {
		return fmt.Errorf("%w: key management requires a session", apperr.ErrPermissionDenied)
	}
	return nil
}

type ctxKey struct{}

// WithAuth returns a copy of ctx carrying ac.
func WithAuth(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the AuthContext stored by WithAuth.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(ctxKey{}).(*AuthContext)
	return ac, ok && ac != nil
}
