package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/netx"
	"github.com/dmitrijs2005/tresorly/internal/server/auth"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// publicMethods are served without an access token.
var publicMethods = map[string]bool{
	FullMethod("Ping"):                 true,
	FullMethod("Signup"):               true,
	FullMethod("VerifySignup"):         true,
	FullMethod("Login"):                true,
	FullMethod("VerifyTwoFactor"):      true,
	FullMethod("Refresh"):              true,
	FullMethod("Logout"):               true,
	FullMethod("RequestPasswordReset"): true,
	FullMethod("ResendPasswordReset"):  true,
	FullMethod("VerifyPasswordReset"):  true,
	FullMethod("ResetPassword"):        true,
	FullMethod("OAuthLogin"):           true,
}

// throttledMethods are the credential and code-guessing surfaces.
var throttledMethods = map[string]bool{
	FullMethod("Signup"):               true,
	FullMethod("VerifySignup"):         true,
	FullMethod("Login"):                true,
	FullMethod("VerifyTwoFactor"):      true,
	FullMethod("RequestPasswordReset"): true,
	FullMethod("ResendPasswordReset"):  true,
	FullMethod("VerifyPasswordReset"):  true,
	FullMethod("ResetPassword"):        true,
	FullMethod("OAuthLogin"):           true,
}

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// claimsFrom returns the claims stored by accessTokenInterceptor.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	token := tokenFromMetadata(ctx, common.AccessTokenCookieName)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		s.logger.Debug(ctx, "access token rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(withClaims(ctx, claims), req)
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if s.limiter == nil || !throttledMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var key string
	if p, ok := peer.FromContext(ctx); ok {
		key = netx.HostOf(p.Addr)
	}
	if !s.limiter.allow(key) {
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// peerLimiter keeps one token bucket per client host. Idle buckets are
// dropped so the map does not grow without bound.
type peerLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	peers     map[string]*limiterEntry
	lastPrune time.Time
	now       func() time.Time
}

// newPeerLimiter returns nil when perSecond disables throttling.
func newPeerLimiter(perSecond float64, burst int) *peerLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &peerLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		peers: map[string]*limiterEntry{},
		now:   time.Now,
	}
}

func (l *peerLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) > limiterIdle {
		for k, e := range l.peers {
			if now.Sub(e.seen) > limiterIdle {
				delete(l.peers, k)
			}
		}
		l.lastPrune = now
	}

	e, ok := l.peers[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.peers[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}
