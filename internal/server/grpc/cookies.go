package grpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// tokenFromMetadata looks for a token in the named cookie first and falls
// back to an "authorization: Bearer" header.
func tokenFromMetadata(ctx context.Context, cookieName string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	for _, header := range md.Get(common.CookieHeader) {
		cookies, err := http.ParseCookie(header)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == cookieName && c.Value != "" {
				return c.Value
			}
		}
	}

	for _, v := range md.Get(common.AuthorizationHeader) {
		if len(v) > len(common.BearerPrefix) && strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
			return strings.TrimSpace(v[len(common.BearerPrefix):])
		}
	}
	return ""
}

func (s *GRPCServer) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
	} else {
		c.MaxAge = -1
	}
	return c
}

// setTokenCookies sends both tokens as HTTP-only cookies in the response
// header. Outside a real RPC (direct handler calls) there is no header to
// set, which is fine.
func (s *GRPCServer) setTokenCookies(ctx context.Context, access, refresh string) {
	s.sendCookies(ctx,
		s.cookie(common.AccessTokenCookieName, access, s.tokens.AccessTTL()),
		s.cookie(common.RefreshTokenCookieName, refresh, s.tokens.RefreshTTL()),
	)
}

// clearTokenCookies expires both token cookies.
func (s *GRPCServer) clearTokenCookies(ctx context.Context) {
	s.sendCookies(ctx,
		s.cookie(common.AccessTokenCookieName, "", 0),
		s.cookie(common.RefreshTokenCookieName, "", 0),
	)
}

func (s *GRPCServer) sendCookies(ctx context.Context, cookies ...*http.Cookie) {
	md := metadata.MD{}
	for _, c := range cookies {
		md.Append(common.SetCookieHeader, c.String())
	}
	_ = grpc.SetHeader(ctx, md)
}
