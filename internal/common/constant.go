package common

// Cookie and metadata names used to carry identity tokens.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
	AuthorizationHeader    = "authorization"
	CookieHeader           = "cookie"
	SetCookieHeader        = "set-cookie"
	BearerPrefix           = "Bearer "
)
