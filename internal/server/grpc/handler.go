package grpc

import (
	"context"
	"crypto/subtle"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"github.com/dmitrijs2005/tresorly/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GatewaySecretHeader carries the shared secret of the OAuth gateway that
// vouches for OAuthLogin identities.
const GatewaySecretHeader = "x-gateway-secret"

func (s *GRPCServer) Ping(ctx context.Context, _ *Empty) (*StatusResponse, error) {
	return &StatusResponse{Status: success("OK")}, nil
}

func (s *GRPCServer) Signup(ctx context.Context, req *SignupRequest) (*SignupResponse, error) {
	expiry, err := s.auth.Signup(ctx, services.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &SignupResponse{Status: success("OTP sent to email"), OTPExpiry: expiry}, nil
}

func (s *GRPCServer) VerifySignup(ctx context.Context, req *OTPRequest) (*UserResponse, error) {
	u, err := s.auth.VerifySignup(ctx, req.Email, req.OTP)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &UserResponse{Status: success("User registered successfully"), User: u}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.loginResponse(ctx, res, "Login successful"), nil
}

func (s *GRPCServer) VerifyTwoFactor(ctx context.Context, req *OTPRequest) (*LoginResponse, error) {
	res, err := s.auth.VerifyTwoFactor(ctx, req.Email, req.OTP)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.loginResponse(ctx, res, "Login successful"), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *RefreshRequest) (*TokenResponse, error) {
	token := req.RefreshToken
	if token == "" {
		token = tokenFromMetadata(ctx, common.RefreshTokenCookieName)
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	pair, err := s.auth.Refresh(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.setTokenCookies(ctx, pair.AccessToken, pair.RefreshToken)
	return &TokenResponse{
		Status:       success("Token refreshed"),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *Empty) (*StatusResponse, error) {
	s.clearTokenCookies(ctx)
	return &StatusResponse{Status: success("Logged out")}, nil
}

func (s *GRPCServer) RequestPasswordReset(ctx context.Context, req *EmailRequest) (*StatusResponse, error) {
	if err := s.auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &StatusResponse{Status: success("OTP sent to email")}, nil
}

func (s *GRPCServer) ResendPasswordReset(ctx context.Context, req *EmailRequest) (*StatusResponse, error) {
	if err := s.auth.ResendPasswordReset(ctx, req.Email); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &StatusResponse{Status: success("OTP resent to email")}, nil
}

func (s *GRPCServer) VerifyPasswordReset(ctx context.Context, req *OTPRequest) (*StatusResponse, error) {
	if err := s.auth.VerifyPasswordReset(ctx, req.Email, req.OTP); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &StatusResponse{Status: success("OTP verified")}, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*StatusResponse, error) {
	if err := s.auth.ResetPassword(ctx, req.Email, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &StatusResponse{Status: success("Password reset successfully")}, nil
}

// OAuthLogin trusts the identity only when the call carries the configured
// gateway secret.
func (s *GRPCServer) OAuthLogin(ctx context.Context, req *OAuthLoginRequest) (*LoginResponse, error) {
	if s.opts.OAuthGatewaySecret == "" {
		return nil, status.Error(codes.PermissionDenied, "oauth login is disabled")
	}

	var got string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(GatewaySecretHeader); len(v) > 0 {
			got = v[0]
		}
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.OAuthGatewaySecret)) != 1 {
		return nil, status.Error(codes.PermissionDenied, "untrusted oauth gateway")
	}

	res, err := s.auth.OAuthLogin(ctx, services.OAuthIdentity{
		ProviderID: req.ProviderID,
		Email:      req.Email,
		Name:       req.Name,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.loginResponse(ctx, res, "Login successful"), nil
}

func (s *GRPCServer) loginResponse(ctx context.Context, res *services.LoginResult, message string) *LoginResponse {
	if res.RequiresTwoFactor {
		return &LoginResponse{Status: success("OTP sent to email"), RequiresTwoFactor: true}
	}

	s.setTokenCookies(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	return &LoginResponse{
		Status:       success(message),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User:         res.User,
	}
}

// caller returns the user id of the authenticated caller.
func (s *GRPCServer) caller(ctx context.Context) (string, error) {
	c, ok := claimsFrom(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return c.UserID, nil
}
