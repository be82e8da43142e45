package grpc

import (
	"context"

	"github.com/dmitrijs2005/tresorly/internal/server/models"
	"github.com/dmitrijs2005/tresorly/internal/server/services"
)

// userCall runs fn for the authenticated caller and wraps its result.
func (s *GRPCServer) userCall(ctx context.Context, message string,
	fn func(userID string) (*models.PublicUser, error)) (*UserResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	u, err := fn(userID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &UserResponse{Status: success(message), User: u}, nil
}

func (s *GRPCServer) Profile(ctx context.Context, _ *Empty) (*UserResponse, error) {
	return s.userCall(ctx, "Profile fetched", func(id string) (*models.PublicUser, error) {
		return s.accounts.Profile(ctx, id)
	})
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, req *ProfileRequest) (*UserResponse, error) {
	return s.userCall(ctx, "Profile updated", func(id string) (*models.PublicUser, error) {
		return s.accounts.UpdateProfile(ctx, id, services.ProfilePatch{
			Name:     req.Name,
			Phone:    req.Phone,
			Language: req.Language,
			Currency: req.Currency,
		})
	})
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*StatusResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &StatusResponse{Status: success("Password changed successfully")}, nil
}

func (s *GRPCServer) ToggleTwoFactor(ctx context.Context, _ *Empty) (*UserResponse, error) {
	return s.userCall(ctx, "Two-factor setting updated", func(id string) (*models.PublicUser, error) {
		return s.accounts.ToggleTwoFactor(ctx, id)
	})
}

func (s *GRPCServer) ToggleBiometric(ctx context.Context, _ *Empty) (*UserResponse, error) {
	return s.userCall(ctx, "Biometric setting updated", func(id string) (*models.PublicUser, error) {
		return s.accounts.ToggleBiometric(ctx, id)
	})
}

func (s *GRPCServer) ToggleNotification(ctx context.Context, req *NotificationRequest) (*UserResponse, error) {
	return s.userCall(ctx, "Notification setting updated", func(id string) (*models.PublicUser, error) {
		return s.accounts.ToggleNotification(ctx, id, req.Kind)
	})
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, _ *Empty) (*StatusResponse, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.DeleteAccount(ctx, userID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.clearTokenCookies(ctx)
	return &StatusResponse{Status: success("Account deleted successfully")}, nil
}

func (s *GRPCServer) SetAccountStatus(ctx context.Context, req *AccountStatusRequest) (*UserResponse, error) {
	return s.userCall(ctx, "Account status updated", func(actor string) (*models.PublicUser, error) {
		return s.accounts.SetAccountStatus(ctx, actor, req.UserID, req.Status)
	})
}
