package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tresorly.v1.Tresorly"

// API is the server side of the Tresorly service. *GRPCServer implements it.
type API interface {
	Ping(context.Context, *Empty) (*StatusResponse, error)

	Signup(context.Context, *SignupRequest) (*SignupResponse, error)
	VerifySignup(context.Context, *OTPRequest) (*UserResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	VerifyTwoFactor(context.Context, *OTPRequest) (*LoginResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenResponse, error)
	Logout(context.Context, *Empty) (*StatusResponse, error)
	RequestPasswordReset(context.Context, *EmailRequest) (*StatusResponse, error)
	ResendPasswordReset(context.Context, *EmailRequest) (*StatusResponse, error)
	VerifyPasswordReset(context.Context, *OTPRequest) (*StatusResponse, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*StatusResponse, error)
	OAuthLogin(context.Context, *OAuthLoginRequest) (*LoginResponse, error)

	CreateVault(context.Context, *VaultRequest) (*VaultResponse, error)
	ListVaults(context.Context, *Empty) (*VaultListResponse, error)
	GetVault(context.Context, *VaultIDRequest) (*VaultResponse, error)
	UpdateVault(context.Context, *UpdateVaultRequest) (*VaultResponse, error)
	DeleteVault(context.Context, *VaultIDRequest) (*StatusResponse, error)
	CategoryCounts(context.Context, *Empty) (*CategoryCountsResponse, error)
	RecentlyUsed(context.Context, *LimitRequest) (*VaultListResponse, error)
	Favorites(context.Context, *Empty) (*VaultListResponse, error)
	MostRecentlyEdited(context.Context, *LimitRequest) (*VaultListResponse, error)
	ToggleFavorite(context.Context, *VaultIDRequest) (*FavoriteResponse, error)
	VaultIconURL(context.Context, *VaultIDRequest) (*IconURLResponse, error)

	Profile(context.Context, *Empty) (*UserResponse, error)
	UpdateProfile(context.Context, *ProfileRequest) (*UserResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*StatusResponse, error)
	ToggleTwoFactor(context.Context, *Empty) (*UserResponse, error)
	ToggleBiometric(context.Context, *Empty) (*UserResponse, error)
	ToggleNotification(context.Context, *NotificationRequest) (*UserResponse, error)
	DeleteAccount(context.Context, *Empty) (*StatusResponse, error)

	ListAllVaults(context.Context, *Empty) (*VaultListResponse, error)
	WipeUserVaults(context.Context, *UserIDRequest) (*WipeResponse, error)
	SetAccountStatus(context.Context, *AccountStatusRequest) (*UserResponse, error)
}

// FullMethod returns the gRPC path of a method of the service.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// method adapts an API method expression to a grpc.MethodDesc.
func method[Req, Resp any](name string, call func(API, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(name)}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(API), ctx, in)
			}
			info := *info
			info.Server = srv
			return interceptor(ctx, in, &info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(API), ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes the Tresorly service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*API)(nil),
	Methods: []grpc.MethodDesc{
		method("Ping", API.Ping),

		method("Signup", API.Signup),
		method("VerifySignup", API.VerifySignup),
		method("Login", API.Login),
		method("VerifyTwoFactor", API.VerifyTwoFactor),
		method("Refresh", API.Refresh),
		method("Logout", API.Logout),
		method("RequestPasswordReset", API.RequestPasswordReset),
		method("ResendPasswordReset", API.ResendPasswordReset),
		method("VerifyPasswordReset", API.VerifyPasswordReset),
		method("ResetPassword", API.ResetPassword),
		method("OAuthLogin", API.OAuthLogin),

		method("CreateVault", API.CreateVault),
		method("ListVaults", API.ListVaults),
		method("GetVault", API.GetVault),
		method("UpdateVault", API.UpdateVault),
		method("DeleteVault", API.DeleteVault),
		method("CategoryCounts", API.CategoryCounts),
		method("RecentlyUsed", API.RecentlyUsed),
		method("Favorites", API.Favorites),
		method("MostRecentlyEdited", API.MostRecentlyEdited),
		method("ToggleFavorite", API.ToggleFavorite),
		method("VaultIconURL", API.VaultIconURL),

		method("Profile", API.Profile),
		method("UpdateProfile", API.UpdateProfile),
		method("ChangePassword", API.ChangePassword),
		method("ToggleTwoFactor", API.ToggleTwoFactor),
		method("ToggleBiometric", API.ToggleBiometric),
		method("ToggleNotification", API.ToggleNotification),
		method("DeleteAccount", API.DeleteAccount),

		method("ListAllVaults", API.ListAllVaults),
		method("WipeUserVaults", API.WipeUserVaults),
		method("SetAccountStatus", API.SetAccountStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tresorly.v1",
}
