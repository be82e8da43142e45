package grpc

import (
	"context"
	"fmt"
)

func (s *GRPCServer) CreateVault(ctx context.Context, req *VaultRequest) (*VaultResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.vaults.Create(ctx, owner, toVaultInput(req))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultResponse{Status: success("Vault created successfully"), Vault: v}, nil
}

func (s *GRPCServer) ListVaults(ctx context.Context, _ *Empty) (*VaultListResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.vaults.ListForOwner(ctx, owner)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultListResponse{Status: success("Vaults fetched"), Vaults: list}, nil
}

func (s *GRPCServer) GetVault(ctx context.Context, req *VaultIDRequest) (*VaultResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.vaults.GetByID(ctx, owner, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultResponse{Status: success("Vault fetched"), Vault: v}, nil
}

func (s *GRPCServer) UpdateVault(ctx context.Context, req *UpdateVaultRequest) (*VaultResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	v, err := s.vaults.Update(ctx, owner, req.ID, toVaultPatch(&req.VaultRequest))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultResponse{Status: success("Vault updated successfully"), Vault: v}, nil
}

func (s *GRPCServer) DeleteVault(ctx context.Context, req *VaultIDRequest) (*StatusResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.vaults.Delete(ctx, owner, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &StatusResponse{Status: success("Vault deleted successfully")}, nil
}

func (s *GRPCServer) CategoryCounts(ctx context.Context, _ *Empty) (*CategoryCountsResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.vaults.CategoryCounts(ctx, owner)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &CategoryCountsResponse{Status: success("Vault counts fetched"), Counts: counts}, nil
}

func (s *GRPCServer) RecentlyUsed(ctx context.Context, req *LimitRequest) (*VaultListResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.vaults.RecentlyUsed(ctx, owner, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultListResponse{Status: success("Recently used vaults fetched"), Vaults: list}, nil
}

func (s *GRPCServer) Favorites(ctx context.Context, _ *Empty) (*VaultListResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.vaults.Favorites(ctx, owner)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultListResponse{Status: success("Favorite vaults fetched"), Vaults: list}, nil
}

func (s *GRPCServer) MostRecentlyEdited(ctx context.Context, req *LimitRequest) (*VaultListResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.vaults.MostRecentlyEdited(ctx, owner, req.Limit)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultListResponse{Status: success("Recently edited vaults fetched"), Vaults: list}, nil
}

func (s *GRPCServer) ToggleFavorite(ctx context.Context, req *VaultIDRequest) (*FavoriteResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	liked, err := s.vaults.ToggleFavorite(ctx, owner, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	msg := "Vault removed from favorites"
	if liked {
		msg = "Vault added to favorites"
	}
	return &FavoriteResponse{Status: success(msg), IsLiked: liked}, nil
}

func (s *GRPCServer) VaultIconURL(ctx context.Context, req *VaultIDRequest) (*IconURLResponse, error) {
	owner, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	url, err := s.vaults.IconURL(ctx, owner, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &IconURLResponse{Status: success("Icon URL issued"), URL: url}, nil
}

func (s *GRPCServer) ListAllVaults(ctx context.Context, _ *Empty) (*VaultListResponse, error) {
	actor, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.vaults.ListAll(ctx, actor)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &VaultListResponse{Status: success("All vaults fetched"), Vaults: list}, nil
}

func (s *GRPCServer) WipeUserVaults(ctx context.Context, req *UserIDRequest) (*WipeResponse, error) {
	actor, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.vaults.WipeForUser(ctx, actor, req.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &WipeResponse{Status: success(fmt.Sprintf("%d vaults deleted", n)), Deleted: n}, nil
}
