package grpc

import (
	"context"

	"github.com/dmitrijs2005/tresorly/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var kindCodes = map[common.Kind]codes.Code{
	common.KindValidation:              codes.InvalidArgument,
	common.KindNotFound:                codes.NotFound,
	common.KindForbidden:               codes.PermissionDenied,
	common.KindUnauthorized:            codes.Unauthenticated,
	common.KindConflict:                codes.AlreadyExists,
	common.KindExternalServiceDegraded: codes.Unavailable,
	common.KindInternal:                codes.Internal,
}

// CodeOf maps an error kind to its gRPC status code.
func CodeOf(kind common.Kind) codes.Code {
	if c, ok := kindCodes[kind]; ok {
		return c
	}
	return codes.Internal
}

// toStatus converts a service error into a gRPC status carrying only the
// caller-facing message. Internal errors are logged with their cause.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	kind := common.KindOf(err)
	if kind == common.KindInternal {
		s.logger.Error(ctx, "request failed", "error", err)
	}
	return status.Error(CodeOf(kind), common.MessageOf(err))
}
