package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/vaultkeeper/internal/common"
	"github.com/dmitrijs2005/vaultkeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ChallengeTrailer is the trailer key carrying the security question when
// Login fails with FailedPrecondition.
const ChallengeTrailer = "challenge-question"

// toStatus maps service errors to gRPC statuses. Unknown errors are logged
// and reported as Internal without details.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var challenge *services.ChallengeRequired

	switch {
	case errors.As(err, &challenge):
		_ = grpc.SetTrailer(ctx, metadata.Pairs(ChallengeTrailer, challenge.Question))
		return status.Error(codes.FailedPrecondition, challenge.Error())
	case errors.Is(err, common.ErrAccountDestroyed):
		return status.Error(codes.PermissionDenied, common.ErrAccountDestroyed.Error())
	case errors.Is(err, common.ErrAccountDisabled):
		return status.Error(codes.PermissionDenied, common.ErrAccountDisabled.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrQuotaExceeded), errors.Is(err, common.ErrFileTooLarge):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, common.ErrFrozen):
		return status.Error(codes.FailedPrecondition, common.ErrFrozen.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrDecryptionFailed):
		return status.Error(codes.DataLoss, common.ErrDecryptionFailed.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
