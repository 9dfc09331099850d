package sheetserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/pokesheet/internal/apply"
	"github.com/cory-johannsen/pokesheet/internal/game/sheet"
	"github.com/cory-johannsen/pokesheet/internal/game/species"
	"github.com/cory-johannsen/pokesheet/internal/roster"
	"github.com/cory-johannsen/pokesheet/internal/sheetsync"
)

// toStatus converts a domain error into a gRPC status error.
// Errors that already carry a status pass through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, apply.ErrBusy), errors.Is(err, apply.ErrStaleSelection):
		return codes.Aborted
	case errors.Is(err, species.ErrExternalDataUnavailable), errors.Is(err, sheetsync.ErrStorageFailure):
		return codes.Unavailable
	case errors.Is(err, roster.ErrSlotEmpty):
		return codes.NotFound
	case errors.Is(err, roster.ErrSlotOutOfRange):
		return codes.OutOfRange
	case errors.Is(err, sheet.ErrNotEligible), errors.Is(err, sheet.ErrNoDiceClass),
		errors.Is(err, sheetsync.ErrNoContext):
		return codes.FailedPrecondition
	case errors.Is(err, ErrClosed):
		return codes.Unavailable
	}
	return codes.Internal
}

func invalidArgument(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}
