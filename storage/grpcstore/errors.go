package grpcstore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"registra.dev/registra/storage"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.AlreadyExists:
		return storage.ErrAlreadyExists
	case codes.Aborted:
		// Server uses Aborted for the optimistic hash check failing.
		return storage.ErrHashConflict
	case codes.DataLoss:
		return storage.ErrCorrupt
	case codes.InvalidArgument:
		return storage.ErrInput
	default:
		// Best-effort: if the server sent a known storage error message, preserve it.
		switch st.Message() {
		case storage.ErrNotFound.Error():
			return storage.ErrNotFound
		case storage.ErrAlreadyExists.Error():
			return storage.ErrAlreadyExists
		case storage.ErrHashConflict.Error():
			return storage.ErrHashConflict
		case storage.ErrCorrupt.Error():
			return storage.ErrCorrupt
		default:
			return err
		}
	}
}
