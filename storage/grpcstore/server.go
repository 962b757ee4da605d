package grpcstore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"registra.dev/registra/register"
	"registra.dev/registra/storage"
)

// Server exposes a storage.Store over the RegisterStore gRPC service.
type Server struct {
	UnimplementedRegisterStoreServer
	Store storage.Store
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	// Decode on the server side too, so a misbehaving client cannot park
	// unverifiable bytes behind a backend that trusts this frontend.
	reg, err := storage.DecodeRecord(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Store.Put(reg); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(reg.ContentHash.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id := register.ID(in.GetValue())
	if !id.Defined() {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInput.Error())
	}
	reg, err := s.Store.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}
	record, err := storage.EncodeRecord(reg)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(record), nil
}

func (s *Server) Update(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	expected, record, err := decodeUpdate(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	reg, err := storage.DecodeRecord(record)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Store.Update(reg, expected); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(reg.ContentHash.String()), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id := register.ID(in.GetValue())
	if !id.Defined() {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInput.Error())
	}
	return wrapperspb.Bool(s.Store.Has(id)), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, storage.ErrNotFound.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, storage.ErrAlreadyExists.Error())
	case errors.Is(err, storage.ErrHashConflict):
		return status.Error(codes.Aborted, storage.ErrHashConflict.Error())
	case errors.Is(err, storage.ErrCorrupt):
		return status.Error(codes.DataLoss, storage.ErrCorrupt.Error())
	case errors.Is(err, storage.ErrInput):
		return status.Error(codes.InvalidArgument, storage.ErrInput.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
