package grpcstore

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"registra.dev/registra/content"
	"registra.dev/registra/register"
	"registra.dev/registra/storage"
)

// Client implements storage.Store over a RegisterStore gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client RegisterStoreClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.Store = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewRegisterStoreClient(cc), Timeout: 0}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(reg *register.Register) error {
	record, err := storage.EncodeRecord(reg)
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(record))
	if err != nil {
		return mapRPC(err)
	}
	if reply.GetValue() != reg.ContentHash.String() {
		return fmt.Errorf("%w: server acknowledged %s for %s",
			storage.ErrCorrupt, reply.GetValue(), reg.ContentHash)
	}
	return nil
}

func (c *Client) Get(id register.ID) (*register.Register, error) {
	if !id.Defined() {
		return nil, fmt.Errorf("%w: id is required", storage.ErrInput)
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	reg, err := storage.DecodeRecord(reply.GetValue())
	if err != nil {
		return nil, err
	}
	if reg.ID != id {
		return nil, fmt.Errorf("%w: server returned %s for %s", storage.ErrCorrupt, reg.ID, id)
	}
	return reg, nil
}

func (c *Client) Update(reg *register.Register, expected content.Hash) error {
	record, err := storage.EncodeRecord(reg)
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Update(ctx, wrapperspb.Bytes(encodeUpdate(expected, record)))
	if err != nil {
		return mapRPC(err)
	}
	if reply.GetValue() != reg.ContentHash.String() {
		return fmt.Errorf("%w: server acknowledged %s for %s",
			storage.ErrCorrupt, reply.GetValue(), reg.ContentHash)
	}
	return nil
}

func (c *Client) Has(id register.ID) bool {
	if !id.Defined() {
		return false
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
