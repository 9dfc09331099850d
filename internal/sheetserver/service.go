// Package sheetserver exposes sheet workspaces over gRPC. Every method of
// pokesheet.v1.SheetService takes and returns a google.protobuf.Struct.
package sheetserver

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pokesheet.v1.SheetService"

// Method names of ServiceName.
const (
	MethodSelectSpecies = "SelectSpecies"
	MethodGetSheet      = "GetSheet"
	MethodLevelUp       = "LevelUp"
	MethodMutate        = "Mutate"
	MethodSwapSlots     = "SwapSlots"
	MethodClearSlot     = "ClearSlot"
	MethodListRoster    = "ListRoster"
)

// SheetServiceServer is the server API of ServiceName.
type SheetServiceServer interface {
	SelectSpecies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSheet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	LevelUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Mutate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SwapSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ClearSlot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRoster(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv SheetServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SheetServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(SheetServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc describes ServiceName for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SheetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodSelectSpecies, SheetServiceServer.SelectSpecies),
		unary(MethodGetSheet, SheetServiceServer.GetSheet),
		unary(MethodLevelUp, SheetServiceServer.LevelUp),
		unary(MethodMutate, SheetServiceServer.Mutate),
		unary(MethodSwapSlots, SheetServiceServer.SwapSlots),
		unary(MethodClearSlot, SheetServiceServer.ClearSlot),
		unary(MethodListRoster, SheetServiceServer.ListRoster),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pokesheet/v1/sheet.proto",
}

// Register installs srv on s.
func Register(s grpc.ServiceRegistrar, srv SheetServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the invocation path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Client invokes ServiceName over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with req encoded as a Struct.
//
// Precondition: every value of req is representable by structpb.NewValue.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectSpecies applies speciesID to roster slot of owner.
func (c *Client) SelectSpecies(ctx context.Context, owner string, slot, speciesID int) (*structpb.Struct, error) {
	return c.Call(ctx, MethodSelectSpecies, map[string]any{"owner": owner, "slot": slot, "speciesId": speciesID})
}

// GetSheet returns the addressed sheet of owner.
func (c *Client) GetSheet(ctx context.Context, owner string) (*structpb.Struct, error) {
	return c.Call(ctx, MethodGetSheet, map[string]any{"owner": owner})
}

// LevelUp levels the addressed sheet of owner once.
func (c *Client) LevelUp(ctx context.Context, owner string) (*structpb.Struct, error) {
	return c.Call(ctx, MethodLevelUp, map[string]any{"owner": owner})
}

// Mutate applies op with args to the addressed sheet of owner.
func (c *Client) Mutate(ctx context.Context, owner, op string, args map[string]any) (*structpb.Struct, error) {
	req := map[string]any{"owner": owner, "op": op}
	for k, v := range args {
		req[k] = v
	}
	return c.Call(ctx, MethodMutate, req)
}

// SwapSlots exchanges roster slots a and b of owner.
func (c *Client) SwapSlots(ctx context.Context, owner string, a, b int) (*structpb.Struct, error) {
	return c.Call(ctx, MethodSwapSlots, map[string]any{"owner": owner, "a": a, "b": b})
}

// ClearSlot empties roster slot of owner.
func (c *Client) ClearSlot(ctx context.Context, owner string, slot int) (*structpb.Struct, error) {
	return c.Call(ctx, MethodClearSlot, map[string]any{"owner": owner, "slot": slot})
}

// ListRoster returns every roster slot of owner.
func (c *Client) ListRoster(ctx context.Context, owner string) (*structpb.Struct, error) {
	return c.Call(ctx, MethodListRoster, map[string]any{"owner": owner})
}
