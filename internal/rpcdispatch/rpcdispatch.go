// Package rpcdispatch is a gRPC gateway that routes protobuf google.protobuf.Any
// payloads through the dispatch engine, keyed by the payload's dynamic
// message descriptor full name. Grounded on
// internal/evaluator/builtins_grpc.go's use of
// github.com/jhump/protoreflect/desc and .../dynamic to load descriptors
// and decode messages at runtime without generated Go structs, plus its
// protoRegistry/protoRegistryMutex package-level registry pattern.
package rpcdispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"github.com/plumdispatch/plum/internal/dispatcher"
	"github.com/plumdispatch/plum/internal/predicate"
)

// protoTypeRegistry maps a fully-qualified protobuf message name to its
// descriptor, populated by RegisterDescriptor (typically once per .proto
// file loaded at startup). Mirrors the teacher's protoRegistry /
// protoRegistryMutex pair.
var (
	protoTypeRegistry      = map[string]*desc.MessageDescriptor{}
	protoTypeRegistryMutex sync.RWMutex
)

// RegisterDescriptor records md under its fully-qualified name so that a
// future Dispatch call carrying an Any payload of that type can be decoded
// and matched against the predicate ProtoPredicate builds for the same name.
func RegisterDescriptor(md *desc.MessageDescriptor) {
	protoTypeRegistryMutex.Lock()
	defer protoTypeRegistryMutex.Unlock()
	protoTypeRegistry[md.GetFullyQualifiedName()] = md
}

func lookupDescriptor(name string) (*desc.MessageDescriptor, bool) {
	protoTypeRegistryMutex.RLock()
	defer protoTypeRegistryMutex.RUnlock()
	md, ok := protoTypeRegistry[name]
	return md, ok
}

// ProtoPredicate builds a predicate.Literal matching the protoKey value of
// the named protobuf type, which stands in for the matched "runtime
// class" — Go has no reflect.Type for a
// dynamically-loaded proto message the way it does for a compiled struct,
// so the fully-qualified descriptor name stands in for one.
func ProtoPredicate(fullyQualifiedName string) predicate.TypePredicate {
	return predicate.NewLiteral(protoKey(fullyQualifiedName))
}

type protoKey string

// Gateway routes Any-wrapped protobuf messages through a Dispatcher,
// selecting the dispatched method by the payload's message type name.
type Gateway struct {
	Dispatcher *dispatcher.Dispatcher
	// FunctionName is the Dispatcher entry every decoded message is routed
	// through; the message's own type name becomes the dispatch argument
	// (via protoKey), so a single Function with one method per accepted
	// message type implements the whole RPC surface.
	FunctionName string
}

// NewGateway builds a Gateway over d, routing every call through the
// Function named fn.
func NewGateway(d *dispatcher.Dispatcher, fn string) *Gateway {
	return &Gateway{Dispatcher: d, FunctionName: fn}
}

// UnsupportedMessageError reports that an incoming Any payload's message
// type has no registered descriptor, so it cannot be decoded for dispatch.
type UnsupportedMessageError struct {
	TypeURL string
}

func (e *UnsupportedMessageError) Error() string {
	return fmt.Sprintf("rpcdispatch: no registered descriptor for %s", e.TypeURL)
}

// Dispatch unpacks req, resolves the matching method by its fully-qualified
// protobuf message name, invokes it with the decoded dynamic.Message, and
// repacks the method's result (expected to be a proto.Message) back into an
// Any for the reply.
func (g *Gateway) Dispatch(ctx context.Context, req *anypb.Any) (*anypb.Any, error) {
	fullName, err := messageNameFromTypeURL(req.GetTypeUrl())
	if err != nil {
		return nil, err
	}

	md, ok := lookupDescriptor(fullName)
	if !ok {
		return nil, &UnsupportedMessageError{TypeURL: req.GetTypeUrl()}
	}

	msg := dynamic.NewMessage(md)
	if err := proto.Unmarshal(req.GetValue(), msg); err != nil {
		return nil, fmt.Errorf("rpcdispatch: decoding %s: %w", fullName, err)
	}

	results, err := g.Dispatcher.Call(g.FunctionName, protoKey(fullName), msg, ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("rpcdispatch: %s: method returned no value", g.FunctionName)
	}

	out, ok := results[0].(proto.Message)
	if !ok {
		return nil, fmt.Errorf("rpcdispatch: %s: method result of type %T is not a proto.Message", g.FunctionName, results[0])
	}
	reply, err := anypb.New(out)
	if err != nil {
		return nil, fmt.Errorf("rpcdispatch: packing reply: %w", err)
	}
	return reply, nil
}

// serviceName is the single synthetic gRPC service this package exposes:
// one unary method, Dispatch, carrying an Any envelope whose payload type
// selects the handler — the same shape a generated single-RPC gateway
// service would have.
const serviceName = "plum.rpcdispatch.Gateway"

// Register attaches g to s as a single-method gRPC service, matching
// internal/evaluator/builtins_grpc.go's builtinGrpcRegister: a
// grpc.ServiceDesc built at runtime (not from a generated .pb.go), with one
// grpc.MethodDesc whose Handler decodes the request and calls into g.
func Register(s *grpc.Server, g *Gateway) {
	sd := &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Dispatch",
				Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
					req := &anypb.Any{}
					if err := dec(req); err != nil {
						return nil, err
					}
					gw := srv.(*Gateway)
					if interceptor == nil {
						return gw.Dispatch(ctx, req)
					}
					info := &grpc.UnaryServerInfo{Server: gw, FullMethod: "/" + serviceName + "/Dispatch"}
					handler := func(ctx context.Context, req interface{}) (interface{}, error) {
						return gw.Dispatch(ctx, req.(*anypb.Any))
					}
					return interceptor(ctx, req, info, handler)
				},
			},
		},
	}
	s.RegisterService(sd, g)
}

func messageNameFromTypeURL(typeURL string) (string, error) {
	for i := len(typeURL) - 1; i >= 0; i-- {
		if typeURL[i] == '/' {
			return typeURL[i+1:], nil
		}
	}
	if typeURL == "" {
		return "", fmt.Errorf("rpcdispatch: empty type URL")
	}
	return typeURL, nil
}
