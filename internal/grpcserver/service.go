package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "luminous.v1.Library"

const (
	MethodGetLibraryState      = "GetLibraryState"
	MethodGetSeriesBySlug      = "GetSeriesBySlug"
	MethodGetSignal            = "GetSignal"
	MethodGetWorldMap          = "GetWorldMap"
	MethodSaveProgress         = "SaveProgress"
	MethodCompleteTransmission = "CompleteTransmission"
)

type LibraryServer interface {
	GetLibraryState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSeriesBySlug(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSignal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWorldMap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveProgress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteTransmission(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(LibraryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, fn unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(LibraryServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(LibraryServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// ServiceDesc is written by hand; there is no generated code.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LibraryServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodGetLibraryState, LibraryServer.GetLibraryState),
		method(MethodGetSeriesBySlug, LibraryServer.GetSeriesBySlug),
		method(MethodGetSignal, LibraryServer.GetSignal),
		method(MethodGetWorldMap, LibraryServer.GetWorldMap),
		method(MethodSaveProgress, LibraryServer.SaveProgress),
		method(MethodCompleteTransmission, LibraryServer.CompleteTransmission),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "luminous/v1/library",
}

func Register(s grpc.ServiceRegistrar, srv LibraryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
