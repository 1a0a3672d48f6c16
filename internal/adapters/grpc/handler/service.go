package handler

import (
	"context"
	"sort"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const servicePrefix = "stockly.v1."

// unaryMethod は Struct を受け取り Struct を返す RPC 本体です。
type unaryMethod func(ctx context.Context, req *request) (object, error)

// Registrar は gRPC サーバーへサービスを登録できるハンドラです。
type Registrar interface {
	Register(s grpc.ServiceRegistrar)
}

// newServiceDesc はメソッド表から ServiceDesc を組み立てます。
// メッセージはすべて google.protobuf.Struct です。
func newServiceDesc(service string, methods map[string]unaryMethod) *grpc.ServiceDesc {
	fullName := servicePrefix + service
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	desc := &grpc.ServiceDesc{
		ServiceName: fullName,
		HandlerType: (*interface{})(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "stockly/v1/" + service,
	}
	for _, name := range names {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    methodHandler("/"+fullName+"/"+name, methods[name]),
		})
	}
	return desc
}

func methodHandler(fullMethod string, fn unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req interface{}) (interface{}, error) {
			return invoke(ctx, req.(*structpb.Struct), fn)
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, call)
	}
}

func invoke(ctx context.Context, in *structpb.Struct, fn unaryMethod) (*structpb.Struct, error) {
	out, err := fn(ctx, newRequest(in))
	if err != nil {
		return nil, toStatusError(err)
	}
	return reply(out)
}

func pageObject(key string, items []interface{}, nextPageToken string) object {
	return object{key: items, "next_page_token": nextPageToken}
}
