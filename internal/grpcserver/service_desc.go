package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// 그림 분석 gRPC 서비스 이름과 메서드 경로.
const (
	AnalysisServiceName     = "drawing.v1.AnalysisService"
	AnalyzeFullMethod       = "/" + AnalysisServiceName + "/Analyze"
	TaskTypesFullMethod     = "/" + AnalysisServiceName + "/TaskTypes"
	analysisServiceMetadata = "drawing/v1/analysis.proto"
)

// AnalysisServer 는 그림 분석 gRPC 서비스 구현 인터페이스다.
// 메시지는 google.protobuf.Struct 로 주고받으며 필드 이름은 HTTP JSON 과 같다.
type AnalysisServer interface {
	Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	TaskTypes(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterAnalysisServer 는 서비스를 gRPC 서버에 등록한다.
func RegisterAnalysisServer(registrar grpc.ServiceRegistrar, srv AnalysisServer) {
	registrar.RegisterService(&analysisServiceDesc, srv)
}

var analysisServiceDesc = grpc.ServiceDesc{
	ServiceName: AnalysisServiceName,
	HandlerType: (*AnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
		{MethodName: "TaskTypes", Handler: taskTypesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: analysisServiceMetadata,
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalysisServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalysisServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func taskTypesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalysisServer).TaskTypes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TaskTypesFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AnalysisServer).TaskTypes(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
