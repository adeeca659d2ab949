// Package v1 defines the tsh.v1.JobControl gRPC service.
//
// The service only uses protobuf well-known types for its messages, so the
// descriptor, server and client are written out here in the same shape
// protoc-gen-go-grpc would generate them, without a .proto build step. The
// payload layouts are described in payload.go.
package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "tsh.v1.JobControl"

const (
	JobControl_ListJobs_FullMethodName  = "/tsh.v1.JobControl/ListJobs"
	JobControl_ResumeJob_FullMethodName = "/tsh.v1.JobControl/ResumeJob"
	JobControl_SignalJob_FullMethodName = "/tsh.v1.JobControl/SignalJob"
)

// JobControlClient is the client API for the JobControl service.
type JobControlClient interface {
	// ListJobs returns the session ID and a snapshot of the job table.
	ListJobs(
		ctx context.Context,
		in *emptypb.Empty,
		opts ...grpc.CallOption,
	) (*structpb.Struct, error)

	// ResumeJob continues a job in the background, like the bg built-in.
	ResumeJob(
		ctx context.Context,
		in *wrapperspb.StringValue,
		opts ...grpc.CallOption,
	) (*structpb.Struct, error)

	// SignalJob sends a signal to the process group of a job.
	SignalJob(
		ctx context.Context,
		in *structpb.Struct,
		opts ...grpc.CallOption,
	) (*structpb.Struct, error)
}

type jobControlClient struct {
	cc grpc.ClientConnInterface
}

func NewJobControlClient(cc grpc.ClientConnInterface) JobControlClient {
	return &jobControlClient{cc}
}

func (c *jobControlClient) ListJobs(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)

	if err := c.cc.Invoke(
		ctx,
		JobControl_ListJobs_FullMethodName,
		in,
		out,
		opts...,
	); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *jobControlClient) ResumeJob(
	ctx context.Context,
	in *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)

	if err := c.cc.Invoke(
		ctx,
		JobControl_ResumeJob_FullMethodName,
		in,
		out,
		opts...,
	); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *jobControlClient) SignalJob(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)

	if err := c.cc.Invoke(
		ctx,
		JobControl_SignalJob_FullMethodName,
		in,
		out,
		opts...,
	); err != nil {
		return nil, err
	}

	return out, nil
}

// JobControlServer is the server API for the JobControl service. Embed
// UnimplementedJobControlServer for forward compatibility.
type JobControlServer interface {
	ListJobs(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ResumeJob(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SignalJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type UnimplementedJobControlServer struct{}

func (UnimplementedJobControlServer) ListJobs(
	context.Context,
	*emptypb.Empty,
) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListJobs not implemented")
}

func (UnimplementedJobControlServer) ResumeJob(
	context.Context,
	*wrapperspb.StringValue,
) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ResumeJob not implemented")
}

func (UnimplementedJobControlServer) SignalJob(
	context.Context,
	*structpb.Struct,
) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignalJob not implemented")
}

func RegisterJobControlServer(s grpc.ServiceRegistrar, srv JobControlServer) {
	s.RegisterService(&JobControl_ServiceDesc, srv)
}

func _JobControl_ListJobs_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(JobControlServer).ListJobs(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: JobControl_ListJobs_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobControlServer).ListJobs(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func _JobControl_ResumeJob_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(JobControlServer).ResumeJob(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: JobControl_ResumeJob_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobControlServer).ResumeJob(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

func _JobControl_SignalJob_Handler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(JobControlServer).SignalJob(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: JobControl_SignalJob_FullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobControlServer).SignalJob(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

// JobControl_ServiceDesc is the grpc.ServiceDesc for the JobControl service.
var JobControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListJobs",
			Handler:    _JobControl_ListJobs_Handler,
		},
		{
			MethodName: "ResumeJob",
			Handler:    _JobControl_ResumeJob_Handler,
		},
		{
			MethodName: "SignalJob",
			Handler:    _JobControl_SignalJob_Handler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
