// Package server exposes certificate verification over gRPC. Messages are google.protobuf.Struct
// values, so the service is registered from a hand-written descriptor instead of generated code.
package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "coa.v1.CertificateService"

// Full method names.
const (
	MethodVerify            = "/" + serviceName + "/Verify"
	MethodLookup            = "/" + serviceName + "/Lookup"
	MethodExportCertificate = "/" + serviceName + "/ExportCertificate"
)

// CertificateServer is the server API for coa.v1.CertificateService.
type CertificateServer interface {
	// Verify runs an uploaded certificate through intake.
	// Request: filename, content_base64, overwrite, selected_food, skip_food_validation.
	Verify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Lookup resolves one limit from the reference store, then the catalog.
	// Request: substance, food.
	Lookup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ExportCertificate renders a stored certificate as a workbook.
	// Request: certificate_number.
	ExportCertificate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// CertificateServiceDesc describes coa.v1.CertificateService for grpc.Server.RegisterService.
var CertificateServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CertificateServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: unaryHandler(MethodVerify, CertificateServer.Verify)},
		{MethodName: "Lookup", Handler: unaryHandler(MethodLookup, CertificateServer.Lookup)},
		{MethodName: "ExportCertificate", Handler: unaryHandler(MethodExportCertificate, CertificateServer.ExportCertificate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coa/v1/certificate.proto",
}

// RegisterCertificateServer registers srv on s.
func RegisterCertificateServer(s grpc.ServiceRegistrar, srv CertificateServer) {
	s.RegisterService(&CertificateServiceDesc, srv)
}

type unaryMethod func(CertificateServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CertificateServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CertificateServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CertificateClient is the client API for coa.v1.CertificateService.
type CertificateClient struct {
	cc grpc.ClientConnInterface
}

func NewCertificateClient(cc grpc.ClientConnInterface) *CertificateClient {
	return &CertificateClient{cc: cc}
}

func (c *CertificateClient) Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodVerify, in, opts)
}

func (c *CertificateClient) Lookup(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodLookup, in, opts)
}

func (c *CertificateClient) ExportCertificate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodExportCertificate, in, opts)
}

func (c *CertificateClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
