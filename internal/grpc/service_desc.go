package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service is registered by hand on well-known types:
//
//	service DriverProfileService {
//	  rpc GetDriverProfile(google.protobuf.Int64Value) returns (google.protobuf.Struct);
//	}
const (
	ServiceName            = "driverprofile.v1.DriverProfileService"
	getDriverProfileMethod = "/" + ServiceName + "/GetDriverProfile"
)

// DriverProfileServer is the server API for DriverProfileService.
type DriverProfileServer interface {
	GetDriverProfile(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
}

func RegisterDriverProfileServer(s grpc.ServiceRegistrar, srv DriverProfileServer) {
	s.RegisterService(&driverProfileServiceDesc, srv)
}

var driverProfileServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DriverProfileServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetDriverProfile",
			Handler:    getDriverProfileHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "driverprofile/v1/driver_profile.proto",
}

func getDriverProfileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DriverProfileServer).GetDriverProfile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getDriverProfileMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DriverProfileServer).GetDriverProfile(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// DriverProfileClient calls DriverProfileService.
type DriverProfileClient struct {
	cc grpc.ClientConnInterface
}

func NewDriverProfileClient(cc grpc.ClientConnInterface) *DriverProfileClient {
	return &DriverProfileClient{cc: cc}
}

func (c *DriverProfileClient) GetDriverProfile(ctx context.Context, driverID int64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getDriverProfileMethod, wrapperspb.Int64(driverID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
