package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stillwaterhq/datacore/internal/application"
)

// DataCoreInternalService is the internal surface other backend services call.
// CheckRevocation lets sibling services honor token revocations without a
// round trip through the HTTP API; PurgeUser lets the privacy orchestrator
// trigger crypto-erasure for a user.
type DataCoreInternalService interface {
	CheckRevocation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PurgeUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type DataCoreInternalServer struct {
	service *application.Service
}

func NewDataCoreInternalServer(service *application.Service) *DataCoreInternalServer {
	return &DataCoreInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc DataCoreInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "stillwater.datacore.v1.DataCoreInternalService",
		HandlerType: (*DataCoreInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "CheckRevocation",
				Handler:    checkRevocationHandler(svc),
			},
			{
				MethodName: "PurgeUser",
				Handler:    purgeUserHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "contracts/proto/datacore/v1/datacore_internal.proto",
	}, svc)
}

func (s *DataCoreInternalServer) CheckRevocation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	jtiVal := req.GetFields()["jti"]
	if jtiVal == nil || jtiVal.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing jti")
	}

	revoked, err := s.service.IsTokenRevoked(ctx, jtiVal.GetStringValue())
	if err != nil {
		return nil, status.Error(codes.Internal, "revocation lookup failed")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"revoked": revoked,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *DataCoreInternalServer) PurgeUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	idVal := req.GetFields()["user_id"]
	if idVal == nil || idVal.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing user_id")
	}
	userID, err := uuid.Parse(idVal.GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid user_id")
	}

	result, err := s.service.PurgeUserData(ctx, userID)
	if err != nil {
		return nil, status.Error(codes.Internal, "purge failed")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"purged":      true,
		"key_deleted": result.KeyDeleted,
		"purged_at":   result.PurgedAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func checkRevocationHandler(svc DataCoreInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.CheckRevocation(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/stillwater.datacore.v1.DataCoreInternalService/CheckRevocation",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.CheckRevocation(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func purgeUserHandler(svc DataCoreInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.PurgeUser(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/stillwater.datacore.v1.DataCoreInternalService/PurgeUser",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.PurgeUser(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
