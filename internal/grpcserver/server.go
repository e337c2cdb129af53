package grpcserver

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"luminousdeep/internal/auth"
	"luminousdeep/internal/library"
	"luminousdeep/internal/progress"
	"luminousdeep/internal/series"
	"luminousdeep/internal/signals"
	"luminousdeep/internal/world"
)

// Server exposes the six reading-core operations. Requests and responses
// are google.protobuf.Struct carrying the same JSON shapes as the HTTP API.
type Server struct {
	Library  *library.Service
	Series   *series.Service
	Signals  *signals.Service
	World    *world.Service
	Tracker  *progress.Tracker
	Tokens   auth.TokenService
	Versions auth.VersionSource
}

var _ LibraryServer = (*Server)(nil)

// identity reads the bearer token from the "authorization" metadata key.
// No token is an anonymous caller; a bad token is Unauthenticated.
func (s *Server) identity(ctx context.Context) (*auth.Claims, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("authorization"); len(v) > 0 {
			header = v[0]
		}
	}
	claims, err := auth.Authenticate(ctx, s.Tokens, s.Versions, header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return claims, nil
}

func (s *Server) userID(ctx context.Context) (string, error) {
	claims, err := s.identity(ctx)
	if err != nil || claims == nil {
		return "", err
	}
	return claims.UserID, nil
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "encode failed")
	}
	return out, nil
}

func (s *Server) GetLibraryState(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.Library.GetLibraryState(ctx, userID)
	if err != nil {
		return nil, status.Error(codes.Internal, "library failed")
	}
	return toStruct(st)
}

func (s *Server) GetSeriesBySlug(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	slug := stringField(req, "slug")
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug required")
	}
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.Series.GetSeriesBySlug(ctx, userID, slug)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if view == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return toStruct(view)
}

func (s *Server) GetSignal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	slug := stringField(req, "slug")
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "slug required")
	}
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	view, err := s.Signals.GetSignal(ctx, userID, slug)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if view == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return toStruct(view)
}

// GetWorldMap is admin only.
func (s *Server) GetWorldMap(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	claims, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	if !claims.IsAdmin() {
		return nil, status.Error(codes.PermissionDenied, "admin only")
	}

	m, err := s.World.GetWorldMap(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "world failed")
	}
	return toStruct(m)
}

func (s *Server) SaveProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	signalID := stringField(req, "signal_id")
	if signalID == "" {
		return nil, status.Error(codes.InvalidArgument, "signal_id required")
	}
	pv, ok := req.GetFields()["progress"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "progress required")
	}
	if _, isNum := pv.GetKind().(*structpb.Value_NumberValue); !isNum {
		return nil, status.Error(codes.InvalidArgument, "progress must be a number")
	}
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	completed := req.GetFields()["is_completed"].GetBoolValue()
	if err := s.Tracker.SaveProgress(ctx, userID, signalID, pv.GetNumberValue(), completed); err != nil {
		return nil, status.Error(codes.Internal, "save failed")
	}
	return &structpb.Struct{}, nil
}

func (s *Server) CompleteTransmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	signalID := stringField(req, "signal_id")
	if signalID == "" {
		return nil, status.Error(codes.InvalidArgument, "signal_id required")
	}
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.Tracker.CompleteTransmission(ctx, userID, signalID); err != nil {
		return nil, status.Error(codes.Internal, "complete failed")
	}
	return &structpb.Struct{}, nil
}
