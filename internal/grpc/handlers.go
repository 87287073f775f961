package grpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/godilite/driver-compliance/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const defaultGRPCTimeout = 10 * time.Second

type GRPCHandlers struct {
	profiles ProfileAssembler
	logger   *zap.Logger
}

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(profiles ProfileAssembler, logger *zap.Logger) *GRPCHandlers {
	if profiles == nil {
		panic("nil ProfileAssembler provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandlers{
		profiles: profiles,
		logger:   logger.Named("grpc-handler"),
	}
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	msg := service.UserMessage(err)
	switch {
	case errors.Is(err, service.ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, service.ErrProfileNotFound):
		s.logger.Info("profile not found", zap.String("op", op))
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, service.ErrProfileUnavailable):
		s.logger.Warn("profile source unavailable", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Unavailable, msg)
	case errors.Is(err, service.ErrEmbedConfiguration):
		s.logger.Error("embed configuration error", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, msg)
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, msg)
	}
}

func (s *GRPCHandlers) GetDriverProfile(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, service.UserMessage(service.ErrInvalidDriverID))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	view, err := s.profiles.Assemble(ctx, req.GetValue())
	if err != nil {
		return nil, s.handleError(ctx, "GetDriverProfile", err)
	}

	out, err := viewToStruct(view)
	if err != nil {
		s.logger.Error("encode profile view", zap.Int64("driver_id", req.GetValue()), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode profile")
	}
	return out, nil
}

// maxExactInt is the largest integer a protobuf number (float64) holds exactly.
const maxExactInt = 1 << 53

// viewToStruct goes through the view's JSON form so both transports expose the
// same field names. Integers beyond 2^53 are sent as decimal strings.
func viewToStruct(view service.ProfileView) (*structpb.Struct, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	out, ok := convertNumbers(m).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("profile view is not an object")
	}
	return structpb.NewStruct(out)
}

func convertNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = convertNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = convertNumbers(e)
		}
		return t
	case json.Number:
		if n, err := t.Int64(); err == nil {
			if n > maxExactInt || n < -maxExactInt {
				return t.String()
			}
			return float64(n)
		}
		if _, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return t.String()
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	default:
		return v
	}
}
