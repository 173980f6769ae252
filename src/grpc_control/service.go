package grpc_control

import (
	"context"
	"errors"
	"time"

	datasource "option-guide/src/data_source"
	"option-guide/src/helpers"
	"option-guide/src/interfaces"
	"option-guide/src/logger"
	"option-guide/src/models"
	"option-guide/src/pricing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SessionCounter reports how many stream sessions are open.
type SessionCounter interface {
	ActiveSessions() int
}

// ControlService implements ControlServer on top of the running service.
type ControlService struct {
	Reference *pricing.ReferencePrice
	Manager   *datasource.MultiSourceManager // optional, journals manual prices
	Content   interfaces.IContentProvider
	Sessions  SessionCounter
	Logger    *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	ref *pricing.ReferencePrice,
	manager *datasource.MultiSourceManager,
	content interfaces.IContentProvider,
	sessions SessionCounter,
	log *logger.Logger,
) *ControlService {
	if log == nil {
		log = logger.Nop()
	}
	return &ControlService{
		Reference: ref,
		Manager:   manager,
		Content:   content,
		Sessions:  sessions,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	q := s.Reference.Quote()
	fields := map[string]interface{}{
		"reference_price": q.Price,
		"price_source":    q.Source,
		"observed_at":     q.ObservedAt.UTC().Format(time.RFC3339),
		"active_sessions": 0,
		"content_tabs":    []interface{}{},
		"sources":         []interface{}{},
	}
	if s.Sessions != nil {
		fields["active_sessions"] = s.Sessions.ActiveSessions()
	}
	if s.Manager != nil {
		fields["sources"] = toList(s.Manager.SourceNames())
	}
	if s.Content != nil {
		doc, err := s.Content.Load()
		if err != nil {
			fields["content_error"] = err.Error()
		} else {
			fields["content_tabs"] = toList(tabIDs(doc))
		}
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetReferencePrice(ctx context.Context, req *wrapperspb.DoubleValue) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "price is required")
	}

	var (
		q   models.MQuote
		err error
	)
	if s.Manager != nil {
		q, err = s.Manager.SetManual(req.GetValue())
	} else {
		q, err = s.Reference.Set(req.GetValue(), pricing.SourceManual)
	}
	if err != nil {
		var vErr *helpers.ValidationError
		if errors.As(err, &vErr) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	s.Logger.Info("gRPC: reference price set to %.2f", q.Price)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) ReloadContent(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	if s.Content == nil {
		return nil, status.Error(codes.Unavailable, "no content provider configured")
	}
	doc, err := s.Content.Reload()
	if err != nil {
		s.Logger.Error("gRPC: content reload failed: %v", err)
		return nil, status.Errorf(codes.FailedPrecondition, "reload content: %v", err)
	}

	s.Logger.Info("gRPC: content reloaded (%d tabs)", len(doc.Tabs))
	out, err := structpb.NewStruct(map[string]interface{}{
		"tabs":    len(doc.Tabs),
		"tab_ids": toList(tabIDs(doc)),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reload result: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func tabIDs(doc *models.MTeachingData) []string {
	ids := make([]string, 0, len(doc.Tabs))
	for _, t := range doc.Tabs {
		ids = append(ids, t.ID)
	}
	return ids
}

func toList(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}
