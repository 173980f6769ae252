package grpc_control

import (
	"context"
	"errors"
	"net"
	"testing"

	datasource "option-guide/src/data_source"
	"option-guide/src/logger"
	"option-guide/src/models"
	"option-guide/src/pricing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeContent struct {
	doc     *models.MTeachingData
	err     error
	reloads int
}

func (f *fakeContent) Load() (*models.MTeachingData, error) { return f.doc, f.err }

func (f *fakeContent) Reload() (*models.MTeachingData, error) {
	f.reloads++
	return f.doc, f.err
}

type fixedSessions int

func (n fixedSessions) ActiveSessions() int { return int(n) }

func dial(t *testing.T, svc ControlServer) *ControlClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterControlServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewControlClient(conn)
}

func testContent() *fakeContent {
	return &fakeContent{doc: &models.MTeachingData{Tabs: []models.MTab{{ID: "basic"}, {ID: "spread"}}}}
}

// -----------------------------------------------------------------------------

func TestGetStatus(t *testing.T) {
	ref := pricing.NewReferencePrice(60000)
	svc := NewControlService(ref, nil, testContent(), fixedSessions(3), logger.Nop())
	client := dial(t, svc)

	st, err := client.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	fields := st.GetFields()
	if fields["reference_price"].GetNumberValue() != 60000 {
		t.Fatalf("unexpected price %v", fields["reference_price"])
	}
	if fields["price_source"].GetStringValue() != pricing.SourceSeed {
		t.Fatalf("unexpected source %v", fields["price_source"])
	}
	if fields["active_sessions"].GetNumberValue() != 3 {
		t.Fatalf("unexpected sessions %v", fields["active_sessions"])
	}
	tabs := fields["content_tabs"].GetListValue().GetValues()
	if len(tabs) != 2 || tabs[1].GetStringValue() != "spread" {
		t.Fatalf("unexpected tabs %v", tabs)
	}
}

func TestGetStatusReportsContentError(t *testing.T) {
	fc := &fakeContent{err: errors.New("content is not valid JSON")}
	svc := NewControlService(pricing.NewReferencePrice(1), nil, fc, nil, nil)
	st, err := dial(t, svc).GetStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.GetFields()["content_error"].GetStringValue() == "" {
		t.Fatal("content error not reported")
	}
}

func TestSetReferencePrice(t *testing.T) {
	ref := pricing.NewReferencePrice(60000)
	manager := datasource.NewMultiSourceManager(nil, ref, nil, 0, logger.Nop())
	client := dial(t, NewControlService(ref, manager, testContent(), nil, logger.Nop()))

	if err := client.SetReferencePrice(context.Background(), 61500.5); err != nil {
		t.Fatalf("SetReferencePrice failed: %v", err)
	}
	q := ref.Quote()
	if q.Price != 61500.5 || q.Source != pricing.SourceManual {
		t.Fatalf("unexpected quote %+v", q)
	}

	err := client.SetReferencePrice(context.Background(), -1)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if ref.Value() != 61500.5 {
		t.Fatal("rejected price must not change the reference")
	}
}

func TestSetReferencePriceWithoutManager(t *testing.T) {
	ref := pricing.NewReferencePrice(60000)
	client := dial(t, NewControlService(ref, nil, nil, nil, nil))
	if err := client.SetReferencePrice(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	if ref.Value() != 100 {
		t.Fatalf("price not applied: %v", ref.Value())
	}
}

func TestReloadContent(t *testing.T) {
	fc := testContent()
	client := dial(t, NewControlService(pricing.NewReferencePrice(1), nil, fc, nil, nil))

	out, err := client.ReloadContent(context.Background())
	if err != nil {
		t.Fatalf("ReloadContent failed: %v", err)
	}
	if out.GetFields()["tabs"].GetNumberValue() != 2 || fc.reloads != 1 {
		t.Fatalf("unexpected reload result %v (reloads=%d)", out, fc.reloads)
	}

	fc.err = errors.New("broken")
	if _, err := client.ReloadContent(context.Background()); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestReloadContentWithoutProvider(t *testing.T) {
	client := dial(t, NewControlService(pricing.NewReferencePrice(1), nil, nil, nil, nil))
	if _, err := client.ReloadContent(context.Background()); status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}
