package client

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	commentsv1 "github.com/example/devtube/gen/comments/v1"
	"github.com/example/devtube/services/comments/internal/directory"
	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/grpcapi"
	"github.com/example/devtube/services/comments/internal/service"
	"github.com/example/devtube/services/comments/internal/store"
)

func dial(t *testing.T) *Client {
	t.Helper()
	dir := directory.NewMemory()
	dir.PutVideo(domain.Video{ID: "V1", CreatorID: "carol"})
	svc, err := service.New(service.Options{Store: store.NewInMemoryCommentStore(), Videos: dir, Profiles: dir})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	commentsv1.RegisterCommentServiceServer(srv, grpcapi.NewServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return New(conn, Identity{UserID: "alice", Role: "viewer"})
}

func TestClient_TimelineAgainstServer(t *testing.T) {
	c := dial(t)
	ctx := context.Background()
	tl := NewTimeline()

	e, err := tl.Post(ctx, c, SubmitInput{VideoID: "V1", Content: "first!"}, commentsv1.Author{Kind: commentsv1.AuthorKindAttributed, AuthorID: "alice"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if e.Pending || e.Comment.ID == e.LocalID {
		t.Fatalf("entry not confirmed: %+v", e)
	}

	list, err := c.List(ctx, "V1")
	if err != nil || len(list) != 1 || list[0].ID != e.Comment.ID {
		t.Fatalf("server does not hold the confirmed comment: %+v %v", list, err)
	}

	missing := "gone"
	_, err = tl.Post(ctx, c, SubmitInput{VideoID: "V1", Content: "reply", ParentID: &missing}, commentsv1.Author{})
	if !IsReason(err, "INVALID_PARENT") {
		t.Fatalf("expected INVALID_PARENT, got %v", err)
	}
	if n := len(tl.Entries()); n != 1 {
		t.Fatalf("failed reply must be rolled back, have %d entries", n)
	}
}

func TestClient_IdentityAndErrors(t *testing.T) {
	c := dial(t)
	ctx := context.Background()

	created, err := c.Submit(ctx, SubmitInput{VideoID: "V1", Content: "hello"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	bob := c.As(Identity{UserID: "bob"})
	r, err := bob.React(ctx, created.ID, "like")
	if err != nil || r.LikesCount != 1 {
		t.Fatalf("react: %+v %v", r, err)
	}
	if err := bob.Pin(ctx, created.ID, true); !IsReason(err, "FORBIDDEN") {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	if err := c.As(Identity{UserID: "carol", Role: "creator"}).Pin(ctx, created.ID, true); err != nil {
		t.Fatalf("creator pin: %v", err)
	}

	_, err = c.Submit(ctx, SubmitInput{VideoID: "V1", Content: ""})
	var e *Error
	if !errors.As(err, &e) || e.Code != codes.InvalidArgument || e.Fields["content"] == "" {
		t.Fatalf("expected field violation, got %#v", err)
	}
	if e.Retryable() {
		t.Fatal("validation errors are not retryable")
	}

	_, err = c.As(Identity{}).Submit(ctx, SubmitInput{VideoID: "V1", Content: "anon"})
	if !IsReason(err, "UNAUTHENTICATED") {
		t.Fatalf("expected UNAUTHENTICATED, got %v", err)
	}

	removed, err := c.Delete(ctx, created.ID)
	if err != nil || len(removed) != 1 {
		t.Fatalf("delete: %v %v", removed, err)
	}
	if err := bob.Flag(ctx, created.ID, "spam"); !IsReason(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestFromStatus_PassThrough(t *testing.T) {
	if FromStatus(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	plain := errors.New("plain")
	if err := FromStatus(plain); err == nil {
		t.Fatal("non-status error must not be dropped")
	}
}
