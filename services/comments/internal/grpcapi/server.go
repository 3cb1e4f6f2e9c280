// Package grpcapi exposes the comment service over gRPC. The gateway
// forwards the authenticated identity in the user_id and role metadata keys.
package grpcapi

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	commentsv1 "github.com/example/devtube/gen/comments/v1"
	"github.com/example/devtube/services/comments/internal/domain"
	"github.com/example/devtube/services/comments/internal/service"
)

// Server implements commentsv1.CommentServiceServer.
type Server struct {
	Comments *service.Service
}

var _ commentsv1.CommentServiceServer = (*Server)(nil)

func NewServer(svc *service.Service) *Server {
	return &Server{Comments: svc}
}

func firstMD(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// callerFromMD returns the zero Caller when no identity was forwarded; the
// service decides whether that is acceptable.
func callerFromMD(ctx context.Context) domain.Caller {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Caller{}
	}
	id := firstMD(md, "user_id")
	if id == "" {
		return domain.Caller{}
	}
	role := domain.Role(strings.ToLower(firstMD(md, "role")))
	switch role {
	case domain.RoleViewer, domain.RoleCreator, domain.RoleAdmin:
	default:
		role = domain.RoleViewer
	}
	return domain.Caller{ID: id, Role: role}
}

func commentID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", toStatus(&domain.ValidationError{Field: "comment_id", Reason: "is required"})
	}
	return id, nil
}

func (s *Server) Submit(ctx context.Context, req *commentsv1.SubmitRequest) (*commentsv1.SubmitResponse, error) {
	view, err := s.Comments.Submit(ctx, callerFromMD(ctx), service.SubmitInput{
		VideoID:     req.VideoID,
		Content:     req.Content,
		ParentID:    req.ParentID,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &commentsv1.SubmitResponse{Comment: commentToWire(view)}, nil
}

func (s *Server) Delete(ctx context.Context, req *commentsv1.DeleteRequest) (*commentsv1.DeleteResponse, error) {
	id, err := commentID(req.CommentID)
	if err != nil {
		return nil, err
	}
	removed, err := s.Comments.Delete(ctx, callerFromMD(ctx), id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &commentsv1.DeleteResponse{RemovedIDs: removed}, nil
}

func (s *Server) React(ctx context.Context, req *commentsv1.ReactRequest) (*commentsv1.ReactResponse, error) {
	id, err := commentID(req.CommentID)
	if err != nil {
		return nil, err
	}
	counts, err := s.Comments.React(ctx, callerFromMD(ctx), id, req.Kind)
	if err != nil {
		return nil, toStatus(err)
	}
	return &commentsv1.ReactResponse{
		LikesCount:    counts.Likes,
		DislikesCount: counts.Dislikes,
		ViewerState:   string(counts.ViewerState),
	}, nil
}

func (s *Server) Flag(ctx context.Context, req *commentsv1.FlagRequest) (*commentsv1.Empty, error) {
	id, err := commentID(req.CommentID)
	if err != nil {
		return nil, err
	}
	if err := s.Comments.Flag(ctx, callerFromMD(ctx), id, req.Reason); err != nil {
		return nil, toStatus(err)
	}
	return &commentsv1.Empty{}, nil
}

func (s *Server) Unflag(ctx context.Context, req *commentsv1.CommentRequest) (*commentsv1.Empty, error) {
	return s.single(ctx, req, s.Comments.Unflag)
}

func (s *Server) Pin(ctx context.Context, req *commentsv1.CommentRequest) (*commentsv1.Empty, error) {
	return s.single(ctx, req, s.Comments.Pin)
}

func (s *Server) Unpin(ctx context.Context, req *commentsv1.CommentRequest) (*commentsv1.Empty, error) {
	return s.single(ctx, req, s.Comments.Unpin)
}

func (s *Server) single(ctx context.Context, req *commentsv1.CommentRequest, op func(context.Context, domain.Caller, string) error) (*commentsv1.Empty, error) {
	id, err := commentID(req.CommentID)
	if err != nil {
		return nil, err
	}
	if err := op(ctx, callerFromMD(ctx), id); err != nil {
		return nil, toStatus(err)
	}
	return &commentsv1.Empty{}, nil
}

func (s *Server) List(ctx context.Context, req *commentsv1.ListRequest) (*commentsv1.ListResponse, error) {
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return nil, toStatus(&domain.ValidationError{Field: "video_id", Reason: "is required"})
	}
	views, err := s.Comments.List(ctx, callerFromMD(ctx), videoID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &commentsv1.ListResponse{Comments: make([]*commentsv1.Comment, 0, len(views))}
	for _, v := range views {
		resp.Comments = append(resp.Comments, commentToWire(v))
	}
	return resp, nil
}

func (s *Server) ListFlagged(ctx context.Context, req *commentsv1.ListFlaggedRequest) (*commentsv1.ListFlaggedResponse, error) {
	queue, err := s.Comments.ListFlagged(ctx, callerFromMD(ctx), req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &commentsv1.ListFlaggedResponse{Comments: make([]*commentsv1.FlaggedComment, 0, len(queue))}
	for _, f := range queue {
		resp.Comments = append(resp.Comments, &commentsv1.FlaggedComment{
			Comment: commentToWire(f.Comment),
			Reports: reportsToWire(f.Reports),
		})
	}
	return resp, nil
}
