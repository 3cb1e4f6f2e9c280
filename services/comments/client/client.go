// Package client is a Go client for the comment service. It forwards the
// caller identity as gRPC metadata and decodes structured status details.
package client

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	commentsv1 "github.com/example/devtube/gen/comments/v1"
)

// Identity is forwarded on every call. The zero value calls anonymously.
type Identity struct {
	UserID string
	Role   string
}

type Client struct {
	rpc *commentsv1.CommentServiceClient
	id  Identity
}

func New(cc grpc.ClientConnInterface, id Identity) *Client {
	return &Client{rpc: commentsv1.NewCommentServiceClient(cc), id: id}
}

// As returns a client that calls with a different identity over the same
// connection.
func (c *Client) As(id Identity) *Client {
	return &Client{rpc: c.rpc, id: id}
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.id.UserID == "" {
		return ctx
	}
	role := c.id.Role
	if role == "" {
		role = "viewer"
	}
	return metadata.AppendToOutgoingContext(ctx, "user_id", c.id.UserID, "role", role)
}

type SubmitInput struct {
	VideoID     string
	Content     string
	ParentID    *string
	IsAnonymous bool
}

func (c *Client) Submit(ctx context.Context, in SubmitInput) (*commentsv1.Comment, error) {
	resp, err := c.rpc.Submit(c.outgoing(ctx), &commentsv1.SubmitRequest{
		VideoID: in.VideoID, Content: in.Content, ParentID: in.ParentID, IsAnonymous: in.IsAnonymous,
	})
	if err != nil {
		return nil, FromStatus(err)
	}
	return resp.Comment, nil
}

func (c *Client) Delete(ctx context.Context, commentID string) ([]string, error) {
	resp, err := c.rpc.Delete(c.outgoing(ctx), &commentsv1.DeleteRequest{CommentID: commentID})
	if err != nil {
		return nil, FromStatus(err)
	}
	return resp.RemovedIDs, nil
}

func (c *Client) React(ctx context.Context, commentID, kind string) (*commentsv1.ReactResponse, error) {
	resp, err := c.rpc.React(c.outgoing(ctx), &commentsv1.ReactRequest{CommentID: commentID, Kind: kind})
	if err != nil {
		return nil, FromStatus(err)
	}
	return resp, nil
}

func (c *Client) Flag(ctx context.Context, commentID, reason string) error {
	_, err := c.rpc.Flag(c.outgoing(ctx), &commentsv1.FlagRequest{CommentID: commentID, Reason: reason})
	return FromStatus(err)
}

func (c *Client) Pin(ctx context.Context, commentID string, pinned bool) error {
	req := &commentsv1.CommentRequest{CommentID: commentID}
	var err error
	if pinned {
		_, err = c.rpc.Pin(c.outgoing(ctx), req)
	} else {
		_, err = c.rpc.Unpin(c.outgoing(ctx), req)
	}
	return FromStatus(err)
}

func (c *Client) List(ctx context.Context, videoID string) ([]*commentsv1.Comment, error) {
	resp, err := c.rpc.List(c.outgoing(ctx), &commentsv1.ListRequest{VideoID: videoID})
	if err != nil {
		return nil, FromStatus(err)
	}
	return resp.Comments, nil
}

// Error is a decoded service status.
type Error struct {
	Code       codes.Code
	Reason     string
	Message    string
	Fields     map[string]string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason + ": " + e.Message
	}
	return e.Message
}

// Retryable reports whether repeating the call may succeed.
func (e *Error) Retryable() bool { return e.Code == codes.Unavailable }

// FromStatus converts a gRPC status error into *Error. Other errors are
// returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	out := &Error{Code: st.Code(), Message: st.Message()}
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			out.Reason = v.GetReason()
		case *errdetails.BadRequest:
			for _, fv := range v.GetFieldViolations() {
				if out.Fields == nil {
					out.Fields = make(map[string]string)
				}
				out.Fields[fv.GetField()] = fv.GetDescription()
			}
		case *errdetails.RetryInfo:
			out.RetryAfter = v.GetRetryDelay().AsDuration()
		}
	}
	return out
}

// IsReason reports whether err is a service error with the given reason.
func IsReason(err error, reason string) bool {
	var e *Error
	return errors.As(err, &e) && e.Reason == reason
}
