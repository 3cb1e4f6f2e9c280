package commentsv1

import (
	"context"

	"google.golang.org/grpc"

	"github.com/example/devtube/internal/platform/grpcjson"
)

const ServiceName = "devtube.comments.v1.CommentService"

const (
	MethodSubmit      = "Submit"
	MethodDelete      = "Delete"
	MethodReact       = "React"
	MethodFlag        = "Flag"
	MethodUnflag      = "Unflag"
	MethodPin         = "Pin"
	MethodUnpin       = "Unpin"
	MethodList        = "List"
	MethodListFlagged = "ListFlagged"
)

// FullMethod returns the "/service/method" path of a CommentService method.
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

type CommentServiceServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	React(context.Context, *ReactRequest) (*ReactResponse, error)
	Flag(context.Context, *FlagRequest) (*Empty, error)
	Unflag(context.Context, *CommentRequest) (*Empty, error)
	Pin(context.Context, *CommentRequest) (*Empty, error)
	Unpin(context.Context, *CommentRequest) (*Empty, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	ListFlagged(context.Context, *ListFlaggedRequest) (*ListFlaggedResponse, error)
}

func RegisterCommentServiceServer(s grpc.ServiceRegistrar, srv CommentServiceServer) {
	s.RegisterService(&CommentService_ServiceDesc, srv)
}

// CommentService_ServiceDesc is registered by RegisterCommentServiceServer.
var CommentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodSubmit, CommentServiceServer.Submit),
		unary(MethodDelete, CommentServiceServer.Delete),
		unary(MethodReact, CommentServiceServer.React),
		unary(MethodFlag, CommentServiceServer.Flag),
		unary(MethodUnflag, CommentServiceServer.Unflag),
		unary(MethodPin, CommentServiceServer.Pin),
		unary(MethodUnpin, CommentServiceServer.Unpin),
		unary(MethodList, CommentServiceServer.List),
		unary(MethodListFlagged, CommentServiceServer.ListFlagged),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "devtube/comments/v1/comments.proto",
}

func unary[Req, Resp any](method string, call func(CommentServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(CommentServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CommentServiceClient calls a remote CommentService. Every call requests
// the JSON codec.
type CommentServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCommentServiceClient(cc grpc.ClientConnInterface) *CommentServiceClient {
	return &CommentServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(grpcjson.Name)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CommentServiceClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitResponse](ctx, c.cc, MethodSubmit, in, opts)
}

func (c *CommentServiceClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, MethodDelete, in, opts)
}

func (c *CommentServiceClient) React(ctx context.Context, in *ReactRequest, opts ...grpc.CallOption) (*ReactResponse, error) {
	return invoke[ReactResponse](ctx, c.cc, MethodReact, in, opts)
}

func (c *CommentServiceClient) Flag(ctx context.Context, in *FlagRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodFlag, in, opts)
}

func (c *CommentServiceClient) Unflag(ctx context.Context, in *CommentRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodUnflag, in, opts)
}

func (c *CommentServiceClient) Pin(ctx context.Context, in *CommentRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodPin, in, opts)
}

func (c *CommentServiceClient) Unpin(ctx context.Context, in *CommentRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, MethodUnpin, in, opts)
}

func (c *CommentServiceClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, MethodList, in, opts)
}

func (c *CommentServiceClient) ListFlagged(ctx context.Context, in *ListFlaggedRequest, opts ...grpc.CallOption) (*ListFlaggedResponse, error) {
	return invoke[ListFlaggedResponse](ctx, c.cc, MethodListFlagged, in, opts)
}
