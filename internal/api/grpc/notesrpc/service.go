package notesrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "privenote.v1.Notes"

// Full method names, used for interceptor selection.
const (
	CreateNoteMethod          = "/" + ServiceName + "/CreateNote"
	GetNoteMethod             = "/" + ServiceName + "/GetNote"
	RecordFailedAttemptMethod = "/" + ServiceName + "/RecordFailedAttempt"
	ConsumeNoteMethod         = "/" + ServiceName + "/ConsumeNote"
	DeleteNoteMethod          = "/" + ServiceName + "/DeleteNote"
)

// NotesServer is the server API for the Notes service.
type NotesServer interface {
	CreateNote(context.Context, *CreateNoteRequest) (*CreateNoteResponse, error)
	GetNote(context.Context, *GetNoteRequest) (*GetNoteResponse, error)
	RecordFailedAttempt(context.Context, *RecordFailedAttemptRequest) (*RecordFailedAttemptResponse, error)
	ConsumeNote(context.Context, *ConsumeNoteRequest) (*ConsumeNoteResponse, error)
	DeleteNote(context.Context, *DeleteNoteRequest) (*DeleteNoteResponse, error)
}

// UnimplementedNotesServer answers every method with codes.Unimplemented.
type UnimplementedNotesServer struct{}

func (UnimplementedNotesServer) CreateNote(context.Context, *CreateNoteRequest) (*CreateNoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateNote not implemented")
}

func (UnimplementedNotesServer) GetNote(context.Context, *GetNoteRequest) (*GetNoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNote not implemented")
}

func (UnimplementedNotesServer) RecordFailedAttempt(context.Context, *RecordFailedAttemptRequest) (*RecordFailedAttemptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RecordFailedAttempt not implemented")
}

func (UnimplementedNotesServer) ConsumeNote(context.Context, *ConsumeNoteRequest) (*ConsumeNoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ConsumeNote not implemented")
}

func (UnimplementedNotesServer) DeleteNote(context.Context, *DeleteNoteRequest) (*DeleteNoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteNote not implemented")
}

func RegisterNotesServer(s grpc.ServiceRegistrar, srv NotesServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts a typed method to the grpc.MethodDesc handler shape.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(NotesServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NotesServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NotesServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the Notes service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NotesServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateNote", Handler: unaryHandler(CreateNoteMethod, NotesServer.CreateNote)},
		{MethodName: "GetNote", Handler: unaryHandler(GetNoteMethod, NotesServer.GetNote)},
		{MethodName: "RecordFailedAttempt", Handler: unaryHandler(RecordFailedAttemptMethod, NotesServer.RecordFailedAttempt)},
		{MethodName: "ConsumeNote", Handler: unaryHandler(ConsumeNoteMethod, NotesServer.ConsumeNote)},
		{MethodName: "DeleteNote", Handler: unaryHandler(DeleteNoteMethod, NotesServer.DeleteNote)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "privenote/v1/notes.proto",
}
