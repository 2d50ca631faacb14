package notesrpc

import (
	"context"

	"google.golang.org/grpc"
)

// NotesClient is the client API for the Notes service.
type NotesClient struct {
	cc grpc.ClientConnInterface
}

func NewNotesClient(cc grpc.ClientConnInterface) *NotesClient {
	return &NotesClient{cc: cc}
}

func (c *NotesClient) CreateNote(ctx context.Context, in *CreateNoteRequest, opts ...grpc.CallOption) (*CreateNoteResponse, error) {
	out := new(CreateNoteResponse)
	if err := c.invoke(ctx, CreateNoteMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotesClient) GetNote(ctx context.Context, in *GetNoteRequest, opts ...grpc.CallOption) (*GetNoteResponse, error) {
	out := new(GetNoteResponse)
	if err := c.invoke(ctx, GetNoteMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotesClient) RecordFailedAttempt(ctx context.Context, in *RecordFailedAttemptRequest, opts ...grpc.CallOption) (*RecordFailedAttemptResponse, error) {
	out := new(RecordFailedAttemptResponse)
	if err := c.invoke(ctx, RecordFailedAttemptMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotesClient) ConsumeNote(ctx context.Context, in *ConsumeNoteRequest, opts ...grpc.CallOption) (*ConsumeNoteResponse, error) {
	out := new(ConsumeNoteResponse)
	if err := c.invoke(ctx, ConsumeNoteMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotesClient) DeleteNote(ctx context.Context, in *DeleteNoteRequest, opts ...grpc.CallOption) (*DeleteNoteResponse, error) {
	out := new(DeleteNoteResponse)
	if err := c.invoke(ctx, DeleteNoteMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotesClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, callOpts...)
}
