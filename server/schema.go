package server

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

// LoadSchema parses classvm.proto (the schema jsonCodec's hand-rolled
// request/response structs are kept in sync with by hand) through
// protoreflect's pure-Go parser, the same descriptor-pool-shaped walk
// the teacher's vm/grpc_primitives.go uses protoreflect for. Since this
// repository never invokes protoc, parsing the .proto source directly
// is how the service descriptors get checked against their declared
// shape at all: a typo in a field name or a removed message surfaces
// here, when this is called, rather than silently at the first
// mismatched request. Server itself does not call it.
func LoadSchema(protoRoot string) (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{ImportPaths: []string{protoRoot}}
	fds, err := parser.ParseFiles("classvm/v1/classvm.proto")
	if err != nil {
		return nil, fmt.Errorf("server: parse classvm.proto: %w", err)
	}
	if len(fds) != 1 {
		return nil, fmt.Errorf("server: expected one file descriptor, got %d", len(fds))
	}
	return fds[0], nil
}

// MarshalDescriptor serializes fd's underlying descriptorpb.FileDescriptorProto
// (the google.golang.org/protobuf wire type protoreflect's own descriptors
// are built from) so a caller can cache the compiled schema — in
// classcache, say — without re-running protoparse.Parser on every
// startup.
func MarshalDescriptor(fd *desc.FileDescriptor) ([]byte, error) {
	return proto.Marshal(fd.AsFileDescriptorProto())
}

// UnmarshalDescriptorProto parses a cached descriptor blob back into
// its raw descriptorpb.FileDescriptorProto form, the shape
// MarshalDescriptor produced it in.
func UnmarshalDescriptorProto(data []byte) (*descriptorpb.FileDescriptorProto, error) {
	var fdp descriptorpb.FileDescriptorProto
	if err := proto.Unmarshal(data, &fdp); err != nil {
		return nil, fmt.Errorf("server: unmarshal cached descriptor: %w", err)
	}
	return &fdp, nil
}

// CheckMessage reports an error if fd does not declare a message named
// name with exactly fieldNames, in order — a lightweight schema-drift
// check against InvokeRequest/InvokeResponse/WalkStackRequest/
// WalkStackResponse's hand-written json tags. Server does not run it
// at startup; callers invoke it explicitly.
func CheckMessage(fd *desc.FileDescriptor, name string, fieldNames ...string) error {
	md := fd.FindMessage("classvm.v1." + name)
	if md == nil {
		return fmt.Errorf("server: schema has no message %q", name)
	}
	fields := md.GetFields()
	if len(fields) != len(fieldNames) {
		return fmt.Errorf("server: message %q has %d fields, jsonCodec struct has %d", name, len(fields), len(fieldNames))
	}
	for i, f := range fields {
		if f.GetName() != fieldNames[i] {
			return fmt.Errorf("server: message %q field %d is %q in schema, %q in struct", name, i, f.GetName(), fieldNames[i])
		}
	}
	return nil
}
