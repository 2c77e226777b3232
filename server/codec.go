package server

import "encoding/json"

// jsonCodec is a connect.Codec over plain Go structs via encoding/json,
// standing in for the protoc-generated protobuf codec connect-go's
// built-in "proto"/"json" codecs expect: those require every message to
// implement proto.Message, which in turn requires protoc-gen-go
// codegen this repository does not run. The wire shapes are still
// specified once, in server/proto/classvm/v1/classvm.proto, so a later
// protoc-gen-connect-go pass can replace this codec with the standard
// one without changing either service's request/response types.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
