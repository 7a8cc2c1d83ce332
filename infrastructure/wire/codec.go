// Package wire holds the JSON frames shared by the gRPC service and the
// websocket endpoint, and the codec that carries them over gRPC.
package wire

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const ServiceName = "chatgate.v1.ChatGate"

// FullMethod returns the gRPC path of a method of the service.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// CodecName is the gRPC content-subtype of every call: application/grpc+json.
const CodecName = "json"

// jsonCodec replaces the protobuf codec: the service has no .proto file and no
// generated stubs. ServiceDesc is written by hand and every request, response
// and stream frame is a plain Go struct of this package, encoded as JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
