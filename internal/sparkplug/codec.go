package sparkplug

import (
	_ "embed"
	"sync"

	"github.com/kaans/mqtli/internal/payload"
)

//go:embed sparkplug_b.proto
var payloadProtoSource string

// PayloadMessage is the fully-qualified name of the Sparkplug B payload
// message, used as the ProtoMessage discriminator for payload.KindSparkplug
// and payload.KindSparkplugJson.
const PayloadMessage = "org.eclipse.tahu.protobuf.Payload"

var (
	schemaOnce sync.Once
	schema     *payload.Schema
	schemaErr  error
)

// Schema compiles (once, lazily) and returns the embedded Sparkplug B
// payload schema, for use as the schema argument to payload.Parse/Convert
// when the declared kind is KindSparkplug or KindSparkplugJson.
func Schema() (*payload.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = payload.CompileSource("sparkplug_b.proto", payloadProtoSource)
	})
	return schema, schemaErr
}
