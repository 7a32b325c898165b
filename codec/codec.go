// Package codec (de)serializes position values V <-> []byte for storage.
// The consistency header (version, sequence, request id, timestamp) is framed
// separately by the wire layer; codecs only ever see the value payload.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
