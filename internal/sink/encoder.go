package sink

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Supported payload encodings.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// Encoder serialises payloads for brokers.
//
// CBOR output is deterministic (canonical key order) with RFC 3339
// nanosecond timestamps, so the same event always encodes to the same bytes.
type Encoder struct {
	encoding string
	cborMode cbor.EncMode
}

// NewEncoder creates an encoder for "json" (also the default for "") or "cbor".
func NewEncoder(encoding string) (*Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingJSON:
		return &Encoder{encoding: EncodingJSON}, nil
	case EncodingCBOR:
		mode, err := cbor.EncOptions{
			Sort:          cbor.SortCanonical,
			IndefLength:   cbor.IndefLengthForbidden,
			NilContainers: cbor.NilContainerAsNull,
			Time:          cbor.TimeRFC3339Nano,
		}.EncMode()
		if err != nil {
			return nil, fmt.Errorf("creating CBOR encoder mode: %w", err)
		}
		return &Encoder{encoding: EncodingCBOR, cborMode: mode}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
}

// Encoding returns "json" or "cbor".
func (e *Encoder) Encoding() string {
	return e.encoding
}

// ContentType returns the MIME type of the encoded payloads.
func (e *Encoder) ContentType() string {
	if e.encoding == EncodingCBOR {
		return "application/cbor"
	}
	return "application/json"
}

// Encode serialises v.
func (e *Encoder) Encode(v any) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if e.encoding == EncodingCBOR {
		data, err = e.cborMode.Marshal(v)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return data, nil
}
