package messages

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes message payloads. The envelope itself is always a
// flatbuffer; only the bytes inside Message.Payload depend on the codec.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create cbor enc mode: %v", err))
	}
	cborDecMode, err = cbor.DecOptions{MaxArrayElements: 4096}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create cbor dec mode: %v", err))
	}
}

// CBORCodec uses the json struct tags of the payload types, so both codecs
// produce the same field names.
type CBORCodec struct{}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Marshal(v interface{}) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

func (CBORCodec) Unmarshal(data []byte, v interface{}) error {
	return cborDecMode.Unmarshal(data, v)
}

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown payload codec: %s", name)
	}
}

// NewMessage encodes payload with codec and wraps it in an envelope.
func NewMessage(codec Codec, playerUID string, t MessageType, payload interface{}) (*Message, error) {
	b, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %v", t, err)
	}
	return &Message{
		PlayerUID: playerUID,
		Type:      t,
		Payload:   b,
	}, nil
}
