package cache

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
	CodecCBOR    = "cbor"
)

// Codec turns a plain representation (see Serialize) into stored bytes and back.
// Decode must yield maps keyed by string so Deserialize can rebuild records.
type Codec interface {
	Name() string
	Encode(plain any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// JSONCodec stores entries as UTF-8 JSON. Other services reading the same
// cache expect this encoding, so it is the default.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }

func (JSONCodec) Encode(plain any) ([]byte, error) { return json.Marshal(plain) }

func (JSONCodec) Decode(data []byte) (any, error) {
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}

type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return CodecMsgpack }

func (MsgpackCodec) Encode(plain any) ([]byte, error) { return msgpack.Marshal(plain) }

func (MsgpackCodec) Decode(data []byte) (any, error) {
	var plain any
	if err := msgpack.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}

type CBORCodec struct {
	dec cbor.DecMode
}

func NewCBORCodec() (CBORCodec, error) {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return CBORCodec{}, err
	}
	return CBORCodec{dec: dm}, nil
}

func (CBORCodec) Name() string { return CodecCBOR }

func (CBORCodec) Encode(plain any) ([]byte, error) { return cbor.Marshal(plain) }

func (c CBORCodec) Decode(data []byte) (any, error) {
	var plain any
	if err := c.dec.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}

// CodecByName resolves one of the codec names accepted by Config.Codec.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	case CodecCBOR:
		return NewCBORCodec()
	}
	return nil, fmt.Errorf("cache: unknown codec %q", name)
}
