package messages

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
)

// Envelope table slots.
const (
	messageSlotPlayerUID = 0
	messageSlotType      = 1
	messageSlotPayload   = 2
	messageSlotCount     = 3
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd writer: %v", err))
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(4*MaxMessageSize))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd reader: %v", err))
	}
}

// SerializeMessage encodes m as a flatbuffer and compresses it with zstd.
func SerializeMessage(m *Message) ([]byte, error) {
	b, err := SerializeMessageFlatbuffer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %v", err)
	}
	return encoder.EncodeAll(b, make([]byte, 0, len(b))), nil
}

func DeserializeMessage(data []byte) (*Message, error) {
	b, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress message: %v", err)
	}

	message, err := DeserializeMessageFlatbuffer(b)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize message: %v", err)
	}

	return message, nil
}

func SerializeMessageFlatbuffer(m *Message) ([]byte, error) {
	builder := flatbuffers.NewBuilder(len(m.Payload) + len(m.PlayerUID) + 32)

	payload := builder.CreateByteVector(m.Payload)
	playerUID := builder.CreateString(m.PlayerUID)

	builder.StartObject(messageSlotCount)
	builder.PrependUOffsetTSlot(messageSlotPayload, payload, 0)
	builder.PrependUOffsetTSlot(messageSlotPlayerUID, playerUID, 0)
	builder.PrependByteSlot(messageSlotType, byte(m.Type), 0)
	messageOffset := builder.EndObject()
	builder.Finish(messageOffset)

	b := builder.FinishedBytes()
	if len(b) > MaxMessageSize {
		return nil, fmt.Errorf("message of %d bytes exceeds limit of %d", len(b), MaxMessageSize)
	}
	return b, nil
}

// DeserializeMessageFlatbuffer reads the envelope table. The flatbuffers
// runtime does not verify buffers, so out of range offsets in a malformed
// buffer are reported as an error instead of a panic.
func DeserializeMessageFlatbuffer(b []byte) (message *Message, err error) {
	if len(b) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("message too short: %d bytes", len(b))
	}
	defer func() {
		if r := recover(); r != nil {
			message = nil
			err = fmt.Errorf("malformed message: %v", r)
		}
	}()

	tab := &flatbuffers.Table{
		Bytes: b,
		Pos:   flatbuffers.GetUOffsetT(b),
	}

	message = &Message{}
	if o := flatbuffers.UOffsetT(tab.Offset(slotOffset(messageSlotPlayerUID))); o != 0 {
		message.PlayerUID = string(tab.ByteVector(o + tab.Pos))
	}
	if o := flatbuffers.UOffsetT(tab.Offset(slotOffset(messageSlotType))); o != 0 {
		message.Type = MessageType(tab.GetByte(o + tab.Pos))
	}
	if o := flatbuffers.UOffsetT(tab.Offset(slotOffset(messageSlotPayload))); o != 0 {
		// the vector aliases b
		message.Payload = append([]byte(nil), tab.ByteVector(o+tab.Pos)...)
	}

	return message, nil
}

func slotOffset(slot int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT((slot + 2) * flatbuffers.SizeVOffsetT)
}
