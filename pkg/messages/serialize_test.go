package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeMessage(t *testing.T) {
	tests := []struct {
		name    string
		message *Message
	}{
		{
			name: "client message",
			message: &Message{
				PlayerUID: "player-1",
				Type:      MessageTypeClientTeleportRequest,
				Payload:   []byte(`{"targetUid":"player-2","kind":1}`),
			},
		},
		{
			name: "server message without uid",
			message: &Message{
				Type:    MessageTypeServerPartyDisbanded,
				Payload: []byte(`{"reason":"kicked"}`),
			},
		},
		{
			name: "empty payload",
			message: &Message{
				PlayerUID: "player-1",
				Type:      MessageTypeClientPartyLeave,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := SerializeMessage(tt.message)
			require.NoError(t, err)

			got, err := DeserializeMessage(b)
			require.NoError(t, err)
			assert.Equal(t, tt.message.PlayerUID, got.PlayerUID)
			assert.Equal(t, tt.message.Type, got.Type)
			assert.Equal(t, string(tt.message.Payload), string(got.Payload))
		})
	}
}

func TestDeserializeMessage_Garbage(t *testing.T) {
	_, err := DeserializeMessage([]byte("definitely not zstd"))
	assert.Error(t, err)

	_, err = DeserializeMessageFlatbuffer([]byte{1})
	assert.Error(t, err)

	_, err = DeserializeMessageFlatbuffer([]byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestSerializeMessage_TooLarge(t *testing.T) {
	_, err := SerializeMessage(&Message{
		Type:    MessageTypeServerBeaconPosition,
		Payload: make([]byte, MaxMessageSize+1),
	})
	assert.Error(t, err)
}

func TestCodecs_BeaconSentinel(t *testing.T) {
	for _, name := range []string{"json", "cbor"} {
		t.Run(name, func(t *testing.T) {
			codec, err := NewCodec(name)
			require.NoError(t, err)
			assert.Equal(t, name, codec.Name())

			in := &ServerBeaconPosition{
				Names:         []string{"Ann"},
				UIDs:          []string{"a"},
				X:             []float64{1.5},
				Y:             []float64{64},
				Z:             []float64{-3},
				Timestamps:    []int64{1000},
				Health:        []float32{VitalsUnchanged},
				MaxHealth:     []float32{VitalsUnchanged},
				Saturation:    []float32{VitalsUnchanged},
				MaxSaturation: []float32{VitalsUnchanged},
			}
			msg, err := NewMessage(codec, "", MessageTypeServerBeaconPosition, in)
			require.NoError(t, err)

			out := &ServerBeaconPosition{}
			require.NoError(t, codec.Unmarshal(msg.Payload, out))
			assert.Equal(t, in, out)
			assert.Equal(t, 1, out.Len())
		})
	}

	_, err := NewCodec("xml")
	assert.Error(t, err)
}

func TestMessageType_String(t *testing.T) {
	assert.Equal(t, "ClientMapPing", MessageTypeClientMapPing.String())
	assert.Equal(t, "MessageType(200)", MessageType(200).String())
}
