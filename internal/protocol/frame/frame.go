package frame

import (
	"errors"
	"fmt"
)

const (
	Header  byte = 0xAA
	Ack     byte = 0x0F
	Nack    byte = 0x00
	Filler  byte = 0xFF
	Size         = 13
	MaxData      = 10

	// First payload byte conventions used by applications on top of the link.
	ReplyMarker   byte = 0xBC
	CommandMarker byte = 0xBB
)

var (
	ErrCorrupted       = errors.New("frame: corrupted")
	ErrMessageTooLarge = errors.New("frame: message too large")
)

// Message is one application payload carried by exactly one bus frame.
type Message struct {
	Length  uint8
	Payload [MaxData]byte
}

func NewMessage(data []byte) (Message, error) {
	if len(data) > MaxData {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}
	var m Message
	m.Length = uint8(len(data))
	copy(m.Payload[:], data)
	return m, nil
}

// MustMessage is NewMessage for literals known to fit.
func MustMessage(data ...byte) Message {
	m, err := NewMessage(data)
	if err != nil {
		panic(err)
	}
	return m
}

// Bytes returns a copy of the meaningful payload bytes.
func (m Message) Bytes() []byte {
	n := int(m.Length)
	if n > MaxData {
		n = MaxData
	}
	out := make([]byte, n)
	copy(out, m.Payload[:n])
	return out
}

func (m Message) IsReply() bool {
	return m.Length > 0 && m.Payload[0] == ReplyMarker
}

func (m Message) String() string {
	return fmt.Sprintf("len=%d data=% x", m.Length, m.Bytes())
}

// Checksum folds the header, length and payload with XOR.
func Checksum(length uint8, payload []byte) byte {
	sum := Header ^ length
	for _, b := range payload {
		sum ^= b
	}
	return sum
}

// Encode lays out header, length, payload, checksum and filler.
// The caller guarantees m.Length <= MaxData.
func Encode(m Message) [Size]byte {
	var out [Size]byte
	data := m.Payload[:m.Length]
	out[0] = Header
	out[1] = m.Length
	n := copy(out[2:], data)
	out[2+n] = Checksum(m.Length, data)
	for i := 3 + n; i < Size; i++ {
		out[i] = Filler
	}
	return out
}

func Decode(b []byte) (Message, error) {
	if len(b) < Size {
		return Message{}, fmt.Errorf("%w: short frame (%d bytes)", ErrCorrupted, len(b))
	}
	if b[0] != Header {
		return Message{}, fmt.Errorf("%w: header 0x%02x", ErrCorrupted, b[0])
	}
	length := b[1]
	if length > MaxData {
		return Message{}, fmt.Errorf("%w: length %d", ErrCorrupted, length)
	}
	data := b[2 : 2+int(length)]
	if want, got := Checksum(length, data), b[2+int(length)]; want != got {
		return Message{}, fmt.Errorf("%w: checksum 0x%02x want 0x%02x", ErrCorrupted, got, want)
	}
	var m Message
	m.Length = length
	copy(m.Payload[:], data)
	return m, nil
}
