// Package protocol defines the JSON messages exchanged over the session
// websocket. Audio payloads travel base64-encoded in the Chunk field.
package protocol

import "encoding/json"

// Client → server message types.
const (
	TypeUserAudioStart = "user_audio_start"
	TypeUserAudioChunk = "user_audio_chunk"
	TypeUserAudioEnd   = "user_audio_end"
)

// Server → client message types.
const (
	TypeAIAudio = "ai_audio"
	TypeError   = "error"
)

// ClientMessage is one inbound frame from the client.
type ClientMessage struct {
	Type  string `json:"type"`
	Chunk string `json:"chunk,omitempty"`
}

// ServerMessage is one outbound frame to the client. Done is always present
// on ai_audio frames so the client can gate recording on the last segment.
type ServerMessage struct {
	Type    string `json:"type"`
	Chunk   string `json:"chunk,omitempty"`
	Done    bool   `json:"done"`
	Message string `json:"message,omitempty"`
}

func AIAudio(chunk string, done bool) ServerMessage {
	return ServerMessage{Type: TypeAIAudio, Chunk: chunk, Done: done}
}

func Error(msg string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: msg}
}

func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}

func (m ClientMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
