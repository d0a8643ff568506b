package wire

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteServerMessage frames and writes m.
func WriteServerMessage(w io.Writer, m ServerMessage) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("wire: marshal server message: %w", err)
	}
	return WriteFrame(w, body)
}

// ReadServerMessage reads and decodes one frame as a ServerMessage.
func ReadServerMessage(r io.Reader) (ServerMessage, error) {
	var m ServerMessage
	body, err := ReadFrame(r)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("wire: decode server message: %w", err)
	}
	return m, nil
}

// WritePeerMessage frames and writes m.
func WritePeerMessage(w io.Writer, m PeerMessage) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("wire: marshal peer message: %w", err)
	}
	return WriteFrame(w, body)
}

// ReadPeerMessage reads and decodes one frame as a PeerMessage.
func ReadPeerMessage(r io.Reader) (PeerMessage, error) {
	var m PeerMessage
	body, err := ReadFrame(r)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("wire: decode peer message: %w", err)
	}
	return m, nil
}
