package wire

import (
	"encoding/json"
	"fmt"

	"github.com/synclite/synclite/internal/syncstate"
)

// ConnectionAck is the leader's reply to a freshly accepted connection:
// the peer id it has assigned and the leader's own id.
type ConnectionAck struct {
	PeerID   string `json:"peer_id"`
	LeaderID string `json:"leader_id"`
}

// PeerListUpdate carries the full current peer id list, broadcast
// whenever it changes.
type PeerListUpdate struct {
	Peers []string `json:"peers"`
}

// InitialSyncPushResponse is the leader's answer to a follower's
// InitialSyncPush: what the follower should adopt from the leader, what
// it should delete, and what the leader still needs back from it.
type InitialSyncPushResponse struct {
	FilesToUpdate   map[string]string `json:"files_to_update"`
	FilesToDelete   []string          `json:"files_to_delete"`
	FilesToSendBack []string          `json:"files_to_send_back"`
}

// FileUpdatePush carries a batch of file writes and deletes, used both
// for the handshake's back-fill step and for steady-state relaying.
type FileUpdatePush struct {
	FilesToWrite  map[string]string `json:"files_to_write"`
	FilesToDelete []string          `json:"files_to_delete"`
}

// InitialSyncPush is a follower's full sync-state snapshot, sent once
// immediately after the handshake's ConnectionAck.
type InitialSyncPush struct {
	SyncState syncstate.Map `json:"sync_state"`
}

// ServerMessage is the externally-tagged union of every message the
// leader may send to a follower. Exactly one field is set; json encodes
// it as a single-key object keyed by the variant name, matching the
// enum-as-JSON-tag convention of the system this protocol was ported
// from.
type ServerMessage struct {
	ConnectionAck           *ConnectionAck
	PeerListUpdate          *PeerListUpdate
	InitialSyncPushResponse *InitialSyncPushResponse
	FileUpdatePush          *FileUpdatePush
}

func NewConnectionAck(peerID, leaderID string) ServerMessage {
	return ServerMessage{ConnectionAck: &ConnectionAck{PeerID: peerID, LeaderID: leaderID}}
}

func NewPeerListUpdate(peers []string) ServerMessage {
	return ServerMessage{PeerListUpdate: &PeerListUpdate{Peers: peers}}
}

func NewInitialSyncPushResponse(filesToUpdate map[string]string, filesToDelete, filesToSendBack []string) ServerMessage {
	return ServerMessage{InitialSyncPushResponse: &InitialSyncPushResponse{
		FilesToUpdate:   filesToUpdate,
		FilesToDelete:   filesToDelete,
		FilesToSendBack: filesToSendBack,
	}}
}

func NewServerFileUpdatePush(filesToWrite map[string]string, filesToDelete []string) ServerMessage {
	return ServerMessage{FileUpdatePush: &FileUpdatePush{FilesToWrite: filesToWrite, FilesToDelete: filesToDelete}}
}

// MarshalJSON emits whichever variant is set as a single-key object.
func (m ServerMessage) MarshalJSON() ([]byte, error) {
	switch {
	case m.ConnectionAck != nil:
		return marshalVariant("ConnectionAck", m.ConnectionAck)
	case m.PeerListUpdate != nil:
		return marshalVariant("PeerListUpdate", m.PeerListUpdate)
	case m.InitialSyncPushResponse != nil:
		return marshalVariant("InitialSyncPushResponse", m.InitialSyncPushResponse)
	case m.FileUpdatePush != nil:
		return marshalVariant("FileUpdatePush", m.FileUpdatePush)
	default:
		return nil, fmt.Errorf("wire: ServerMessage has no variant set")
	}
}

// UnmarshalJSON expects a single-key object naming one of the known
// ServerMessage variants; any other shape, unknown key, or multi-key
// object is rejected.
func (m *ServerMessage) UnmarshalJSON(data []byte) error {
	tag, body, err := splitVariant(data)
	if err != nil {
		return err
	}

	switch tag {
	case "ConnectionAck":
		var v ConnectionAck
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("wire: decode ConnectionAck: %w", err)
		}
		m.ConnectionAck = &v
	case "PeerListUpdate":
		var v PeerListUpdate
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("wire: decode PeerListUpdate: %w", err)
		}
		m.PeerListUpdate = &v
	case "InitialSyncPushResponse":
		var v InitialSyncPushResponse
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("wire: decode InitialSyncPushResponse: %w", err)
		}
		m.InitialSyncPushResponse = &v
	case "FileUpdatePush":
		var v FileUpdatePush
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("wire: decode FileUpdatePush: %w", err)
		}
		m.FileUpdatePush = &v
	default:
		return fmt.Errorf("%w: %q is not a ServerMessage variant", ErrUnknownVariant, tag)
	}
	return nil
}

// Variant returns the name of whichever field is set, or "" if none is.
func (m ServerMessage) Variant() string {
	switch {
	case m.ConnectionAck != nil:
		return "ConnectionAck"
	case m.PeerListUpdate != nil:
		return "PeerListUpdate"
	case m.InitialSyncPushResponse != nil:
		return "InitialSyncPushResponse"
	case m.FileUpdatePush != nil:
		return "FileUpdatePush"
	default:
		return ""
	}
}

// PeerMessage is the externally-tagged union of every message a follower
// may send to the leader.
type PeerMessage struct {
	InitialSyncPush *InitialSyncPush
	FileUpdatePush  *FileUpdatePush
}

func NewInitialSyncPush(state syncstate.Map) PeerMessage {
	return PeerMessage{InitialSyncPush: &InitialSyncPush{SyncState: state}}
}

func NewPeerFileUpdatePush(filesToWrite map[string]string, filesToDelete []string) PeerMessage {
	return PeerMessage{FileUpdatePush: &FileUpdatePush{FilesToWrite: filesToWrite, FilesToDelete: filesToDelete}}
}

func (m PeerMessage) MarshalJSON() ([]byte, error) {
	switch {
	case m.InitialSyncPush != nil:
		return marshalVariant("InitialSyncPush", m.InitialSyncPush)
	case m.FileUpdatePush != nil:
		return marshalVariant("FileUpdatePush", m.FileUpdatePush)
	default:
		return nil, fmt.Errorf("wire: PeerMessage has no variant set")
	}
}

func (m *PeerMessage) UnmarshalJSON(data []byte) error {
	tag, body, err := splitVariant(data)
	if err != nil {
		return err
	}

	switch tag {
	case "InitialSyncPush":
		var v InitialSyncPush
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("wire: decode InitialSyncPush: %w", err)
		}
		m.InitialSyncPush = &v
	case "FileUpdatePush":
		var v FileUpdatePush
		if err := json.Unmarshal(body, &v); err != nil {
			return fmt.Errorf("wire: decode FileUpdatePush: %w", err)
		}
		m.FileUpdatePush = &v
	default:
		return fmt.Errorf("%w: %q is not a PeerMessage variant", ErrUnknownVariant, tag)
	}
	return nil
}

func (m PeerMessage) Variant() string {
	switch {
	case m.InitialSyncPush != nil:
		return "InitialSyncPush"
	case m.FileUpdatePush != nil:
		return "FileUpdatePush"
	default:
		return ""
	}
}

func marshalVariant(tag string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s payload: %w", tag, err)
	}
	return json.Marshal(map[string]json.RawMessage{tag: body})
}

// splitVariant decodes data as a single-key JSON object and returns that
// key and its raw value. Zero keys, more than one key, or a non-object
// top level are all rejected.
func splitVariant(data []byte) (tag string, body json.RawMessage, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("wire: decode message envelope: %w", err)
	}
	if len(raw) != 1 {
		return "", nil, fmt.Errorf("%w: expected exactly one key, got %d", ErrMalformedEnvelope, len(raw))
	}
	for k, v := range raw {
		tag, body = k, v
	}
	return tag, body, nil
}
