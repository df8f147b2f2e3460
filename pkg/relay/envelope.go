package relay

import (
	"encoding/json"
	"errors"

	"sozvon.me/model"
)

// Message types understood by clients. The relay itself only produces
// init, peer-joined and peer-left; everything else is client traffic it
// forwards without interpreting the payload.
const (
	TypeInit         = "init"
	TypePeerJoined   = "peer-joined"
	TypePeerLeft     = "peer-left"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeChat         = "chat"
	TypeMediaState   = "media-state"
	TypeReaction     = "reaction"
	TypeAdminCommand = "admin-command"
)

// Admin command actions. The relay forwards them like any other targeted
// message; enforcement happens on the client.
const (
	ActionMuteAudio = "mute-audio"
	ActionMuteVideo = "mute-video"
	ActionBan       = "ban"
	ActionChatOff   = "chat-off"
	ActionChatOn    = "chat-on"
)

var errNotObject = errors.New("envelope is not a JSON object")

// Envelope is one inbound client message. It stays a generic object so
// every field the client sent is forwarded verbatim; the relay only reads
// targetId and overwrites from/name.
type Envelope map[string]interface{}

// ParseEnvelope decodes raw into an Envelope. Anything that is not a
// JSON object is malformed and gets dropped by the caller.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errNotObject
	}
	return e, nil
}

func (e Envelope) Type() string {
	t, _ := e["type"].(string)
	return t
}

// TargetID returns the unicast target, or "" for a broadcast.
func (e Envelope) TargetID() string {
	t, _ := e["targetId"].(string)
	return t
}

// Stamp overwrites the sender identity on the envelope. Whatever the
// client put into from/name is discarded; identity always comes from
// admission, never from the message.
func (e Envelope) Stamp(peerID, name string) {
	e["from"] = peerID
	e["name"] = name
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type (
	// InitMessage is the room snapshot sent to a peer right after
	// admission, before anyone else learns about it.
	InitMessage struct {
		Type         string              `json:"type"`
		PeerID       string              `json:"peerId"`
		RoomID       string              `json:"roomId"`
		Role         model.Role          `json:"role"`
		Participants []model.Participant `json:"participants"`
	}

	PeerJoinedMessage struct {
		Type   string     `json:"type"`
		PeerID string     `json:"peerId"`
		Name   string     `json:"name"`
		Role   model.Role `json:"role"`
	}

	PeerLeftMessage struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
)

func newInitMessage(p *model.Peer, roomID string, participants []model.Participant) *InitMessage {
	if participants == nil {
		participants = []model.Participant{}
	}
	return &InitMessage{
		Type:         TypeInit,
		PeerID:       p.ID,
		RoomID:       roomID,
		Role:         p.Role,
		Participants: participants,
	}
}

func newPeerJoinedMessage(p *model.Peer) *PeerJoinedMessage {
	return &PeerJoinedMessage{Type: TypePeerJoined, PeerID: p.ID, Name: p.Name, Role: p.Role}
}

func newPeerLeftMessage(peerID string) *PeerLeftMessage {
	return &PeerLeftMessage{Type: TypePeerLeft, PeerID: peerID}
}
