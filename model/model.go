package model

import (
	"sync"
	"time"

	"sozvon.me/pkg/utils"
)

// Role is the admission role the relay assigns to a peer. The first peer
// to enter an empty room becomes the admin, everyone after is a member.
// Once assigned the role never changes.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// DefaultName is used when a client connects without a display name.
const DefaultName = "Гость"

// Conn is the outbound half of a peer's connection as the relay sees it.
// The transport layer owns the real connection; the relay only pushes
// frames into it and closes it.
type Conn interface {
	Send(p []byte) error
	Close() error
}

type (
	// Room is the REST-facing room metadata kept in storage. The live
	// membership authority is the relay registry; Participants is the
	// observational mirror maintained from the events feed.
	Room struct {
		ID           string        `json:"id"`
		Title        string        `json:"title"`
		Participants []Participant `json:"participants"`
	}

	// Participant is the public identity of a peer inside a room.
	Participant struct {
		PeerID string `json:"peerId"`
		Name   string `json:"name"`
		Role   Role   `json:"role"`
	}

	// Event is published to the message broker on every membership change.
	Event struct {
		Type        string       `json:"type"`
		RoomID      string       `json:"room_id"`
		Participant *Participant `json:"participant,omitempty"`
		SentAt      time.Time    `json:"sent_at"`
	}
)

// Event types carried over the broker.
const (
	EventPeerJoined    = "peer-joined"
	EventPeerLeft      = "peer-left"
	EventRoomDestroyed = "room-destroyed"
)

// Peer is one connected client session within a room.
type Peer struct {
	ID     string
	Name   string
	Role   Role
	RoomID string

	conn   Conn
	mu     sync.Mutex
	closed bool
}

func NewPeer(id, name string, role Role, roomID string, conn Conn) *Peer {
	return &Peer{
		ID:     id,
		Name:   name,
		Role:   role,
		RoomID: roomID,
		conn:   conn,
	}
}

// Send delivers a frame to the peer, fire-and-forget. A peer that is
// already closed is skipped silently; a failed write marks the peer
// closed so later deliveries are skipped too.
func (p *Peer) Send(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	err := p.conn.Send(b)
	if err != nil {
		p.closed = true
	}
	return err
}

// MarkClosed flips the peer into its terminal state without touching the
// underlying connection; the transport layer closes that itself.
func (p *Peer) MarkClosed() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Peer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Peer) Participant() Participant {
	return Participant{PeerID: p.ID, Name: p.Name, Role: p.Role}
}

func (r *Room) Valid() bool {
	return utils.IsLengthValid(r.Title, 2, 100)
}
