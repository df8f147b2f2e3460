package relay

import (
	"encoding/json"
	"errors"
	"sync"

	"sozvon.me/model"
	"sozvon.me/pkg/idgen"
)

// ErrRoomRequired is returned by Join when no room id was supplied. The
// transport layer turns it into a policy-violation close, no relay state
// is created.
var ErrRoomRequired = errors.New("room id required")

// Relay is the signaling core: it owns the Registry and serializes every
// membership change and routing decision behind one mutex. All delivery
// is fire-and-forget through model.Peer.Send, so holding the lock across
// notification sends is bounded by the transport write timeout.
type Relay struct {
	mu       sync.Mutex
	registry *Registry
}

func New(ids idgen.Generator) *Relay {
	return &Relay{registry: NewRegistry(ids)}
}

// Session is the relay-side state machine for one connection, admission
// to close. The transport layer feeds it inbound frames and calls Close
// on whichever disconnect path fires first; cleanup runs exactly once.
type Session struct {
	relay  *Relay
	peer   *model.Peer
	roomID string
	once   sync.Once
}

// Join admits a connection into roomID and returns its Session. The new
// peer gets its init snapshot before anyone else is told about it, then
// every other member gets peer-joined; both happen under the relay lock
// so no later room event can overtake the init.
func (r *Relay) Join(roomID, name string, conn model.Conn) (*Session, error) {
	if roomID == "" {
		return nil, ErrRoomRequired
	}
	if name == "" {
		name = model.DefaultName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	peer, snapshot := r.registry.Admit(roomID, name, conn)

	if b, err := json.Marshal(newInitMessage(peer, roomID, snapshot)); err == nil {
		_ = peer.Send(b)
	}

	if b, err := json.Marshal(newPeerJoinedMessage(peer)); err == nil {
		for _, member := range r.registry.Members(roomID) {
			if member.ID != peer.ID {
				_ = member.Send(b)
			}
		}
	}

	return &Session{relay: r, peer: peer, roomID: roomID}, nil
}

func (s *Session) Peer() *model.Peer { return s.peer }

func (s *Session) RoomID() string { return s.roomID }

// HandleInbound relays one raw frame from this session's peer. Malformed
// payloads are dropped silently; they must never take down the connection
// or affect other peers. Valid envelopes get the sender identity stamped
// on and are delivered per Route.
func (s *Session) HandleInbound(raw []byte) {
	if s.peer.Closed() {
		return
	}

	env, err := ParseEnvelope(raw)
	if err != nil {
		return
	}
	env.Stamp(s.peer.ID, s.peer.Name)

	b, err := env.Marshal()
	if err != nil {
		return
	}

	s.relay.mu.Lock()
	members := s.relay.registry.Members(s.roomID)
	if members == nil {
		s.relay.mu.Unlock()
		return
	}
	recipients := Route(members, s.peer, env.TargetID())
	s.relay.mu.Unlock()

	for _, p := range recipients {
		_ = p.Send(b)
	}
}

// Close tears the session down: the peer leaves the registry and, when
// the room survives, the rest of it gets peer-left. Every disconnect
// path (client close, transport error, liveness timeout) funnels here;
// only the first call does anything. first reports whether this call won,
// destroyed whether the room went away with the peer.
func (s *Session) Close() (destroyed, first bool) {
	s.once.Do(func() {
		first = true
		s.peer.MarkClosed()

		s.relay.mu.Lock()
		defer s.relay.mu.Unlock()

		var remaining []*model.Peer
		remaining, destroyed = s.relay.registry.Remove(s.roomID, s.peer.ID)
		if destroyed || len(remaining) == 0 {
			return
		}

		if b, err := json.Marshal(newPeerLeftMessage(s.peer.ID)); err == nil {
			for _, member := range remaining {
				_ = member.Send(b)
			}
		}
	})
	return destroyed, first
}

// Stats counts live rooms and peers.
func (r *Relay) Stats() (rooms, peers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.Stats()
}
