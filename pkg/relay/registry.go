package relay

import (
	"sozvon.me/model"
	"sozvon.me/pkg/idgen"
)

// Registry is the authoritative mapping from room id to the peers inside
// it. Rooms exist only while non-empty: the first admission creates the
// room, removal of the last peer destroys it.
//
// The Registry is not safe for concurrent use on its own; the Relay
// serializes every access behind one mutex. Membership changes are rare
// next to message routing, a single lock is enough.
type Registry struct {
	ids   idgen.Generator
	rooms map[string]*room
}

// room keeps peers in arrival order, keyed by generated peer id.
type room struct {
	id    string
	peers []*model.Peer
}

func NewRegistry(ids idgen.Generator) *Registry {
	return &Registry{
		ids:   ids,
		rooms: make(map[string]*room),
	}
}

// Admit registers a new peer in roomID, creating the room if needed. The
// first peer of a fresh room becomes admin, later ones members. The
// returned snapshot holds the other members present at admission time,
// in arrival order, for the init payload; it never includes the new peer.
// roomID must be non-empty, the Relay rejects empty ids before any state
// is touched.
func (reg *Registry) Admit(roomID, name string, conn model.Conn) (*model.Peer, []model.Participant) {
	r, exists := reg.rooms[roomID]
	if !exists {
		r = &room{id: roomID}
		reg.rooms[roomID] = r
	}

	role := model.RoleMember
	if len(r.peers) == 0 {
		role = model.RoleAdmin
	}

	snapshot := make([]model.Participant, 0, len(r.peers))
	for _, p := range r.peers {
		snapshot = append(snapshot, p.Participant())
	}

	peer := model.NewPeer(reg.ids.NextID(), name, role, roomID, conn)
	r.peers = append(r.peers, peer)
	return peer, snapshot
}

// Remove deletes the peer from its room. When the room becomes empty it
// is destroyed and destroyed is true; otherwise remaining holds the peers
// still present, so the caller can broadcast peer-left to them. Removing
// an unknown peer or from an unknown room is a no-op.
func (reg *Registry) Remove(roomID, peerID string) (remaining []*model.Peer, destroyed bool) {
	r, exists := reg.rooms[roomID]
	if !exists {
		return nil, false
	}

	for i, p := range r.peers {
		if p.ID == peerID {
			r.peers = append(r.peers[:i], r.peers[i+1:]...)
			break
		}
	}

	if len(r.peers) == 0 {
		delete(reg.rooms, roomID)
		return nil, true
	}
	return r.peers, false
}

// Members returns the peers of roomID in arrival order, or nil when the
// room does not exist. The returned slice is a copy.
func (reg *Registry) Members(roomID string) []*model.Peer {
	r, exists := reg.rooms[roomID]
	if !exists {
		return nil
	}
	members := make([]*model.Peer, len(r.peers))
	copy(members, r.peers)
	return members
}

// Stats counts rooms and peers across the registry.
func (reg *Registry) Stats() (rooms, peers int) {
	rooms = len(reg.rooms)
	for _, r := range reg.rooms {
		peers += len(r.peers)
	}
	return rooms, peers
}
