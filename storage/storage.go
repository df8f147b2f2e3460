package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"

	"sozvon.me/model"
	"sozvon.me/pkg/utils"
)

// Storage keeps room metadata and the participant mirror in redis. The
// relay registry stays the authority on live membership; the mirror is
// fed from the events channel and backs the REST room lookup, so it can
// lag the registry by a moment.
type Storage interface {
	RoomExist(roomID string) bool
	CreateRoom(room *model.Room, exp time.Duration) (ID string, err error)
	GetRoom(roomID string) (*model.Room, error)
	AddParticipant(roomID string, p model.Participant, exp time.Duration) error
	RemoveParticipant(roomID, peerID string) error
	DeleteRoom(roomID string) error
	IncrVisits() (int64, error)
	GetVisitsByDate(date time.Time) (int64, error)
}

type storage struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) Storage {
	return &storage{rdb: rdb}
}

func (s *storage) CreateRoom(room *model.Room, exp time.Duration) (string, error) {
	var ID string
	for i := 5; i <= 15; i++ {
		newID := utils.RandString(i)
		if !s.RoomExist(newID) {
			ID = newID
			break
		}
	}

	if ID == "" {
		return "", errors.New("unable to generate an unique ID")
	}

	data := map[string]interface{}{
		"id":    ID,
		"title": room.Title,
	}

	affectedFields := s.rdb.HSet("room:"+ID, data).Val()
	if affectedFields != 2 {
		return "", fmt.Errorf("invalid affected fields num: %d", affectedFields)
	}
	ok := s.rdb.Expire("room:"+ID, exp).Val()
	if !ok {
		return "", fmt.Errorf("timeout was not set, key '%s' does not exist", ID)
	}
	return ID, nil
}

func (s *storage) GetRoom(roomID string) (*model.Room, error) {
	var r model.Room
	data := s.rdb.HGetAll("room:" + roomID).Val()
	if len(data) == 0 {
		return nil, fmt.Errorf("room '%s' not found", roomID)
	}

	participantsJSON, exists := data["participants"]
	if exists {
		err := json.Unmarshal([]byte(participantsJSON), &r.Participants)
		if err != nil {
			return nil, err
		}
	} else {
		r.Participants = []model.Participant{}
	}

	r.ID = data["id"]
	r.Title = data["title"]
	return &r, nil
}

// AddParticipant upserts the room entry so rooms opened directly over the
// websocket, without a prior create call, show up in lookups too. exp
// refreshes the key TTL on every join.
func (s *storage) AddParticipant(roomID string, p model.Participant, exp time.Duration) error {
	if roomID == "" {
		return fmt.Errorf("invalid room id: %s", roomID)
	}

	var participants []model.Participant
	participantsJSON, err := s.rdb.HGet("room:"+roomID, "participants").Result()
	if err == nil {
		if err = json.Unmarshal([]byte(participantsJSON), &participants); err != nil {
			return err
		}
	}

	for _, member := range participants {
		if member.PeerID == p.PeerID {
			return fmt.Errorf("participant with ID:%s already exists", p.PeerID)
		}
	}
	participants = append(participants, p)

	b, err := json.Marshal(participants)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"id":           roomID,
		"participants": string(b),
	}
	_ = s.rdb.HSet("room:"+roomID, data).Val()
	_ = s.rdb.Expire("room:"+roomID, exp).Val()
	return nil
}

func (s *storage) RemoveParticipant(roomID, peerID string) error {
	room, err := s.GetRoom(roomID)
	if err != nil {
		return err
	}
	for i, p := range room.Participants {
		if p.PeerID == peerID {
			last := len(room.Participants) - 1
			room.Participants[i] = room.Participants[last]
			room.Participants = room.Participants[:last]
			break
		}
	}

	b, err := json.Marshal(room.Participants)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"participants": string(b),
	}
	_ = s.rdb.HSet("room:"+roomID, data).Val()
	return nil
}

func (s *storage) DeleteRoom(roomID string) error {
	return s.rdb.Del("room:" + roomID).Err()
}

func (s *storage) IncrVisits() (int64, error) {
	return s.rdb.Incr("visits:" + time.Now().Format("02.01.06")).Result()
}

func (s *storage) GetVisitsByDate(date time.Time) (int64, error) {
	return s.rdb.Get("visits:" + date.Format("02.01.06")).Int64()
}

func (s *storage) RoomExist(roomID string) bool {
	return s.rdb.Exists("room:"+roomID).Val() == 1
}
