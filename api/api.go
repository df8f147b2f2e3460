package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"sozvon.me/config"
	"sozvon.me/model"
	"sozvon.me/pkg/msgbroker"
	"sozvon.me/pkg/relay"
	"sozvon.me/storage"
)

type API struct {
	echo          *echo.Echo
	config        *config.Config
	storage       storage.Storage
	relay         *relay.Relay
	msgBroker     msgbroker.MessageBroker
	workerPool    *workerpool.WorkerPool
	eventsChannel string
}

func New(c *config.Config, s storage.Storage, r *relay.Relay, mb msgbroker.MessageBroker) *API {
	api := &API{
		echo:          echo.New(),
		config:        c,
		storage:       s,
		relay:         r,
		msgBroker:     mb,
		workerPool:    workerpool.New(c.MaxWorkers),
		eventsChannel: "events:",
	}

	api.echo.HideBanner = true
	api.echo.Use(middleware.CORS())

	api.echo.GET("/", api.ping)
	api.echo.POST("/room", api.createRoom)
	api.echo.GET("/room/:roomID", api.getRoom)
	api.echo.GET("/stats", api.stats)
	api.echo.Any("/ws", api.websocket)

	return api
}

func (api *API) Start() error {
	err := api.msgBroker.Subscribe(api.eventsChannel+"*", api.handleEvents)
	if err != nil {
		return err
	}
	return api.echo.Start(":" + strconv.Itoa(api.config.HttpPort))
}

func (api *API) Close(ctx context.Context) error {
	api.workerPool.StopWait()
	_ = api.msgBroker.Unsubscribe(api.eventsChannel + "*")
	return api.echo.Shutdown(ctx)
}

// Ping handler
func (api *API) ping(c echo.Context) error {
	_, err := api.storage.IncrVisits()
	if err != nil {
		log.Error(err)
	}
	return c.String(http.StatusOK, "OK")
}

// Room creation endpoint
func (api *API) createRoom(c echo.Context) error {
	var room model.Room
	err := c.Bind(&room)
	if err != nil || !room.Valid() {
		if err != nil {
			log.Warn(err)
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity)
	}

	room.ID, err = api.storage.CreateRoom(&room, api.config.RoomTTL)
	if err != nil {
		log.Error(err)
		return echo.NewHTTPError(http.StatusConflict)
	}

	return c.JSON(http.StatusOK, &room)
}

// Returns room metadata with the mirrored participant list
func (api *API) getRoom(c echo.Context) error {
	roomID := c.Param("roomID")
	room, err := api.storage.GetRoom(roomID)
	if err != nil {
		log.Info(err)
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, room)
}

// Registry counters, for monitoring
func (api *API) stats(c echo.Context) error {
	rooms, peers := api.relay.Stats()
	return c.JSON(http.StatusOK, map[string]int{"rooms": rooms, "peers": peers})
}

// publishEvent pushes a membership event to the broker, fire-and-forget;
// a broker failure never touches relay state or message delivery.
func (api *API) publishEvent(eventType, roomID string, p *model.Participant) {
	ev := model.Event{
		Type:        eventType,
		RoomID:      roomID,
		Participant: p,
		SentAt:      time.Now(),
	}
	b, err := json.Marshal(&ev)
	if err != nil {
		log.Error(err)
		return
	}
	if err = api.msgBroker.Publish(b, api.eventsChannel+roomID); err != nil {
		log.Warn(err)
	}
}

// Event handler: applies membership events to the storage mirror
func (api *API) handleEvents(msg *msgbroker.Message) {
	api.workerPool.Submit(func() {
		if len(msg.Channel) <= len(api.eventsChannel) {
			return
		}
		roomID := msg.Channel[len(api.eventsChannel):]

		var ev model.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Warn(err)
			return
		}

		switch ev.Type {
		case model.EventPeerJoined:
			if ev.Participant == nil {
				return
			}
			if err := api.storage.AddParticipant(roomID, *ev.Participant, api.config.RoomTTL); err != nil {
				log.Info(err)
			}
		case model.EventPeerLeft:
			if ev.Participant == nil {
				return
			}
			if err := api.storage.RemoveParticipant(roomID, ev.Participant.PeerID); err != nil {
				log.Info(err)
			}
		case model.EventRoomDestroyed:
			if err := api.storage.DeleteRoom(roomID); err != nil {
				log.Warn(err)
			}
		}
	})
}
