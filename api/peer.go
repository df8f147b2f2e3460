package api

import (
	"errors"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"sozvon.me/model"
	"sozvon.me/pkg/relay"
)

var (
	errConnClosed = errors.New("connection closed")
	errPeerClosed = errors.New("peer sent close frame")
)

// peerConn adapts an upgraded websocket connection to model.Conn. All
// frame writes go through one mutex so deliveries from different rooms'
// goroutines, heartbeat pings and pong replies never interleave on the
// wire.
type peerConn struct {
	conn         net.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newPeerConn(conn net.Conn, writeTimeout time.Duration) *peerConn {
	return &peerConn{conn: conn, writeTimeout: writeTimeout}
}

func (pc *peerConn) write(fn func(net.Conn) error) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return errConnClosed
	}
	_ = pc.conn.SetWriteDeadline(time.Now().Add(pc.writeTimeout))
	return fn(pc.conn)
}

func (pc *peerConn) Send(b []byte) error {
	return pc.write(func(c net.Conn) error {
		return wsutil.WriteServerText(c, b)
	})
}

func (pc *peerConn) ping() error {
	return pc.write(func(c net.Conn) error {
		return wsutil.WriteServerMessage(c, ws.OpPing, nil)
	})
}

func (pc *peerConn) pong(payload []byte) error {
	return pc.write(func(c net.Conn) error {
		return wsutil.WriteServerMessage(c, ws.OpPong, payload)
	})
}

func (pc *peerConn) sendClose(code ws.StatusCode, reason string) error {
	return pc.write(func(c net.Conn) error {
		return ws.WriteFrame(c, ws.NewCloseFrame(ws.NewCloseFrameBody(code, reason)))
	})
}

func (pc *peerConn) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return nil
	}
	pc.closed = true
	return pc.conn.Close()
}

// Endpoint to establish websocket connection
func (api *API) websocket(c echo.Context) error {
	roomID := c.QueryParam("roomId")
	name := c.QueryParam("name")
	// The role query param is an informational hint only; admission
	// assigns the authoritative role itself.

	conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
	if err != nil {
		log.Warn(err)
		return c.NoContent(http.StatusBadRequest)
	}

	pc := newPeerConn(conn, api.config.WriteTimeout)

	sess, err := api.relay.Join(roomID, name, pc)
	if err != nil {
		// No relay state exists for this connection, a close frame with
		// the reason is all the client gets.
		_ = pc.sendClose(ws.StatusPolicyViolation, err.Error())
		_ = pc.Close()
		return nil
	}

	peer := sess.Peer()
	log.Infof("peer %s (%s) joined room %s as %s", peer.ID, peer.Name, sess.RoomID(), peer.Role)
	participant := peer.Participant()
	api.publishEvent(model.EventPeerJoined, sess.RoomID(), &participant)

	api.servePeer(sess, pc)
	return nil
}

// servePeer runs the read loop of one admitted peer until the connection
// dies: client close frame, transport error or liveness timeout. All
// three trigger the same teardown, which runs once.
func (api *API) servePeer(sess *relay.Session, pc *peerConn) {
	peer := sess.Peer()
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(api.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := pc.ping(); err != nil && err != errConnClosed {
					log.Warn(err)
				}
			}
		}
	}()

	defer func() {
		close(done)
		_ = pc.Close()
		destroyed, first := sess.Close()
		if !first {
			return
		}
		log.Infof("peer %s left room %s", peer.ID, sess.RoomID())
		if destroyed {
			api.publishEvent(model.EventRoomDestroyed, sess.RoomID(), nil)
		} else {
			participant := peer.Participant()
			api.publishEvent(model.EventPeerLeft, sess.RoomID(), &participant)
		}
	}()

	handleControl := func(hdr ws.Header, r io.Reader) error {
		payload, err := ioutil.ReadAll(r)
		if err != nil {
			return err
		}
		switch hdr.OpCode {
		case ws.OpPing:
			return pc.pong(payload)
		case ws.OpClose:
			_ = pc.sendClose(ws.StatusNormalClosure, "")
			return errPeerClosed
		}
		// Pongs carry no action, arriving at all is the liveness signal.
		return nil
	}

	rd := wsutil.Reader{
		Source:         pc.conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: handleControl,
	}

	for {
		// Any inbound frame, pongs included, counts as liveness.
		_ = pc.conn.SetReadDeadline(time.Now().Add(api.config.PongTimeout))

		hdr, err := rd.NextFrame()
		if err != nil {
			return
		}
		if hdr.OpCode.IsControl() {
			if err = handleControl(hdr, &rd); err != nil {
				return
			}
			continue
		}

		payload, err := ioutil.ReadAll(&rd)
		if err != nil {
			return
		}
		if hdr.OpCode == ws.OpText {
			sess.HandleInbound(payload)
		}
	}
}
