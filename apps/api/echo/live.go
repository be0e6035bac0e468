package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/browse"
	"github.com/trezcool/uninotes/core/session"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveMaxMessage = 4096
)

// live message types
const (
	msgNavigate  = "navigate"
	msgFaculty   = "faculty"
	msgProdi     = "prodi"
	msgSemester  = "semester"
	msgSearch    = "search"
	msgSignedIn  = "signed_in"
	msgSignedOut = "signed_out"
	msgDismiss   = "dismiss"

	eventState = "state"
	eventError = "error"
)

var errUnknownMessage = core.NewFieldError("type", "unknown message type")

type (
	liveApi struct {
		deps     *Deps
		upgrader websocket.Upgrader
	}

	// liveMessage is sent by the client.
	liveMessage struct {
		Type  string `json:"type"`
		Value string `json:"value"`
		ID    uint64 `json:"id"` // notification to dismiss
	}

	// liveEvent is sent to the client.
	liveEvent struct {
		Type  string        `json:"type"`
		State *browse.State `json:"state,omitempty"`
		Error string        `json:"error,omitempty"`
	}

	// liveWriter owns the writes to the connection. Only the latest state is kept.
	liveWriter struct {
		conn *websocket.Conn

		mu    sync.Mutex
		state *browse.State
		errs  []string
		wake  chan struct{}
	}
)

func registerLiveAPI(g *echo.Group, deps *Deps) {
	conf := deps.Conf
	api := liveApi{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get(echo.HeaderOrigin)
				return origin == "" || conf.Debug || origin == conf.FrontendBaseURL
			},
		},
	}
	g.GET("/live", api.serve)
}

func newLiveWriter(conn *websocket.Conn) *liveWriter {
	return &liveWriter{conn: conn, wake: make(chan struct{}, 1)}
}

func (w *liveWriter) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *liveWriter) pushState(st browse.State) {
	w.mu.Lock()
	w.state = &st
	w.mu.Unlock()
	w.signal()
}

func (w *liveWriter) pushError(msg string) {
	w.mu.Lock()
	w.errs = append(w.errs, msg)
	w.mu.Unlock()
	w.signal()
}

func (w *liveWriter) write(ev liveEvent) error {
	_ = w.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return w.conn.WriteJSON(ev)
}

// run writes the pending events until done is closed or a write fails.
func (w *liveWriter) run(done <-chan struct{}) error {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			_ = w.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			return w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case <-w.wake:
			w.mu.Lock()
			st, errs := w.state, w.errs
			w.state, w.errs = nil, nil
			w.mu.Unlock()

			for _, msg := range errs {
				if err := w.write(liveEvent{Type: eventError, Error: msg}); err != nil {
					return err
				}
			}
			if st != nil {
				if err := w.write(liveEvent{Type: eventState, State: st}); err != nil {
					return err
				}
			}
		}
	}
}

// serve hosts a browse session for the lifetime of the WebSocket.
// The access token, if any, is passed in the `token` query param.
func (api *liveApi) serve(ctx echo.Context) error {
	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer conn.Close()

	metrics := api.deps.Metrics
	metrics.liveSessions.Inc()
	defer metrics.liveSessions.Dec()

	sessCtx, cancel := context.WithCancel(ctx.Request().Context())
	defer cancel()

	writer := newLiveWriter(conn)
	sess := browse.New(sessCtx, browse.Deps{
		Resolver:        api.deps.Resolver,
		Catalog:         countingCatalog{Catalog: api.deps.AcademicSvc, counter: metrics.courseQueries},
		Logger:          api.deps.Logger,
		QuietPeriod:     api.deps.Conf.Browse.QuietPeriod,
		NotificationTTL: api.deps.Conf.Browse.NotificationTTL,
		OnChange:        writer.pushState,
	})
	defer sess.Close()

	done := make(chan struct{})
	writeErr := make(chan error, 1)
	go func() {
		err := writer.run(done)
		if err != nil {
			_ = conn.Close() // unblocks the read loop
		}
		writeErr <- err
	}()

	// failures are logged by the session and leave its lists empty
	_ = sess.Start(sessCtx, bearerToken(ctx))

	conn.SetReadLimit(liveMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				api.deps.Logger.Warn(fmt.Sprintf("live connection closed: %v", err), err)
			}
			break
		}

		var msg liveMessage
		if err = json.Unmarshal(data, &msg); err != nil {
			writer.pushError("malformed message")
			continue
		}
		if err = api.handle(sessCtx, sess, msg); err != nil {
			writer.pushError(err.Error())
		}
	}

	close(done)
	<-writeErr
	return nil
}

func (api *liveApi) handle(ctx context.Context, sess *browse.Session, msg liveMessage) error {
	switch msg.Type {
	case msgNavigate:
		return sess.Navigate(session.View(msg.Value))
	case msgFaculty:
		return sess.SetFaculty(ctx, msg.Value)
	case msgProdi:
		return sess.SetProdi(msg.Value)
	case msgSemester:
		sess.SetSemester(msg.Value)
	case msgSearch:
		sess.SetSearch(msg.Value)
	case msgSignedIn:
		cu, err := api.deps.Resolver.Resolve(ctx, msg.Value)
		if err != nil {
			return err
		}
		if cu == nil {
			return session.ErrNoSession
		}
		sess.SignedIn(cu)
	case msgSignedOut:
		sess.SignedOut()
	case msgDismiss:
		sess.Dismiss(msg.ID)
	default:
		return errUnknownMessage
	}
	return nil
}
