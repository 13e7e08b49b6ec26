package cluster

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const streamReadDeadline = 90 * time.Second

// StreamConn is one websocket connection to the resource-update stream.
type StreamConn struct {
	conn *websocket.Conn
	log  zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func dialStream(ctx context.Context, streamURL, bearerToken string, log zerolog.Logger) (*StreamConn, error) {
	header := http.Header{}
	if bearerToken != "" {
		header.Set("Authorization", "Bearer "+bearerToken)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, streamURL, header)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return &StreamConn{
		conn: conn,
		log:  log,
		done: make(chan struct{}),
	}, nil
}

// run reads updates until the connection drops or Close is called. Events
// missing an ID get one assigned so consumers can de-duplicate.
func (sc *StreamConn) run(onUpdate func(ResourceUpdate)) {
	defer sc.Close()

	for {
		_ = sc.conn.SetReadDeadline(time.Now().Add(streamReadDeadline))

		var update ResourceUpdate
		if err := sc.conn.ReadJSON(&update); err != nil {
			select {
			case <-sc.done:
			default:
				sc.log.Debug().Err(err).Msg("resource update stream closed")
			}
			return
		}

		if update.ID == "" {
			update.ID = uuid.New().String()
		}
		if update.At.IsZero() {
			update.At = time.Now()
		}
		onUpdate(update)
	}
}

// Close shuts the connection down. Safe to call more than once.
func (sc *StreamConn) Close() {
	sc.closeOnce.Do(func() {
		close(sc.done)
		_ = sc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = sc.conn.Close()
	})
}

// Closed reports whether Close has been called or the read loop has exited.
func (sc *StreamConn) Closed() bool {
	select {
	case <-sc.done:
		return true
	default:
		return false
	}
}
