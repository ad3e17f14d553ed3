package simserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 1 * time.Second
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4

	readDeadline  = time.Second
	writeDeadline = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ErrPongDeadlineExceeded signals a dead peer: no pong arrived within
// pongWait of the last ping.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// ErrSockCongestion indicates too many waiters on the socket for one op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

// publisher streams values of T to a single websocket client. An update is
// written only if at least pubResolution has passed since the last write;
// updates arriving sooner are dropped, not held back, so the most recent one
// of a burst is not sent unless another update arrives after the window.
type publisher[T any] struct {
	updates <-chan T
	sock    *wsConn
	rootCtx context.Context
}

// newPublisher upgrades the HTTP request to a websocket and returns a
// publisher that will stream values received on updates until the client
// disconnects or the request context is canceled.
func newPublisher[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*publisher[T], error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	return &publisher[T]{
		updates: updates,
		sock:    newWSConn(conn),
		rootCtx: r.Context(),
	}, nil
}

// Sync runs the read, ping-pong, and publish loops until any one of them
// returns, tears the rest down via the shared errgroup context, and sends a
// close frame on the way out. The teacher's client[T].Sync leaves closing
// the socket to its one caller (server.go does its own raw close sequence
// after Sync returns); handleWS here has no such sequence of its own, so
// wsConn.Close folds into Sync itself rather than sitting unreachable.
func (p *publisher[T]) Sync() error {
	group, groupCtx := errgroup.WithContext(p.rootCtx)
	group.Go(func() error { return p.readMessages(groupCtx) })
	group.Go(func() error { return p.pingPong(groupCtx) })
	group.Go(func() error { return p.publish(groupCtx) })
	err := group.Wait()
	p.sock.Close()
	return err
}

func (p *publisher[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	p.sock.Conn().SetPongHandler(func(_ string) error {
		pong <- struct{}{}
		return nil
	})

	ticker := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := p.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (p *publisher[T]) ping(ctx context.Context) error {
	return p.sock.Write(ctx, func(conn *websocket.Conn) error {
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		if err != nil && isUnexpectedClose(err) {
			err = fmt.Errorf("ping failed: %w", err)
		}
		return err
	})
}

func (p *publisher[T]) readMessages(ctx context.Context) error {
	for {
		err := p.sock.Read(ctx, func(conn *websocket.Conn) error {
			_, _, readErr := conn.ReadMessage()
			return readErr
		})
		if err != nil {
			return err
		}
	}
}

func (p *publisher[T]) publish(ctx context.Context) error {
	lastSync := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-p.updates:
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				continue
			}
			lastSync = time.Now()
			err := p.sock.Write(ctx, func(conn *websocket.Conn) error {
				if deadlineErr := conn.SetWriteDeadline(time.Now().Add(writeWait)); deadlineErr != nil {
					return fmt.Errorf("set write deadline: %w", deadlineErr)
				}
				if writeErr := conn.WriteJSON(update); writeErr != nil && isUnexpectedClose(writeErr) {
					return fmt.Errorf("publish failed: %w", writeErr)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
}

func isUnexpectedClose(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// wsConn serializes reads and writes to a websocket connection, which
// permits only one reader and one writer active at a time.
type wsConn struct {
	readSem  chan struct{}
	writeSem chan struct{}
	conn     *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		conn:     conn,
	}
}

func (c *wsConn) Conn() *websocket.Conn { return c.conn }

func (c *wsConn) Close() {
	c.readSem <- struct{}{}
	c.writeSem <- struct{}{}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

func (c *wsConn) Read(ctx context.Context, fn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case c.readSem <- struct{}{}:
		defer func() { <-c.readSem }()
		return fn(c.conn)
	case <-time.After(readDeadline):
		return ErrSockCongestion
	}
}

func (c *wsConn) Write(ctx context.Context, fn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case c.writeSem <- struct{}{}:
		defer func() { <-c.writeSem }()
		return fn(c.conn)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
