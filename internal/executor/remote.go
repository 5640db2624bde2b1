package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Request is sent to a remote host for each injection.
type Request struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
	Code string `json:"code"`
}

// Response is the remote host's answer to a Request. Refused is set when
// the host will not run code on its current page; Error when the code threw.
type Response struct {
	ID      uint64 `json:"id"`
	OK      bool   `json:"ok"`
	Refused bool   `json:"refused,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Remote forwards injections to a host over one websocket connection,
// dialled on first use.
type Remote struct {
	url     string
	header  http.Header
	timeout time.Duration
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

// NewRemote returns a Remote for url (ws:// or wss://). A non-positive
// timeout means DefaultTimeout.
func NewRemote(url string, timeout time.Duration, logger *slog.Logger) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		url:     url,
		header:  http.Header{},
		timeout: timeout,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
	}
}

func (r *Remote) connect(ctx context.Context) (*websocket.Conn, error) {
	if r.conn != nil {
		return r.conn, nil
	}
	conn, resp, err := r.dialer.DialContext(ctx, r.url, r.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %s", ErrRefused, r.url, resp.Status)
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ErrRefused, r.url, err)
	}
	r.logger.Debug("connected to remote host", "url", r.url)
	r.conn = conn
	return conn, nil
}

// Inject sends code to the host and waits for its response. A broken
// connection is dropped and redialled on the next call.
func (r *Remote) Inject(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.connect(ctx)
	if err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	r.nextID++
	req := Request{Type: "inject", ID: r.nextID, Code: code}
	if err := conn.WriteJSON(req); err != nil {
		r.drop()
		return r.transportErr(ctx, err)
	}

	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			r.drop()
			return r.transportErr(ctx, err)
		}
		if resp.ID != req.ID {
			r.logger.Debug("discarding stale response", "id", resp.ID, "want", req.ID)
			continue
		}
		switch {
		case resp.OK:
			return nil
		case resp.Refused:
			return fmt.Errorf("%w: %s", ErrRefused, resp.Error)
		default:
			return fmt.Errorf("%w: %s", ErrScript, resp.Error)
		}
	}
}

func (r *Remote) transportErr(ctx context.Context, err error) error {
	var netErr interface{ Timeout() bool }
	if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrRefused, err)
}

func (r *Remote) drop() {
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

// Close closes the connection, if any.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := r.conn.Close()
	r.conn = nil
	return err
}
