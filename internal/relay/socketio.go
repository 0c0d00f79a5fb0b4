package relay

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/feedstore/internal/action"
	"github.com/vk/feedstore/internal/ctxlog"
	"github.com/vk/feedstore/internal/store"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	// actionEvent carries one mirrored action per emit.
	actionEvent = "feedstore:action"
	// replayEvent asks consumers that joined before this store came up to
	// resynchronize against the attached state snapshot.
	replayEvent = "feedstore:replay"

	defaultConnectTimeout = 10 * time.Second
)

// SocketIOConfig configures a socket.io relay channel.
type SocketIOConfig struct {
	// URL is the socket.io endpoint, e.g. "https://host:3000/socket.io/".
	URL string

	// Namespace selects the socket.io namespace; "/" when empty.
	Namespace string

	// ConnectTimeout bounds how long CreateChannel waits for the first
	// connection before reporting the collaborator unavailable. The client
	// keeps retrying in the background either way.
	ConnectTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// State supplies the snapshot attached to replay requests. Usually the
	// owning store's State method; nil sends replays without a snapshot.
	State func() map[string]any
}

// SocketIO mirrors every non-local dispatched action to a remote consumer
// as a JSON envelope over a socket.io connection. A channel that never
// connects stays a silent pass-through, so the store keeps working when the
// remote side is down.
type SocketIO struct {
	cfg SocketIOConfig

	manager   *socket.Manager
	io        *socket.Socket
	connected atomic.Bool
	created   atomic.Bool
}

// NewSocketIO returns an unconnected channel; the connection is made in
// CreateChannel.
func NewSocketIO(cfg SocketIOConfig) *SocketIO {
	if cfg.Namespace == "" {
		cfg.Namespace = "/"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return &SocketIO{cfg: cfg}
}

// Middleware implements store.RelayChannel.
func (c *SocketIO) Middleware(next store.DispatchFunc) store.DispatchFunc {
	return func(a action.Action) error {
		if err := next(a); err != nil {
			return err
		}
		if a.Meta.SkipRelay || !c.connected.Load() {
			return nil
		}
		// Transport hiccups never fail the dispatch; the disconnect
		// listener flips connected off when the link actually drops.
		c.io.Emit(actionEvent, envelopeFor(a))
		return nil
	}
}

// CreateChannel implements store.RelayChannel. It dials the configured
// endpoint over websocket and waits up to the connect timeout for the
// handshake. On timeout or connection error the channel is left open and
// retrying, but an error is returned so the store can log the degraded
// start.
func (c *SocketIO) CreateChannel(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("relay", "socketio", "url", c.cfg.URL, "namespace", c.cfg.Namespace)
	logger.Debug("Opening relay channel.")

	parsedURL, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse relay URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetTransports(types.NewSet(transports.WebSocket))
	if c.cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification for relay channel.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	c.manager = socket.NewManager(baseURL, opts)
	c.io = c.manager.Socket(c.cfg.Namespace, opts)
	c.created.Store(true)

	connectCh := make(chan error, 1)
	c.io.On(types.EventName("connect"), func(...any) {
		c.connected.Store(true)
		logger.Info("Relay channel connected.", "sid", c.io.Id())
		select {
		case connectCh <- nil:
		default:
		}
	})
	c.io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				select {
				case connectCh <- err:
				default:
				}
			}
		}
	})
	c.io.On(types.EventName("disconnect"), func(...any) {
		c.connected.Store(false)
		logger.Warn("Relay channel disconnected.")
	})

	c.io.Connect()

	opCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	select {
	case <-opCtx.Done():
		return fmt.Errorf("timed out waiting for relay connection to %s", c.cfg.URL)
	case err := <-connectCh:
		if err != nil {
			return fmt.Errorf("relay connection failed: %w", err)
		}
		return nil
	}
}

// DestroyChannel implements store.RelayChannel.
func (c *SocketIO) DestroyChannel() error {
	if !c.created.Swap(false) {
		return nil
	}
	c.connected.Store(false)
	c.io.Disconnect()
	return nil
}

// ReplayInitialState implements store.RelayChannel. It emits one replay
// request carrying the current state snapshot so consumers that were already
// listening converge on this store's freshly initialized state.
func (c *SocketIO) ReplayInitialState() {
	if !c.connected.Load() {
		return
	}
	var snapshot map[string]any
	if c.cfg.State != nil {
		snapshot = c.cfg.State()
	}
	c.io.Emit(replayEvent, map[string]any{
		"id":    uuid.NewString(),
		"state": snapshot,
	})
}

var _ store.RelayChannel = (*SocketIO)(nil)
