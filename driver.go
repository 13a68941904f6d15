// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// Codec frames logical exchanges on a duplex byte stream. It is the
// protocol boundary of the [ConnDriver]: this package does not implement
// any specific protocol and instead delegates request decoding and
// response encoding to a collaborator.
//
// ReadRequest returns [io.EOF] when the stream ends cleanly before the
// next request, and [ErrRemoteGoAway] (possibly wrapped) when the peer
// signals protocol-level graceful termination. Both conditions are
// classified as benign by the driver.
//
// WriteResponse writes to the buffered writer; the driver flushes after
// each exchange.
type Codec[Request, Response any] interface {
	ReadRequest(br *bufio.Reader) (Request, error)
	WriteResponse(bw *bufio.Writer, resp Response) error
}

// DriverMode selects how the [ConnDriver] serves a connection.
//
// The mode set is closed on purpose: each mode has its own serving
// behavior baked into the driver, selected at configuration time, and
// this is not an open extension point.
type DriverMode int

const (
	// ModePlain serves request/response exchanges with the configured
	// [Codec] until the stream ends. This is the default mode.
	ModePlain = DriverMode(iota)

	// ModeUpgradeable behaves like [ModePlain], except that a service may
	// take over the raw connection after an exchange by inserting an
	// [UpgradeFunc] fact into the per-exchange context.
	ModeUpgradeable

	// ModeAutoDetect peeks at the first bytes of the stream to choose
	// between the primary and the alternate [Codec]. Graceful shutdown is
	// not supported in this mode: cancellation is still observed, but the
	// shutdown action is a no-op and the serving loop runs to natural
	// completion.
	ModeAutoDetect
)

// UpgradeFunc is a fact that a [Service] inserts into its per-exchange
// context to take over the raw connection once the current response has
// been written. The driver only honors it under [ModeUpgradeable]. The
// serving loop terminates with the function's return value, which goes
// through the usual benign-close classification.
type UpgradeFunc func(conn net.Conn) error

// NewConnDriver returns a new [*ConnDriver] in [ModePlain].
//
// The cfg argument contains the common configuration for weft primitives.
//
// The codec argument frames logical exchanges on driven connections.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewConnDriver[State, Request, Response any](
	cfg *Config, codec Codec[Request, Response], logger SLogger,
) *ConnDriver[State, Request, Response] {
	return &ConnDriver[State, Request, Response]{
		AltCodec:      nil,
		Codec:         codec,
		Detect:        nil,
		DetectSize:    0,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Mode:          ModePlain,
		TimeNow:       cfg.TimeNow,
	}
}

// ConnDriver serves exactly one accepted connection with a [Service],
// honoring cooperative cancellation through the context's [*Guard], and
// produces a single terminal classification: benign terminations (orderly
// close, shutdown-induced close, ordinary disconnects) surface as nil,
// everything else propagates verbatim to the caller.
//
// Each logical exchange is served with a clone of the connection context,
// so facts inserted by the service while handling one exchange never leak
// into the next one.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Drive].
type ConnDriver[State, Request, Response any] struct {
	// AltCodec is the alternate codec for [ModeAutoDetect].
	//
	// Set by the user when configuring auto-detection.
	AltCodec Codec[Request, Response]

	// Codec frames logical exchanges on the connection.
	//
	// Set by [NewConnDriver] to the user-provided codec.
	Codec Codec[Request, Response]

	// Detect inspects the first bytes of the stream and returns true when
	// the driver should use AltCodec instead of Codec ([ModeAutoDetect]).
	//
	// Set by the user when configuring auto-detection.
	Detect func(prefix []byte) bool

	// DetectSize is how many bytes Detect needs (default: 1).
	DetectSize int

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConnDriver] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewConnDriver] to the user-provided logger.
	Logger SLogger

	// Mode selects the serving behavior.
	//
	// Set by [NewConnDriver] to [ModePlain].
	Mode DriverMode

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewConnDriver] from [Config.TimeNow].
	TimeNow func() time.Time
}

// Drive serves the given connection with the given service until the
// stream ends, the guard fires, or a fatal error occurs.
//
// When ctx carries a [*Guard], Drive races the serving loop against the
// guard's cancellation signal. If the guard fires first, Drive initiates
// a graceful shutdown (stop accepting new exchanges, let the in-flight
// one finish) and then waits for the same loop to reach its actual
// completion. Without a guard, Drive simply awaits the loop. In both
// cases the raw completion goes through the benign-close classification
// exactly once.
func (d *ConnDriver[State, Request, Response]) Drive(
	ctx *Context[State], conn net.Conn, svc Service[State, Request, Response]) error {
	spanID := NewSpanID()
	t0 := d.TimeNow()
	d.Logger.Info(
		"serveStart",
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", spanID),
		slog.Time("t", t0),
	)

	loop := &serveLoop[State, Request, Response]{
		conn:         conn,
		ctx:          ctx,
		drv:          d,
		inFlight:     false,
		mu:           sync.Mutex{},
		shuttingDown: false,
		svc:          svc,
	}
	done := make(chan error, 1)
	go func() {
		done <- loop.run()
	}()

	var rawErr error
	if guard := ctx.Guard(); guard != nil {
		select {
		case rawErr = <-done:
		case <-guard.Cancelled():
			d.Logger.Info(
				"serveShutdown",
				slog.String("localAddr", safeconn.LocalAddr(conn)),
				slog.String("protocol", safeconn.Network(conn)),
				slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
				slog.String("spanID", spanID),
				slog.Time("t", d.TimeNow()),
			)
			loop.gracefulShutdown()
			rawErr = <-done
		}
	} else {
		rawErr = <-done
	}

	err := classifyServeResult(rawErr)
	d.Logger.Info(
		"serveDone",
		slog.Any("err", err),
		slog.String("errClass", d.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", spanID),
		slog.Time("t0", t0),
		slog.Time("t", d.TimeNow()),
	)
	return err
}

// serveLoop is the per-connection serving state created by [ConnDriver.Drive].
type serveLoop[State, Request, Response any] struct {
	conn net.Conn
	ctx  *Context[State]
	drv  *ConnDriver[State, Request, Response]
	svc  Service[State, Request, Response]

	// mu protects inFlight and shuttingDown.
	mu           sync.Mutex
	inFlight     bool
	shuttingDown bool
}

// run serves exchanges until the stream ends, shutdown is requested, or
// an error occurs. The returned error is the raw completion, before
// benign-close classification.
func (sl *serveLoop[State, Request, Response]) run() error {
	br := bufio.NewReader(sl.conn)
	bw := bufio.NewWriter(sl.conn)

	codec, err := sl.selectCodec(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	for {
		if sl.isShuttingDown() {
			return ErrServeClosed
		}

		req, err := codec.ReadRequest(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if sl.isShuttingDown() {
				// The error was induced by the read deadline we set to
				// unblock the idle read; the shutdown is orderly.
				return ErrServeClosed
			}
			return err
		}

		sl.setInFlight(true)
		exchCtx := sl.ctx.Clone()
		resp, err := sl.svc.Serve(exchCtx, req)
		if err != nil {
			sl.setInFlight(false)
			return err
		}
		if err := codec.WriteResponse(bw, resp); err != nil {
			sl.setInFlight(false)
			return err
		}
		if err := bw.Flush(); err != nil {
			sl.setInFlight(false)
			return err
		}

		if sl.drv.Mode == ModeUpgradeable {
			if upgrade, ok := Get[UpgradeFunc](exchCtx.Extensions()); ok {
				sl.setInFlight(false)
				return upgrade(sl.conn)
			}
		}

		if sl.endExchange() {
			return ErrServeClosed
		}
	}
}

// selectCodec picks the codec to use for this connection, peeking at the
// stream under [ModeAutoDetect].
func (sl *serveLoop[State, Request, Response]) selectCodec(
	br *bufio.Reader) (Codec[Request, Response], error) {
	if sl.drv.Mode != ModeAutoDetect || sl.drv.AltCodec == nil || sl.drv.Detect == nil {
		return sl.drv.Codec, nil
	}
	size := sl.drv.DetectSize
	if size <= 0 {
		size = 1
	}
	prefix, err := br.Peek(size)
	if len(prefix) <= 0 && err != nil {
		return nil, err
	}
	if sl.drv.Detect(prefix) {
		return sl.drv.AltCodec, nil
	}
	return sl.drv.Codec, nil
}

// gracefulShutdown stops the loop from accepting new exchanges. An
// in-flight exchange always finishes; an idle read blocked on the next
// request is unblocked through an immediate read deadline.
func (sl *serveLoop[State, Request, Response]) gracefulShutdown() {
	if sl.drv.Mode == ModeAutoDetect {
		// Graceful shutdown is not supported in auto-detect mode: the
		// loop runs to natural completion.
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.shuttingDown {
		return
	}
	sl.shuttingDown = true
	if !sl.inFlight {
		sl.conn.SetReadDeadline(time.Unix(1, 0))
	}
}

func (sl *serveLoop[State, Request, Response]) isShuttingDown() bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.shuttingDown
}

func (sl *serveLoop[State, Request, Response]) setInFlight(inFlight bool) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.inFlight = inFlight
}

// endExchange marks the current exchange as finished and reports whether
// shutdown was requested while it was in flight.
func (sl *serveLoop[State, Request, Response]) endExchange() bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.inFlight = false
	return sl.shuttingDown
}
