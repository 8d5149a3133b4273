package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/letsshare/config"
	"github.com/opd-ai/letsshare/file"
	"github.com/opd-ai/letsshare/firewall"
	"github.com/opd-ai/letsshare/history"
	"github.com/opd-ai/letsshare/limits"
	"github.com/opd-ai/letsshare/protocol"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
)

// Option configures a Session's collaborators.
type Option func(*Session)

// WithSlot shares slot with other sessions of the same role endpoint.
func WithSlot(slot *Slot) Option {
	return func(s *Session) { s.slot = slot }
}

// WithPortProbe replaces the probe consulted before binding.
func WithPortProbe(probe PortProbe) Option {
	return func(s *Session) { s.probe = probe }
}

// WithDialer replaces the dialer used by DialPeer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithProvisioner replaces the firewall provisioner.
func WithProvisioner(p firewall.Provisioner) Option {
	return func(s *Session) { s.provisioner = p }
}

// WithAnnouncer advertises waiting receivers on the local network.
func WithAnnouncer(a Announcer) Option {
	return func(s *Session) { s.announcer = a }
}

// WithHistory sets where completed transfers are recorded.
func WithHistory(sink history.Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// link holds the resources of one connection attempt. It is torn down
// exactly once, whichever of the worker or the owner gets there first.
type link struct {
	ctx    context.Context
	cancel context.CancelFunc

	port     int
	firewall bool // rules were requested for port

	// Guarded by Session.mu
	listener     net.Listener
	conn         net.Conn
	transfer     *file.Transfer
	announcement io.Closer
	pending      *file.Transfer // sender: file chosen by SendFile
	ready        chan struct{}  // sender: closed once pending is set
	accepting    bool
	closed       bool

	revokeOnce   sync.Once
	teardownOnce sync.Once
}

// Session owns one endpoint's connection lifecycle: it binds or dials, runs
// the handshake and the transfer engine on a worker goroutine, publishes
// events, and tears every resource down through one path.
type Session struct {
	id   string
	opts config.Options

	slot        *Slot
	probe       PortProbe
	dialer      Dialer
	provisioner firewall.Provisioner
	announcer   Announcer
	sink        history.Sink
	pub         *publisher

	mu     sync.Mutex
	role   Role
	status Status
	peer   string
	err    error
	link   *link
	closed bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates an idle session. A nil opts uses config.NewOptions.
func New(opts *config.Options, options ...Option) *Session {
	if opts == nil {
		opts = config.NewOptions()
	}

	s := &Session{
		id:          uuid.NewString(),
		opts:        *opts,
		slot:        NewSlot(),
		probe:       TCPPortProbe{},
		dialer:      &net.Dialer{},
		provisioner: firewall.Noop{},
		pub:         newPublisher(),
	}
	for _, o := range options {
		o(s)
	}

	s.logger("New").WithFields(logrus.Fields{
		"connect_timeout": s.opts.ConnectTimeout,
		"idle_timeout":    s.opts.IdleTimeout,
	}).Debug("Session created")

	return s
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// Events returns the ordered event stream. It is closed by Teardown.
func (s *Session) Events() <-chan Event { return s.pub.events() }

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Role returns the role of the current or last connection.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// PeerAddress returns the remote host once connected.
func (s *Session) PeerAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Err returns the error the last connection failed with.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ListenAddr returns the receiver's bound address while awaiting a peer.
func (s *Session) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == nil || s.link.listener == nil {
		return nil
	}
	return s.link.listener.Addr()
}

// Transfer returns the current or last file transfer, if one began.
func (s *Session) Transfer() *file.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == nil {
		return nil
	}
	if s.link.transfer != nil {
		return s.link.transfer
	}
	return s.link.pending
}

// PrepareReceiver binds a listener on port and moves to AwaitingPeer. It
// fails with ErrPortUnavailable when the probe or the bind fails.
func (s *Session) PrepareReceiver(port int) error {
	if err := limits.ValidatePort(port); err != nil {
		return newTransferError("listen", "", err)
	}

	l, err := s.beginLink(RoleReceiver)
	if err != nil {
		return err
	}
	logger := s.logger("PrepareReceiver").WithField("port", port)
	addr := net.JoinHostPort("", strconv.Itoa(port))

	if !s.probe.IsPortFree(port) {
		logger.Warn("Port probe failed")
		return s.abortLink(l, newTransferError("listen", addr, ErrPortUnavailable))
	}

	l.port = port
	l.firewall = true
	if err := s.provisioner.OpenInboundOutbound(port); err != nil {
		logger.WithField("error", err.Error()).Warn("Firewall provisioning failed, continuing")
	}

	lc := listenConfig()
	ln, err := lc.Listen(l.ctx, "tcp", addr)
	if err != nil {
		logger.WithField("error", err.Error()).Error("Failed to bind listener")
		return s.abortLink(l, newTransferError("listen", addr, fmt.Errorf("%w: %w", ErrPortUnavailable, err)))
	}
	ln = netutil.LimitListener(ln, 1)

	var ann io.Closer
	if s.announcer != nil && s.opts.Discovery {
		ann, err = s.announcer.Announce(port, "session="+s.id)
		if err != nil {
			logger.WithField("error", err.Error()).Warn("Discovery announcement failed, continuing")
			ann = nil
		}
	}

	s.mu.Lock()
	l.listener = ln
	l.announcement = ann
	s.setStatusLocked(StatusAwaitingPeer, "Waiting for connection...")
	s.mu.Unlock()

	logger.WithField("addr", ln.Addr().String()).Info("Receiver waiting for peer")
	return nil
}

// AcceptOnce starts the receive worker: it accepts exactly one peer, runs
// the handshake and streams the announced file into the download directory.
// Cancelling ctx disconnects the session.
func (s *Session) AcceptOnce(ctx context.Context) error {
	s.mu.Lock()
	l := s.link
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.role != RoleReceiver || s.status != StatusAwaitingPeer || l == nil || l.accepting {
		s.mu.Unlock()
		return fmt.Errorf("%w: accept while %s as %s", ErrWrongState, s.status, s.role)
	}
	l.accepting = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.receiveWorker(ctx, l)
	return nil
}

// DialPeer validates address and starts the send worker, which connects to
// address:port within the connect timeout and then waits for SendFile.
// Address validation is synchronous and touches no socket.
func (s *Session) DialPeer(ctx context.Context, address string, port int) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}
	if err := limits.ValidatePort(port); err != nil {
		return newTransferError("dial", address, err)
	}

	l, err := s.beginLink(RoleSender)
	if err != nil {
		return err
	}

	s.mu.Lock()
	l.ready = make(chan struct{})
	s.peer = address
	s.setStatusLocked(StatusConnecting, "Connecting to "+address+"...")
	s.mu.Unlock()

	s.wg.Add(1)
	go s.sendWorker(ctx, l, net.JoinHostPort(address, strconv.Itoa(port)))
	return nil
}

// SendFile picks the file the send worker streams once connected. It may be
// called while still connecting.
func (s *Session) SendFile(path string) error {
	t, err := file.NewOutgoing(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.link
	if s.role != RoleSender || l == nil || l.closed || l.pending != nil ||
		(s.status != StatusConnecting && s.status != StatusConnected) {
		return fmt.Errorf("%w: send while %s as %s", ErrWrongState, s.status, s.role)
	}
	l.pending = t
	close(l.ready)

	s.logger("SendFile").WithFields(logrus.Fields{
		"file_name": t.FileName,
		"file_size": t.FileSize,
	}).Info("File selected for sending")
	return nil
}

// Disconnect stops the current connection. From an active status it moves
// to Disconnected, cancels the transfer and tears the link down; from a
// terminal status it re-arms to Idle. It is a no-op when Idle.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	l := s.link
	switch {
	case s.status == StatusIdle:
		s.mu.Unlock()
		return nil
	case s.status.Terminal():
		s.setStatusLocked(StatusIdle, "")
		s.mu.Unlock()
	default:
		s.setStatusLocked(StatusDisconnected, "Disconnected")
		s.mu.Unlock()
		s.logger("Disconnect").Info("Disconnecting")
	}

	if l != nil {
		s.teardownLink(l)
	}
	return nil
}

// Wait blocks until the current worker, if any, has finished, and returns
// the error the connection failed with.
func (s *Session) Wait() error {
	s.wg.Wait()
	return s.Err()
}

// Teardown disconnects, waits for the worker and closes the event stream.
// The session cannot be used afterwards.
func (s *Session) Teardown() error {
	s.closeOnce.Do(func() {
		_ = s.Disconnect()
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.pub.close()
		s.logger("Teardown").Debug("Session torn down")
	})
	return nil
}

// ValidateAddress accepts only non-empty IPv4 dotted quads.
func ValidateAddress(address string) error {
	if address == "" {
		return newTransferError("dial", "", fmt.Errorf("%w: address is empty", ErrInvalidAddress))
	}
	ip, err := netip.ParseAddr(address)
	if err != nil || !ip.Is4() {
		return newTransferError("dial", address, fmt.Errorf("%w: not a dotted quad", ErrInvalidAddress))
	}
	return nil
}

// beginLink claims the session and its slot for a new connection. A
// terminal previous connection is re-armed first.
func (s *Session) beginLink(role Role) (*link, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.status != StatusIdle && !s.status.Terminal() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: already %s", ErrBusy, s.status)
	}
	stale := s.link
	s.mu.Unlock()

	if stale != nil {
		s.teardownLink(stale)
	}

	if err := s.slot.Acquire(s.id); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &link{ctx: ctx, cancel: cancel}

	s.mu.Lock()
	if s.status.Terminal() {
		s.setStatusLocked(StatusIdle, "")
	}
	s.role = role
	s.peer = ""
	s.err = nil
	s.link = l
	s.mu.Unlock()

	return l, nil
}

// abortLink undoes a link that never reached a waiting state, leaving the
// session Idle.
func (s *Session) abortLink(l *link, err error) error {
	s.teardownLink(l)

	s.mu.Lock()
	if s.link == l {
		s.link = nil
	}
	s.err = err
	s.mu.Unlock()
	return err
}

func (s *Session) receiveWorker(ctx context.Context, l *link) {
	defer s.wg.Done()
	stop := context.AfterFunc(ctx, func() { _ = s.Disconnect() })
	defer stop()

	s.mu.Lock()
	ln := l.listener
	s.mu.Unlock()
	logger := s.logger("receiveWorker")
	if ln == nil {
		s.fail(l, newTransferError("accept", "", ErrCancelled))
		return
	}

	conn, err := ln.Accept()
	if err != nil {
		s.fail(l, newTransferError("accept", ln.Addr().String(), fmt.Errorf("%w: %w", ErrAccept, err)))
		return
	}

	// One peer per listen cycle
	s.mu.Lock()
	l.listener = nil
	s.mu.Unlock()
	ln.Close()
	s.revokeFirewall(l)

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetReadBuffer(s.opts.BufferSize); err != nil {
			logger.WithField("error", err.Error()).Debug("Failed to set receive buffer")
		}
	}
	peer := hostOf(conn.RemoteAddr())
	ic := newIdleConn(conn, s.opts.IdleTimeout)
	if !s.attachConn(l, ic, peer) {
		return
	}

	r := bufio.NewReaderSize(ic, s.opts.BufferSize)
	if err := protocol.AwaitHandshake(r, ic, s.opts.IdleTimeout); err != nil {
		s.fail(l, newTransferError("handshake", peer, err))
		return
	}

	meta, err := protocol.ReadMetadata(r)
	if err != nil {
		s.fail(l, newTransferError("metadata", peer, err))
		return
	}

	if err := os.MkdirAll(s.opts.DownloadDir, 0o755); err != nil {
		s.fail(l, newTransferError("receive", peer, fmt.Errorf("%w: create download directory: %w", ErrIO, err)))
		return
	}
	t, err := file.NewIncoming(s.opts.DownloadDir, meta.FileName, meta.FileSize, s.opts.SanitizeFileNames)
	if err != nil {
		s.fail(l, newTransferError("receive", peer, err))
		return
	}

	s.stream(l, t, peer, fmt.Sprintf("Receiving %s (%s)", t.FileName, file.FormatSize(t.FileSize)), func() error {
		return t.Receive(r)
	})
}

func (s *Session) sendWorker(ctx context.Context, l *link, addr string) {
	defer s.wg.Done()
	stop := context.AfterFunc(ctx, func() { _ = s.Disconnect() })
	defer stop()

	logger := s.logger("sendWorker").WithField("addr", addr)

	dctx, cancel := context.WithTimeout(l.ctx, s.opts.ConnectTimeout)
	conn, err := s.dialer.DialContext(dctx, "tcp", addr)
	timedOut := errors.Is(dctx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		switch {
		case l.ctx.Err() != nil:
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		case timedOut || isTimeout(err):
			err = fmt.Errorf("%w after %v: %w", ErrConnectTimeout, s.opts.ConnectTimeout, err)
		default:
			err = fmt.Errorf("%w: %w", ErrConnect, err)
		}
		s.fail(l, newTransferError("dial", addr, err))
		return
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetWriteBuffer(s.opts.BufferSize); err != nil {
			logger.WithField("error", err.Error()).Debug("Failed to set send buffer")
		}
	}
	peer := hostOf(conn.RemoteAddr())
	ic := newIdleConn(conn, s.opts.IdleTimeout)
	if !s.attachConn(l, ic, peer) {
		return
	}

	select {
	case <-l.ready:
	case <-l.ctx.Done():
		return
	}

	s.mu.Lock()
	t := l.pending
	s.mu.Unlock()

	w := bufio.NewWriterSize(ic, s.opts.BufferSize)
	if err := protocol.SendHandshake(w); err != nil {
		s.fail(l, newTransferError("handshake", peer, fmt.Errorf("%w: %w", ErrIO, err)))
		return
	}
	meta := protocol.Metadata{FileSize: t.FileSize, FileName: t.FileName}
	if err := protocol.WriteMetadata(w, meta); err != nil {
		s.fail(l, newTransferError("metadata", peer, err))
		return
	}
	if err := w.Flush(); err != nil {
		s.fail(l, newTransferError("metadata", peer, fmt.Errorf("%w: %w", ErrIO, err)))
		return
	}

	s.stream(l, t, peer, fmt.Sprintf("Sending %s (%s)", t.FileName, file.FormatSize(t.FileSize)), func() error {
		return t.Send(w)
	})
}

// stream runs the engine on an established link and finishes the link with
// its outcome.
func (s *Session) stream(l *link, t *file.Transfer, peer, message string, run func() error) {
	t.Peer = peer
	t.SetPacingDelay(s.opts.PacingDelay)
	if s.sink != nil {
		t.SetRecorder(s.sink)
	}
	t.OnProgress(func(p file.Progress) {
		s.pub.publish(Event{
			SessionID: s.id,
			Kind:      EventProgress,
			Status:    StatusTransferring,
			Progress:  p,
			Message:   p.String(),
			Time:      time.Now(),
		})
	})

	s.mu.Lock()
	if l.closed {
		s.mu.Unlock()
		return
	}
	l.transfer = t
	s.mu.Unlock()

	if err := t.Start(); err != nil {
		s.fail(l, newTransferError("start", peer, err))
		return
	}

	s.mu.Lock()
	s.setStatusLocked(StatusTransferring, message)
	s.mu.Unlock()

	if err := run(); err != nil {
		s.fail(l, newTransferError("transfer", peer, err))
		return
	}
	s.complete(l, t)
}

// attachConn records an established connection on the link, or closes it
// when the link was torn down meanwhile.
func (s *Session) attachConn(l *link, conn net.Conn, peer string) bool {
	s.mu.Lock()
	if l.closed {
		s.mu.Unlock()
		conn.Close()
		return false
	}
	l.conn = conn
	s.peer = peer
	s.setStatusLocked(StatusConnected, "Connected with "+peer)
	s.mu.Unlock()

	s.logger("attachConn").WithField("peer", peer).Info("Peer connected")
	return true
}

func (s *Session) complete(l *link, t *file.Transfer) {
	s.mu.Lock()
	if s.link == l && !l.closed && s.setStatusLocked(StatusCompleted, "Transfer complete") {
		s.pub.publish(Event{
			SessionID: s.id,
			Kind:      EventCompleted,
			Status:    StatusCompleted,
			Progress:  file.Progress{Transferred: t.Transferred(), Total: t.FileSize, Percentage: 100},
			Message:   fmt.Sprintf("%s %s successfully", t.FileName, completedVerb(t.Direction)),
			Time:      time.Now(),
		})
	}
	s.mu.Unlock()

	s.teardownLink(l)
}

// fail reports err as the link's terminal failure unless the owner already
// disconnected, then tears the link down.
func (s *Session) fail(l *link, err error) {
	s.mu.Lock()
	switch {
	case s.link != l:
	case l.closed:
		// The owner disconnected first; the failure is its consequence
		if !errors.Is(err, ErrCancelled) {
			err = fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		s.err = err
	default:
		s.err = err
		if s.setStatusLocked(StatusFailed, err.Error()) {
			s.pub.publish(Event{
				SessionID: s.id,
				Kind:      EventFailed,
				Status:    StatusFailed,
				Message:   err.Error(),
				Err:       err,
				Time:      time.Now(),
			})
		}
	}
	s.mu.Unlock()

	s.logger("fail").WithField("error", err.Error()).Warn("Connection failed")
	s.teardownLink(l)
}

// teardownLink releases every resource of l exactly once.
func (s *Session) teardownLink(l *link) {
	l.teardownOnce.Do(func() {
		l.cancel()

		s.mu.Lock()
		l.closed = true
		t, ln, conn, ann := l.transfer, l.listener, l.conn, l.announcement
		l.listener, l.conn, l.announcement = nil, nil, nil
		s.mu.Unlock()

		if t != nil {
			// Errors once the transfer already finished
			_ = t.Cancel()
		}
		if ln != nil {
			ln.Close()
		}
		if conn != nil {
			conn.Close()
		}
		if ann != nil {
			ann.Close()
		}
		s.revokeFirewall(l)
		s.slot.Release(s.id)

		s.logger("teardownLink").Debug("Connection resources released")
	})
}

// revokeFirewall removes the rules opened for l, at most once.
func (s *Session) revokeFirewall(l *link) {
	if !l.firewall {
		return
	}
	l.revokeOnce.Do(func() {
		if err := s.provisioner.RevokeRules(l.port); err != nil {
			s.logger("revokeFirewall").WithFields(logrus.Fields{
				"port":  l.port,
				"error": err.Error(),
			}).Warn("Failed to revoke firewall rules")
		}
	})
}

// setStatusLocked moves to next if allowed and publishes the transition.
// s.mu must be held.
func (s *Session) setStatusLocked(next Status, message string) bool {
	if !canTransition(s.status, next) {
		return false
	}
	prev := s.status
	s.status = next
	s.pub.publish(Event{
		SessionID: s.id,
		Kind:      EventStatus,
		Status:    next,
		Message:   message,
		Time:      time.Now(),
	})

	logrus.WithFields(logrus.Fields{
		"function":   "setStatus",
		"session_id": s.id,
		"role":       s.role,
		"from":       prev,
		"to":         next,
	}).Debug("Session status changed")
	return true
}

func (s *Session) logger(function string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"function":   function,
		"session_id": s.id,
	})
}

func completedVerb(d file.TransferDirection) string {
	if d == file.TransferDirectionOutgoing {
		return "sent"
	}
	return "received"
}

// hostOf returns the IP of a TCP address, or its string form otherwise.
func hostOf(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// isTimeout reports whether err was caused by an expired deadline.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
