// Package server runs the TCP line-protocol front end: an accept loop, a
// worker pool that decodes and dispatches each client's requests against the
// matching engine, and per-connection session state for routing execution
// reports and market data back out, per spec.md §6 (out of scope for the
// core engine, but the necessary external collaborator wiring everything
// together).
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"matchbook/internal/feed"
	"matchbook/internal/matching"
	"matchbook/internal/protocol"
)

const (
	defaultWorkers     = 10
	defaultConnTimeout = 5 * time.Minute
	sendBufferSize     = 64
)

// clientSession owns one accepted connection: a dedicated writer goroutine
// drains out, so every response (from any worker) is serialized onto the
// wire without a mutex around conn.Write itself. id is a server-minted
// correlation id (distinct from a request's own request_id) used to key the
// session and to tag its log lines, the way the teacher mints a uuid per
// order rather than trusting the wire for identity.
type clientSession struct {
	id   string
	addr string
	conn net.Conn
	out  chan []byte
}

func (c *clientSession) send(line []byte) {
	select {
	case c.out <- line:
	default:
		// Slow consumer: drop rather than stall the worker that produced it.
	}
}

// Server is the TCP front end for one matching.Engine.
type Server struct {
	address string
	port    int
	engine  *matching.Engine
	tape    *feed.Tape
	pool    WorkerPool

	sessionsMu sync.Mutex
	sessions   map[string]*clientSession

	addrCh chan net.Addr

	log zerolog.Logger
}

// New constructs a Server listening on address:port, dispatching into engine
// and recording fills on tape.
func New(address string, port int, engine *matching.Engine, tape *feed.Tape, logger zerolog.Logger) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   engine,
		tape:     tape,
		pool:     NewWorkerPool(defaultWorkers, logger),
		sessions: make(map[string]*clientSession),
		addrCh:   make(chan net.Addr, 1),
		log:      logger,
	}
}

// Publish implements feed.Sink: every market-data tick is fanned out to
// every currently-connected session as a MARKET_DATA message per symbol.
func (s *Server) Publish(snapshots []feed.Snapshot) {
	for _, snap := range snapshots {
		line, err := protocol.Encode(protocol.TypeMarketData, protocol.FromSnapshot(snap))
		if err != nil {
			s.log.Error().Err(err).Msg("encode market data")
			continue
		}
		s.broadcast(line)
	}
}

// Addr blocks until the server's listener is bound and returns its address.
// Used by tests and by callers that bound to port 0 and need to discover
// the actual ephemeral port chosen.
func (s *Server) Addr() net.Addr {
	addr := <-s.addrCh
	s.addrCh <- addr
	return addr
}

func (s *Server) broadcast(line []byte) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for _, sess := range s.sessions {
		sess.send(line)
	}
}

// Run accepts connections on address:port and serves them until ctx is
// cancelled. The worker pool and the goroutine that closes the listener are
// owned by one tomb.Tomb; each session's writer goroutine is started and
// waited for by the worker handling that connection.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	defer listener.Close()
	s.addrCh <- listener.Addr()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	s.log.Info().Str("address", listener.Addr().String()).Msg("server listening")

	t.Go(func() error {
		<-t.Dying()
		return listener.Close()
	})

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return t.Wait()
			}
			s.log.Error().Err(err).Msg("accept failed")
			continue
		}
		s.pool.AddTask(conn)
	}
}

// handleConnection owns one connection for its entire lifetime: it starts
// the session's writer goroutine, then blocks reading newline-delimited
// JSON requests until the connection closes or t is dying.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return fmt.Errorf("server: unexpected task type %T", task)
	}
	defer conn.Close()

	sess := &clientSession{
		id:   uuid.New().String(),
		addr: conn.RemoteAddr().String(),
		conn: conn,
		out:  make(chan []byte, sendBufferSize),
	}
	s.addSession(sess)
	defer s.removeSession(sess.id)
	s.log.Debug().Str("session_id", sess.id).Str("addr", sess.addr).Msg("session opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for line := range sess.out {
			conn.SetWriteDeadline(time.Now().Add(defaultConnTimeout))
			if _, err := conn.Write(line); err != nil {
				return
			}
		}
	}()

	// Closing conn once t is dying unblocks a scanner waiting on an idle
	// connection.
	go func() {
		select {
		case <-t.Dying():
			conn.Close()
		case <-writerDone:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4*1024), 64*1024)

	for scanner.Scan() {
		select {
		case <-t.Dying():
			close(sess.out)
			<-writerDone
			return nil
		default:
		}

		var env protocol.Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			s.sendError(sess, "", fmt.Sprintf("malformed request: %v", err))
			continue
		}
		s.dispatch(sess, env)
	}

	close(sess.out)
	<-writerDone
	return nil
}

func (s *Server) dispatch(sess *clientSession, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeOrderNew:
		s.handleOrderNew(sess, env)
	case protocol.TypeOrderCancel:
		s.handleOrderCancel(sess, env)
	case protocol.TypeHeartbeat:
		line, err := protocol.Encode(protocol.TypeHeartbeat, struct{}{})
		if err == nil {
			sess.send(line)
		}
	default:
		s.sendError(sess, "", fmt.Sprintf("unsupported message type %q", env.Type))
	}
}

func (s *Server) handleOrderNew(sess *clientSession, env protocol.Envelope) {
	req, err := protocol.DecodeOrderNew(env)
	if err != nil {
		s.sendError(sess, "", err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	side, otype, err := parseOrderFields(req.Side, req.Type)
	if err != nil {
		s.sendError(sess, req.RequestID, err.Error())
		return
	}

	id, reports, err := s.engine.Submit(req.Symbol, side, otype, req.Price, req.Quantity)
	if err != nil {
		s.sendError(sess, req.RequestID, err.Error())
		return
	}

	if len(reports) > 0 {
		s.tape.PushAllFromReports(req.Symbol, side, reports)
	}
	for _, r := range reports {
		line, err := protocol.Encode(protocol.TypeExecutionReport, protocol.FromExecutionReport(req.RequestID, r))
		if err != nil {
			s.log.Error().Err(err).Msg("encode execution report")
			continue
		}
		sess.send(line)
	}

	s.log.Debug().Str("symbol", req.Symbol).Uint64("order_id", id).Int("fills", len(reports)/2).Msg("order accepted")
}

func (s *Server) handleOrderCancel(sess *clientSession, env protocol.Envelope) {
	req, err := protocol.DecodeOrderCancel(env)
	if err != nil {
		s.sendError(sess, "", err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	ok := s.engine.Cancel(req.Symbol, req.OrderID)
	if !ok {
		s.sendError(sess, req.RequestID, fmt.Sprintf("no live order %d on %s", req.OrderID, req.Symbol))
	}
}

func (s *Server) sendError(sess *clientSession, requestID, message string) {
	line, err := protocol.Encode(protocol.TypeError, protocol.ErrorPayload{RequestID: requestID, Message: message})
	if err != nil {
		s.log.Error().Err(err).Msg("encode error payload")
		return
	}
	sess.send(line)
}

func parseOrderFields(side, otype string) (matching.Side, matching.OrderType, error) {
	var s matching.Side
	switch side {
	case "BUY":
		s = matching.Buy
	case "SELL":
		s = matching.Sell
	default:
		return 0, 0, fmt.Errorf("server: unknown side %q", side)
	}

	var t matching.OrderType
	switch otype {
	case "LIMIT":
		t = matching.LimitOrder
	case "MARKET":
		t = matching.MarketOrder
	default:
		return 0, 0, fmt.Errorf("server: unknown order type %q", otype)
	}

	return s, t, nil
}

func (s *Server) addSession(sess *clientSession) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *Server) removeSession(id string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, id)
}
