package net

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SessionState gates which console commands a session may run.
type SessionState int32

const (
	StateConnected SessionState = iota
	StateAuthenticated
	StateClosing
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// SessionOptions sizes the queues and limits of a session.
type SessionOptions struct {
	InQueueSize       int
	OutQueueSize      int
	CommandsPerSecond int // 0 = unlimited
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// Session is one console connection. Network I/O runs in dedicated
// goroutines; everything else is touched only from the tick goroutine.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32

	InQueue  chan string // tick loop reads command lines from here
	OutQueue chan string // writer goroutine reads from here

	IP string

	outBuf []string // buffered replies, flushed by the output system

	closeCh    chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool
	finishCh   chan struct{}
	finishOnce sync.Once

	opts SessionOptions

	// readLoop goroutine only
	cmdCount   int
	cmdResetAt int64

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, opts SessionOptions, log *zap.Logger) *Session {
	if opts.InQueueSize <= 0 {
		opts.InQueueSize = 16
	}
	if opts.OutQueueSize <= 0 {
		opts.OutQueueSize = 64
	}
	s := &Session{
		ID:       id,
		conn:     conn,
		InQueue:  make(chan string, opts.InQueueSize),
		OutQueue: make(chan string, opts.OutQueueSize),
		IP:       conn.RemoteAddr().String(),
		closeCh:  make(chan struct{}),
		finishCh: make(chan struct{}),
		opts:     opts,
		log:      log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(StateConnected))
	return s
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) SetState(st SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a reply line. Nothing is written until FlushOutput.
// Tick goroutine only.
func (s *Session) Send(line string) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, line)
}

// FlushOutput hands buffered replies to the writer goroutine. A session whose
// OutQueue is full is disconnected. A session marked by CloseAfterFlush is
// closed by the writer once everything queued so far is written.
func (s *Session) FlushOutput() {
	for _, line := range s.outBuf {
		select {
		case s.OutQueue <- line:
		default:
			s.log.Warn("console output queue full, disconnecting")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
	if s.State() == StateClosing {
		s.finishOnce.Do(func() { close(s.finishCh) })
	}
}

// CloseAfterFlush closes the session after its pending replies are sent.
func (s *Session) CloseAfterFlush() {
	s.SetState(StateClosing)
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(StateClosing)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads command lines and pushes them onto InQueue.
func (s *Session) readLoop() {
	defer s.Close()

	r := bufio.NewReaderSize(s.conn, MaxLineLength+2)
	for {
		if s.opts.ReadTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}
		line, err := ReadLine(r)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("console read ended", zap.Error(err))
			}
			return
		}

		if s.opts.CommandsPerSecond > 0 {
			now := time.Now().Unix()
			if now != s.cmdResetAt {
				s.cmdCount = 0
				s.cmdResetAt = now
			}
			s.cmdCount++
			if s.cmdCount > s.opts.CommandsPerSecond {
				s.log.Warn("console command rate exceeded, disconnecting", zap.Int("per_second", s.cmdCount))
				return
			}
		}

		select {
		case s.InQueue <- line:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes queued reply lines to the connection.
func (s *Session) writeLoop() {
	defer s.Close()
	for {
		select {
		case line := <-s.OutQueue:
			if !s.writeOne(line) {
				return
			}
		case <-s.finishCh:
			for {
				select {
				case line := <-s.OutQueue:
					if !s.writeOne(line) {
						return
					}
				default:
					return
				}
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(line string) bool {
	if s.opts.WriteTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if err := WriteLine(s.conn, line); err != nil {
		if !s.closed.Load() {
			s.log.Debug("console write failed", zap.Error(err))
		}
		return false
	}
	return true
}
