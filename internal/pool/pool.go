// Package pool manages two warm, fixed-size pools of database connection
// handles: a small WRITE pool that serializes mutating work against the
// primary, and a larger READ pool that serves catalog and seat-map traffic
// from the replica.  Splitting the pools keeps a burst of cheap reads from
// starving the few expensive write slots.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"
)

// Class selects which pool a handle is drawn from.
type Class int

const (
	// Read is the default class.  Ambiguous call sites bias toward READ: a
	// write wrongly routed here fails at the replica instead of silently
	// corrupting it, while a read routed to WRITE merely wastes capacity.
	Read Class = iota
	Write
)

func (c Class) String() string {
	if c == Write {
		return "WRITE"
	}
	return "READ"
}

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("pool: closed")

// fillTimeout bounds each handle checkout during construction.  A backend
// that cannot supply a handle within it costs the pool one slot instead of
// hanging startup; the pool proceeds at reduced capacity.
var fillTimeout = 5 * time.Second

// Handle is one checked-out connection.  It is exclusively owned by the
// acquiring goroutine until released.
type Handle struct {
	Conn  *sql.Conn
	class Class
}

// Class reports which pool the handle belongs to.
func (h *Handle) Class() Class { return h.class }

// Manager owns both pools.  Construct it once at startup and close it on
// shutdown; it is not a process-wide singleton.
type Manager struct {
	read  chan *Handle
	write chan *Handle
	done  chan struct{}
}

// New opens writeSize handles against the primary and readSize handles
// against the replica.  Handles that fail to open are logged and skipped, so
// an unreachable backend degrades the pool to reduced capacity instead of
// failing construction.
func New(ctx context.Context, primary, replica *sql.DB, writeSize, readSize int) *Manager {
	m := &Manager{
		read:  make(chan *Handle, readSize),
		write: make(chan *Handle, writeSize),
		done:  make(chan struct{}),
	}
	m.fill(ctx, primary, Write, writeSize)
	m.fill(ctx, replica, Read, readSize)
	log.Printf("pool: initialized write=%d/%d read=%d/%d",
		len(m.write), writeSize, len(m.read), readSize)
	return m
}

func (m *Manager) fill(ctx context.Context, db *sql.DB, class Class, size int) {
	for i := 0; i < size; i++ {
		connCtx, cancel := context.WithTimeout(ctx, fillTimeout)
		conn, err := db.Conn(connCtx)
		cancel()
		if err != nil {
			log.Printf("pool: opening %s handle %d/%d: %v", class, i+1, size, err)
			continue
		}
		m.queue(class) <- &Handle{Conn: conn, class: class}
	}
}

func (m *Manager) queue(class Class) chan *Handle {
	if class == Write {
		return m.write
	}
	return m.read
}

// Acquire blocks until a handle of the requested class is available or the
// context expires.  Callers must Release the handle on every exit path;
// prefer With for anything non-trivial.
func (m *Manager) Acquire(ctx context.Context, class Class) (*Handle, error) {
	select {
	case h := <-m.queue(class):
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrClosed
	}
}

// Release returns a handle to its pool and wakes one waiter.  After Close,
// released handles are discarded instead of re-queued.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	select {
	case <-m.done:
		h.close()
		return
	default:
	}
	select {
	case m.queue(h.class) <- h:
	default:
		// Pool already full: the handle was released twice.
		h.close()
	}
}

func (h *Handle) close() {
	if h.Conn != nil {
		_ = h.Conn.Close()
	}
}

// With acquires a handle, runs fn, and guarantees release regardless of how
// fn returns.
func (m *Manager) With(ctx context.Context, class Class, fn func(conn *sql.Conn) error) error {
	h, err := m.Acquire(ctx, class)
	if err != nil {
		return err
	}
	defer m.Release(h)
	return fn(h.Conn)
}

// Close unblocks all waiters and closes every idle handle.  Handles still
// checked out are closed as they are released.
func (m *Manager) Close() {
	close(m.done)
	for {
		select {
		case h := <-m.read:
			h.close()
		case h := <-m.write:
			h.close()
		default:
			return
		}
	}
}
