package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDriver hands out no-op connections so pool construction can be
// exercised against database/sql's real connection accounting.
type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func init() { sql.Register("poolstub", stubDriver{}) }

// testManager builds a manager with pre-seeded handles and no live database.
func testManager(writeSize, readSize int) *Manager {
	m := &Manager{
		read:  make(chan *Handle, readSize),
		write: make(chan *Handle, writeSize),
		done:  make(chan struct{}),
	}
	for i := 0; i < writeSize; i++ {
		m.write <- &Handle{class: Write}
	}
	for i := 0; i < readSize; i++ {
		m.read <- &Handle{class: Read}
	}
	return m
}

func TestAcquireRelease(t *testing.T) {
	m := testManager(1, 2)
	ctx := context.Background()

	h, err := m.Acquire(ctx, Write)
	require.NoError(t, err)
	assert.Equal(t, Write, h.Class())
	m.Release(h)

	h2, err := m.Acquire(ctx, Write)
	require.NoError(t, err)
	assert.Same(t, h, h2, "released handle should be recycled")
	m.Release(h2)
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	m := testManager(1, 0)
	ctx := context.Background()

	h, err := m.Acquire(ctx, Write)
	require.NoError(t, err)

	acquired := make(chan *Handle, 1)
	go func() {
		h2, err := m.Acquire(ctx, Write)
		if assert.NoError(t, err) {
			acquired <- h2
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquire succeeded while pool was exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	m.Release(h)
	select {
	case h2 := <-acquired:
		m.Release(h2)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by release")
	}
}

func TestAcquireDeadline(t *testing.T) {
	m := testManager(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Acquire(ctx, Read)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNoHandleHandedToTwoCallers(t *testing.T) {
	const size = 4
	const workers = 32
	m := testManager(0, size)
	ctx := context.Background()

	var mu sync.Mutex
	held := make(map[*Handle]bool)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h, err := m.Acquire(ctx, Read)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				assert.False(t, held[h], "handle handed out twice")
				held[h] = true
				mu.Unlock()

				mu.Lock()
				held[h] = false
				mu.Unlock()
				m.Release(h)
			}
		}()
	}
	wg.Wait()
}

func TestWithReleasesOnError(t *testing.T) {
	m := testManager(1, 0)
	ctx := context.Background()

	err := m.With(ctx, Write, func(conn *sql.Conn) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)

	// The handle must be back in the pool despite the error.
	h, err := m.Acquire(ctx, Write)
	require.NoError(t, err)
	m.Release(h)
}

func TestSharedBackendFillsBothPools(t *testing.T) {
	db, err := sql.Open("poolstub", "")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(3)

	m := New(context.Background(), db, db, 2, 1)
	assert.Equal(t, 2, len(m.write))
	assert.Equal(t, 1, len(m.read))
	m.Close()
}

func TestFillDegradesWhenBackendExhausted(t *testing.T) {
	db, err := sql.Open("poolstub", "")
	require.NoError(t, err)
	defer db.Close()
	// One conn short: the WRITE fill checks out both, leaving nothing for
	// the READ fill to draw on.
	db.SetMaxOpenConns(2)

	old := fillTimeout
	fillTimeout = 50 * time.Millisecond
	defer func() { fillTimeout = old }()

	done := make(chan *Manager, 1)
	go func() { done <- New(context.Background(), db, db, 2, 1) }()

	select {
	case m := <-done:
		assert.Equal(t, 2, len(m.write))
		assert.Equal(t, 0, len(m.read), "read fill must degrade to reduced capacity, not block")
		m.Close()
	case <-time.After(3 * time.Second):
		t.Fatal("pool construction hung on an exhausted backend")
	}
}

func TestCloseUnblocksWaiters(t *testing.T) {
	m := testManager(0, 0)
	errs := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background(), Read)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)
	m.Close()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("close did not unblock waiter")
	}
}
