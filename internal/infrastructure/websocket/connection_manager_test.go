package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auctiond/pkg/logger"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool

	writing    int32
	overlapped int32
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	// Writes to one connection must never overlap; gorilla panics if they do.
	if !atomic.CompareAndSwapInt32(&f.writing, 0, 1) {
		atomic.StoreInt32(&f.overlapped, 1)
	}
	time.Sleep(time.Millisecond)
	defer atomic.StoreInt32(&f.writing, 0)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errSend
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error { return nil }

var errSend = errors.New("send failed")

func TestBroadcastReachesOnlyAuctionObservers(t *testing.T) {
	cm := NewConnectionManager(logger.Nop())

	a := &fakeConn{}
	b := &fakeConn{}
	cm.Register("auction_01", "c1", a)
	cm.Register("auction_02", "c2", b)

	assert.Nil(t, cm.BroadcastToAuction("auction_01", map[string]string{"hello": "world"}))

	check.Equal(t, 1, len(a.messages))
	check.Equal(t, 0, len(b.messages))
}

func TestBroadcastSkipsFailingObserver(t *testing.T) {
	cm := NewConnectionManager(logger.Nop())

	bad := &fakeConn{fail: true}
	good := &fakeConn{}
	cm.Register("auction_01", "bad", bad)
	cm.Register("auction_01", "good", good)

	assert.Nil(t, cm.BroadcastToAuction("auction_01", map[string]string{"k": "v"}))
	check.Equal(t, 1, len(good.messages))
}

func TestConcurrentBroadcastsSerializePerConnection(t *testing.T) {
	cm := NewConnectionManager(logger.Nop())

	conn := &fakeConn{}
	cm.Register("auction_01", "c1", conn)

	// The notify service broadcasts from its bid loop and its winner loop at
	// the same time; both must funnel through the per-connection lock.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = cm.BroadcastToAuction("auction_01", map[string]int{"worker": worker, "seq": j})
			}
		}(i)
	}
	wg.Wait()

	check.Equal(t, int32(0), atomic.LoadInt32(&conn.overlapped))
	check.Equal(t, 50, len(conn.messages))
}

func TestUnregisterStopsDelivery(t *testing.T) {
	cm := NewConnectionManager(logger.Nop())

	conn := &fakeConn{}
	cm.Register("auction_01", "c1", conn)
	check.Equal(t, 1, cm.ObserverCount())

	cm.Unregister("auction_01", "c1")
	check.Equal(t, 0, cm.ObserverCount())

	assert.Nil(t, cm.BroadcastToAuction("auction_01", "x"))
	check.Equal(t, 0, len(conn.messages))
}
