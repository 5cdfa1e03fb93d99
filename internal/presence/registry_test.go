package presence

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (s *fakeSink) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, v)
	return nil
}

func (s *fakeSink) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func TestRegistry_JoinAndSnapshot(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	req.Empty(reg.Snapshot("1-2"))
	req.Zero(reg.Count("1-2"))

	reg.Join("1-2", "conn-a", 1, &fakeSink{})
	reg.Join("1-2", "conn-b", 2, &fakeSink{})

	req.Equal([]int{1, 2}, reg.Snapshot("1-2"))
	req.Equal(2, reg.Count("1-2"))
	req.True(reg.Contains("1-2", 1))
	req.False(reg.Contains("1-2", 3))
}

func TestRegistry_SnapshotDeduplicatesUsers(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	// Same user holding two channels on the room counts once.
	reg.Join("7", "conn-a", 5, &fakeSink{})
	reg.Join("7", "conn-b", 5, &fakeSink{})

	req.Equal([]int{5}, reg.Snapshot("7"))
	req.Equal(1, reg.Count("7"))
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Join("7", "conn-a", 1, &fakeSink{})
	snap := reg.Snapshot("7")

	reg.Join("7", "conn-b", 2, &fakeSink{})
	req.Equal([]int{1}, snap)
}

func TestRegistry_LeaveIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Join("1-2", "conn-a", 1, &fakeSink{})

	reg.Leave("1-2", "conn-a")
	reg.Leave("1-2", "conn-a")
	reg.Leave("1-2", "never-joined")
	reg.Leave("no-such-room", "conn-a")

	req.Empty(reg.Snapshot("1-2"))
}

func TestRegistry_EmptyRoomIsDropped(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Join("1-2", "conn-a", 1, &fakeSink{})
	reg.Leave("1-2", "conn-a")

	reg.mu.RLock()
	_, ok := reg.rooms["1-2"]
	reg.mu.RUnlock()
	req.False(ok)
}

func TestRegistry_BroadcastReachesEveryConnection(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	a := &fakeSink{}
	b := &fakeSink{}
	other := &fakeSink{}
	reg.Join("1-2", "conn-a", 1, a)
	reg.Join("1-2", "conn-b", 2, b)
	reg.Join("3-4", "conn-c", 3, other)

	reg.Broadcast("1-2", "hello")

	req.Equal(1, a.received())
	req.Equal(1, b.received())
	req.Zero(other.received())
}

func TestRegistry_BroadcastToUnknownRoom(t *testing.T) {
	reg := NewRegistry()
	// Must not panic.
	reg.Broadcast("ghost", "hello")
}

// overlapSink records whether two WriteJSON calls ever ran at the same time.
type overlapSink struct {
	active   int32
	overlaps int32
}

func (s *overlapSink) WriteJSON(v interface{}) error {
	if !atomic.CompareAndSwapInt32(&s.active, 0, 1) {
		atomic.AddInt32(&s.overlaps, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.StoreInt32(&s.active, 0)
	return nil
}

func TestConn_SerializesConcurrentWrites(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	raw := &overlapSink{}
	conn := NewConn(raw)
	reg.Join("1-2", "conn-a", 1, conn)
	reg.Join("1-2", "conn-b", 2, NewConn(&overlapSink{}))

	// Broadcasts from both participants race each other and a direct send on
	// the same connection, as when a pagination reply lands mid-broadcast.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				reg.Broadcast("1-2", "message")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			_ = conn.WriteJSON("previous")
		}
	}()
	wg.Wait()

	req.Zero(atomic.LoadInt32(&raw.overlaps),
		"writes to one connection must never overlap")
}

func TestRegistry_ConcurrentJoinLeave(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			room := fmt.Sprintf("room-%d", n%4)
			connID := fmt.Sprintf("conn-%d", n)
			for j := 0; j < 100; j++ {
				reg.Join(room, connID, n, &fakeSink{})
				reg.Snapshot(room)
				reg.Count(room)
				reg.Leave(room, connID)
			}
		}(i)
	}
	wg.Wait()

	for n := 0; n < 4; n++ {
		req.Empty(reg.Snapshot(fmt.Sprintf("room-%d", n)))
	}
}
