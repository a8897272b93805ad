package gp

import (
	"sync"
	"testing"
	"time"

	"github.com/kolkov/urcu-qsbr/internal/rcu/epoch"
	"github.com/kolkov/urcu-qsbr/internal/rcu/rcuconfig"
)

func TestRegisterThreadStartsOnline(t *testing.T) {
	d := New()
	rd := d.RegisterThread(1)
	if !rd.Online() {
		t.Fatalf("freshly registered reader should be online")
	}
	if d.RegisteredCount() != 1 {
		t.Fatalf("RegisteredCount() = %d, want 1", d.RegisteredCount())
	}
}

func TestUnregisterThreadForcesOfflineFirst(t *testing.T) {
	d := New()
	rd := d.RegisterThread(1)
	d.UnregisterThread(rd)
	if rd.Online() {
		t.Fatalf("unregistered reader should be offline")
	}
	if d.RegisteredCount() != 0 {
		t.Fatalf("RegisteredCount() = %d, want 0", d.RegisteredCount())
	}
}

func TestThreadOfflineOnlineRoundTrip(t *testing.T) {
	d := New()
	rd := d.RegisterThread(1)
	d.ThreadOffline(rd)
	if d.ReadOngoing(rd) {
		t.Fatalf("reader should report offline")
	}
	d.ThreadOnline(rd)
	if !d.ReadOngoing(rd) {
		t.Fatalf("reader should report online after ThreadOnline")
	}
}

// TestSynchronizeRCUWaitsForOnlineReader covers the baseline scenario: a
// single reader holding a reference must be observed quiescent before
// SynchronizeRCU returns.
func TestSynchronizeRCUWaitsForOnlineReader(t *testing.T) {
	d := New(WithConfig(fastTestConfig()))
	rd := d.RegisterThread(1)

	done := make(chan struct{})
	go func() {
		d.SynchronizeRCU(nil)
		close(done)
	}()

	// Give the writer a chance to observe the reader as active before it
	// quiesces.
	time.Sleep(5 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("SynchronizeRCU returned before the online reader quiesced")
	default:
	}

	d.QuiescentState(rd)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("SynchronizeRCU never returned after the reader quiesced")
	}
}

// TestSynchronizeRCUSkipsOfflineReader checks that an offline reader never
// blocks a grace period.
func TestSynchronizeRCUSkipsOfflineReader(t *testing.T) {
	d := New(WithConfig(fastTestConfig()))
	rd := d.RegisterThread(1)
	d.ThreadOffline(rd)

	done := make(chan struct{})
	go func() {
		d.SynchronizeRCU(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("SynchronizeRCU blocked on an offline reader")
	}
}

// TestSynchronizeRCUSelfWaitFreedom checks that a reader that is itself
// online and calls SynchronizeRCU as the grace-period leader does not
// deadlock waiting on its own stale counter.
func TestSynchronizeRCUSelfWaitFreedom(t *testing.T) {
	d := New(WithConfig(fastTestConfig()))
	rd := d.RegisterThread(1)

	done := make(chan struct{})
	go func() {
		d.SynchronizeRCU(rd)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("SynchronizeRCU deadlocked waiting on its own caller")
	}
	if !rd.Online() {
		t.Fatalf("self reader should be restored online after SynchronizeRCU returns")
	}
}

// TestSynchronizeRCUSelfWaitFreedomAsFollower checks the same self-wait
// freedom when the self-reader loses the leader race: another writer has
// already enqueued ahead of it, so this caller takes the waitAsFollower
// path. If self were not taken offline before the leader/follower
// decision, and self is the last reader the running grace period is
// waiting on, that grace period would block on this goroutine forever.
func TestSynchronizeRCUSelfWaitFreedomAsFollower(t *testing.T) {
	d := New(WithConfig(fastTestConfig()))
	rd := d.RegisterThread(1)

	// The first leader enqueues, drains the queue and blocks in
	// waitForReaders on rd, since rd is still online. A second writer then
	// finds the queue empty, becomes the next leader and blocks on gpLock.
	// rd calls SynchronizeRCU on itself, enqueues behind the second leader
	// and is forced onto the follower path. If self-wait-freedom did not
	// apply to followers, rd would sit in waitAsFollower while still
	// publishing a stale Ctr, and the first leader would wait on it
	// forever.
	leaderDone := make(chan struct{})
	go func() {
		d.SynchronizeRCU(nil)
		close(leaderDone)
	}()
	time.Sleep(5 * time.Millisecond)

	nextLeaderDone := make(chan struct{})
	go func() {
		d.SynchronizeRCU(nil)
		close(nextLeaderDone)
	}()
	time.Sleep(5 * time.Millisecond)

	followerDone := make(chan struct{})
	go func() {
		d.SynchronizeRCU(rd)
		close(followerDone)
	}()

	select {
	case <-followerDone:
	case <-time.After(time.Second):
		t.Fatalf("follower SynchronizeRCU deadlocked on its own stale counter")
	}

	select {
	case <-leaderDone:
	case <-time.After(time.Second):
		t.Fatalf("leader SynchronizeRCU never returned")
	}

	select {
	case <-nextLeaderDone:
	case <-time.After(time.Second):
		t.Fatalf("second leader SynchronizeRCU never returned")
	}
}

// TestSynchronizeRCUCoalescesConcurrentWriters checks that a burst of
// concurrent writers shares one grace period via the leader/follower
// protocol.
func TestSynchronizeRCUCoalescesConcurrentWriters(t *testing.T) {
	d := New(WithConfig(fastTestConfig()))
	rd := d.RegisterThread(1)

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			d.SynchronizeRCU(nil)
		}()
	}

	time.Sleep(5 * time.Millisecond)

	doneAll := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneAll)
	}()

	// Writers that enqueue after the first leader has drained the queue are
	// batched behind a second leader, whose grace period needs one more
	// quiescent state from rd, so rd keeps quiescing until all return.
	deadline := time.After(2 * time.Second)
	for {
		d.QuiescentState(rd)
		select {
		case <-doneAll:
			return
		case <-deadline:
			t.Fatalf("not every coalesced SynchronizeRCU call returned")
		case <-time.After(time.Millisecond):
		}
	}
}

// TestSynchronizeRCUTwoSubphase32 forces the two-subphase parity-toggle
// algorithm (normally selected only on 32-bit GOARCH) and checks it still
// waits out a reader across both subphases.
func TestSynchronizeRCUTwoSubphase32(t *testing.T) {
	cfg := fastTestConfig()
	d := New(WithConfig(cfg), WithVariant(epoch.TwoSubphase32))
	if d.Variant() != epoch.TwoSubphase32 {
		t.Fatalf("WithVariant override did not take effect")
	}
	rd := d.RegisterThread(1)

	done := make(chan struct{})
	go func() {
		d.SynchronizeRCU(nil)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("two-subphase SynchronizeRCU returned before the reader quiesced")
	default:
	}

	// The second subphase waits again on every reader found current in the
	// first, so rd must pass a quiescent state in each subphase.
	deadline := time.After(time.Second)
	for {
		d.QuiescentState(rd)
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatalf("two-subphase SynchronizeRCU never returned")
		case <-time.After(time.Millisecond):
		}
	}
}

// fastTestConfig shrinks the active-spin budget so tests exercise the
// futex-arm path quickly instead of waiting through a 100-iteration spin.
func fastTestConfig() rcuconfig.Config {
	cfg := rcuconfig.Default()
	cfg.ActiveAttempts = 3
	return cfg
}
