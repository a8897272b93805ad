package qsbr

import (
	"sync"
	"testing"
	"time"

	"github.com/kolkov/urcu-qsbr/internal/rcu/epoch"
)

func newTestDomain() *Domain {
	return NewDomain(WithActiveSpinAttempts(3))
}

func TestRegisterUnregister(t *testing.T) {
	d := newTestDomain()
	r := d.Register()
	if !r.ReadOngoing() {
		t.Fatalf("freshly registered reader should report ongoing")
	}
	r.Unregister()
}

func TestOfflineOnline(t *testing.T) {
	d := newTestDomain()
	r := d.Register()
	defer r.Unregister()

	r.Offline()
	if r.ReadOngoing() {
		t.Fatalf("reader should report offline")
	}
	r.Online()
	if !r.ReadOngoing() {
		t.Fatalf("reader should report online again")
	}
}

func TestSynchronizeWaitsForReader(t *testing.T) {
	d := newTestDomain()
	r := d.Register()
	defer r.Unregister()

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("Synchronize returned before the reader quiesced")
	default:
	}

	r.QuiescentState()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Synchronize never returned")
	}
}

func TestReaderSynchronizeIsSelfWaitFree(t *testing.T) {
	d := newTestDomain()
	r := d.Register()
	defer r.Unregister()

	done := make(chan struct{})
	go func() {
		r.Synchronize()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Reader.Synchronize deadlocked on its own caller")
	}
	if !r.ReadOngoing() {
		t.Fatalf("reader should be restored online after Synchronize")
	}
}

func TestReaderSynchronizeIsSelfWaitFreeAsFollower(t *testing.T) {
	d := newTestDomain()
	r := d.Register()
	defer r.Unregister()

	// Occupy the leader role with a writer blocked on r, queue a second
	// writer that becomes the next leader, then have r call Synchronize on
	// itself so it enqueues behind that writer and is forced onto the
	// follower path. r must still go offline for the duration of the wait
	// or the first leader blocks on it forever.
	leaderDone := make(chan struct{})
	go func() {
		d.Synchronize()
		close(leaderDone)
	}()
	time.Sleep(5 * time.Millisecond)

	nextLeaderDone := make(chan struct{})
	go func() {
		d.Synchronize()
		close(nextLeaderDone)
	}()
	time.Sleep(5 * time.Millisecond)

	followerDone := make(chan struct{})
	go func() {
		r.Synchronize()
		close(followerDone)
	}()

	select {
	case <-followerDone:
	case <-time.After(time.Second):
		t.Fatalf("follower Reader.Synchronize deadlocked on its own stale counter")
	}

	select {
	case <-leaderDone:
	case <-time.After(time.Second):
		t.Fatalf("leader Synchronize never returned")
	}

	select {
	case <-nextLeaderDone:
	case <-time.After(time.Second):
		t.Fatalf("second leader Synchronize never returned")
	}
}

func TestSynchronizeCoalescesWriters(t *testing.T) {
	d := newTestDomain()
	r := d.Register()
	defer r.Unregister()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			d.Synchronize()
		}()
	}

	time.Sleep(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Writers arriving after the first leader drained the queue share a
	// second grace period, which needs one more quiescent state from r.
	deadline := time.After(2 * time.Second)
	for {
		r.QuiescentState()
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatalf("not all coalesced Synchronize calls returned")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestForcedTwoSubphaseVariant(t *testing.T) {
	d := NewDomain(WithActiveSpinAttempts(3), withForcedVariant(epoch.TwoSubphase32))
	r := d.Register()
	defer r.Unregister()

	done := make(chan struct{})
	go func() {
		d.Synchronize()
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	select {
	case <-done:
		t.Fatalf("two-subphase Synchronize returned before the reader quiesced")
	default:
	}

	// Each of the two subphases needs a quiescent state from r.
	deadline := time.After(time.Second)
	for {
		r.QuiescentState()
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatalf("two-subphase Synchronize never returned")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestInfoReportsRegisteredCount(t *testing.T) {
	d := newTestDomain()
	if got := d.Info().RegisteredReaders; got != 0 {
		t.Fatalf("RegisteredReaders = %d, want 0", got)
	}
	r := d.Register()
	if got := d.Info().RegisteredReaders; got != 1 {
		t.Fatalf("RegisteredReaders = %d, want 1", got)
	}
	r.Unregister()
	if got := d.Info().RegisteredReaders; got != 0 {
		t.Fatalf("RegisteredReaders = %d, want 0 after Unregister", got)
	}
}
