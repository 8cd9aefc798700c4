package repository

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTurnstileRWLockAllowsConcurrentReaders(t *testing.T) {
	var l turnstileRWLock
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.rLock()
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			l.rUnlock()
		}()
	}
	wg.Wait()
	require.Greater(t, atomic.LoadInt32(&maxActive), int32(1), "multiple readers should run concurrently")
}

func TestTurnstileRWLockExcludesWriterFromReaders(t *testing.T) {
	var l turnstileRWLock
	var inWriter int32

	l.lock()
	readerDone := make(chan struct{})
	go func() {
		l.rLock()
		require.Equal(t, int32(0), atomic.LoadInt32(&inWriter), "a reader must never observe the writer section as active")
		l.rUnlock()
		close(readerDone)
	}()

	time.Sleep(10 * time.Millisecond)
	atomic.StoreInt32(&inWriter, 1)
	atomic.StoreInt32(&inWriter, 0)
	l.unlock()
	<-readerDone
}

func TestTurnstileRWLockBlocksNewReadersBehindWaitingWriter(t *testing.T) {
	var l turnstileRWLock
	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	l.rLock() // an initial reader holds the resource

	writerStarted := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		close(writerStarted)
		l.lock()
		record("writer")
		l.unlock()
		close(writerDone)
	}()
	<-writerStarted
	time.Sleep(10 * time.Millisecond) // let the writer queue at the turnstile

	lateReaderDone := make(chan struct{})
	go func() {
		l.rLock()
		record("late-reader")
		l.rUnlock()
		close(lateReaderDone)
	}()
	time.Sleep(10 * time.Millisecond)

	l.rUnlock() // release the original reader; the writer should go next
	<-writerDone
	<-lateReaderDone

	require.Equal(t, []string{"writer", "late-reader"}, order, "a reader arriving after a waiting writer must not cut ahead of it")
}
