package switchbuffer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fastrand"
)

// payload carries a sequence number twice so a torn read is detectable.
type payload struct {
	seq   uint64
	check uint64
}

// One producer, several consumers at random paces. Every consumer must see
// a strictly increasing sequence with no torn values; consumers that keep
// falling behind simply observe a subsequence.
func TestSwitchBufferConcurrent(t *testing.T) {
	const (
		capacity    = 8
		productions = 50_000
		consumers   = 4
	)

	sb, err := New[payload](capacity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := sb.Producer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(consumers)
	for c := 0; c < consumers; c++ {
		cn := sb.Consumer()
		go func(cn *Consumer[payload]) {
			defer wg.Done()
			defer cn.Close()

			var (
				last uint64
				seen bool
			)
			for {
				f := cn.Switch(false)
				v, err := f.Wait(context.Background())
				if errors.Is(err, ErrProducerClosed) {
					return
				}
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if v.check != v.seq*2+1 {
					t.Errorf("torn value: seq=%d check=%d", v.seq, v.check)
					return
				}
				if seen && v.seq <= last {
					t.Errorf("sequence not increasing: %d after %d", v.seq, last)
					return
				}
				last, seen = v.seq, true

				// stall now and then to provoke laps and steals
				if fastrand.Uint32n(100) == 0 {
					time.Sleep(time.Duration(fastrand.Uint32n(50)) * time.Microsecond)
				}
			}
		}(cn)
	}

	buf := p.Switch()
	for i := uint64(1); i <= productions; i++ {
		buf.seq = i
		buf.check = i*2 + 1
		buf = p.Switch()
	}
	p.Close()

	wg.Wait()

	st := sb.Stats()
	if st.Productions != productions+1 {
		t.Fatalf("expected %d productions, got %d", productions+1, st.Productions)
	}
	if st.Consumers != 0 {
		t.Fatalf("expected empty registry, got %d consumers", st.Consumers)
	}
}

// A consumer that only ever wants the newest value must always get the most
// recently published one.
func TestSwitchBufferConcurrentSkip(t *testing.T) {
	const (
		capacity    = 4
		productions = 20_000
	)

	sb, _ := New[payload](capacity)
	p, _ := sb.Producer()
	cn := sb.Consumer()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cn.Close()

		var last uint64
		for {
			f := cn.Switch(true)
			v, err := f.Wait(context.Background())
			if err != nil {
				return
			}
			if v.check != v.seq*2+1 {
				t.Errorf("torn value: seq=%d check=%d", v.seq, v.check)
				return
			}
			if v.seq < last {
				t.Errorf("went backwards: %d after %d", v.seq, last)
				return
			}
			last = v.seq
		}
	}()

	buf := p.Switch()
	for i := uint64(1); i <= productions; i++ {
		buf.seq = i
		buf.check = i*2 + 1
		buf = p.Switch()
	}
	p.Close()
	<-done
}

// Consumers joining and leaving while the producer runs must not disturb
// anyone else.
func TestConsumerChurn(t *testing.T) {
	const (
		capacity    = 8
		productions = 10_000
		churners    = 8
	)

	sb, _ := New[payload](capacity)
	p, _ := sb.Producer()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(churners)
	for c := 0; c < churners; c++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				cn := sb.Consumer()
				for j := 0; j < int(fastrand.Uint32n(16)); j++ {
					v, err := cn.Switch(false).Wait(context.Background())
					if err != nil {
						break
					}
					if v.check != v.seq*2+1 {
						t.Errorf("torn value: seq=%d check=%d", v.seq, v.check)
					}
				}
				cn.Close()
			}
		}()
	}

	buf := p.Switch()
	for i := uint64(1); i <= productions; i++ {
		buf.seq = i
		buf.check = i*2 + 1
		buf = p.Switch()
	}
	close(stop)
	p.Close() // breaks any churner still blocked on a wait
	wg.Wait()

	if st := sb.Stats(); st.Consumers != 0 {
		t.Fatalf("expected empty registry, got %d consumers", st.Consumers)
	}
}

// Producer throughput with idle consumers registered.
func BenchmarkProducerSwitch(b *testing.B) {
	const capacity = 8

	sb, _ := New[payload](capacity)
	p, _ := sb.Producer()
	defer p.Close()

	for c := 0; c < 4; c++ {
		defer sb.Consumer().Close()
	}

	b.ResetTimer()
	buf := p.Switch()
	for i := 0; i < b.N; i++ {
		buf.seq = uint64(i)
		buf = p.Switch()
	}
}

// Lock-step produce/consume round trip through a fulfilled future.
func BenchmarkProduceConsume(b *testing.B) {
	const capacity = 4

	sb, _ := New[payload](capacity)
	p, _ := sb.Producer()
	cn := sb.Consumer()
	defer cn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := cn.Switch(false).Wait(context.Background()); err != nil {
				return
			}
		}
	}()

	b.ResetTimer()
	buf := p.Switch()
	for i := 0; i < b.N; i++ {
		buf.seq = uint64(i)
		buf = p.Switch()
	}
	b.StopTimer()
	p.Close()
	<-done
}
