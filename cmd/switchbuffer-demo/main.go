// Demonstration harness for the switchbuffer exchange primitive: one
// producer goroutine fills a small ring with successive integers while
// several consumer goroutines read them at random paces. Each printed row
// shows one value and, per consumer, whether it arrived immediately ("x"),
// after a wait ("d"), or not at all (lapped).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/aradilov/switchbuffer"
	"github.com/valyala/fastrand"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type board struct {
	mu        sync.Mutex
	marks     map[uint][]byte
	consumers int
}

func newBoard(consumers int) *board {
	return &board{
		marks:     make(map[uint][]byte),
		consumers: consumers,
	}
}

func (b *board) produced(v uint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	row := make([]byte, b.consumers)
	for i := range row {
		row[i] = ' '
	}
	b.marks[v] = row
	b.render()
}

func (b *board) consumed(consumer int, v uint, delayed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.marks[v]
	if !ok {
		return
	}
	if delayed {
		row[consumer] = 'd'
	} else {
		row[consumer] = 'x'
	}
	b.render()
}

// render redraws the whole status table. CSI[2J clears the screen, CSI[H
// moves the cursor to the top-left corner.
func (b *board) render() {
	fmt.Print("\x1B[2J\x1B[H")

	values := make([]uint, 0, len(b.marks))
	for v := range b.marks {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	for _, v := range values {
		fmt.Printf("%3d: ", v)
		for _, mark := range b.marks[v] {
			fmt.Printf("|%c", mark)
		}
		fmt.Print("|\n")
	}
}

func pause(ctx context.Context, maxMillis uint32) {
	d := time.Duration(1+fastrand.Uint32n(maxMillis)) * time.Millisecond
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func produce(ctx context.Context, p *switchbuffer.Producer[uint], b *board, lines uint) error {
	defer p.Close()

	var i uint
	buf := p.Switch()
	for ctx.Err() == nil {
		*buf = i
		b.produced(i)
		i = (i + 1) % lines

		pause(ctx, 1000)
		buf = p.Switch() // publishes the value written above
	}
	return nil
}

func consume(ctx context.Context, cn *switchbuffer.Consumer[uint], id int, b *board) error {
	defer cn.Close()

	for {
		f := cn.Switch(false)
		delayed := !f.Ready()

		v, err := f.Wait(ctx)
		if errors.Is(err, switchbuffer.ErrProducerClosed) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}

		b.consumed(id, *v, delayed)
		pause(ctx, 1000)
	}
}

func main() {
	var (
		capacity  = flag.Int("capacity", 5, "ring capacity")
		consumers = flag.Int("consumers", 3, "number of consumer goroutines")
		lines     = flag.Uint("lines", 30, "values cycle through 0..lines-1")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sb, err := switchbuffer.New[uint](*capacity)
	if err != nil {
		logger.Fatal("failed to create switch buffer", zap.Error(err))
	}
	p, err := sb.Producer()
	if err != nil {
		logger.Fatal("failed to acquire producer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := newBoard(*consumers)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return produce(ctx, p, b, *lines)
	})
	for i := 0; i < *consumers; i++ {
		cn := sb.Consumer()
		id := i
		g.Go(func() error {
			return consume(ctx, cn, id, b)
		})
	}

	logger.Info("demo running, press Ctrl-C to stop",
		zap.Int("capacity", *capacity),
		zap.Int("consumers", *consumers))

	if err := g.Wait(); err != nil {
		logger.Error("demo failed", zap.Error(err))
	}

	st := sb.Stats()
	logger.Info("demo stopped",
		zap.Uint64("productions", st.Productions),
		zap.Uint64("publications", st.Publications),
		zap.Uint64("steals", st.Steals),
		zap.Uint64("fulfilled", st.Fulfilled),
		zap.Uint64("cancelled", st.Cancelled))
}
