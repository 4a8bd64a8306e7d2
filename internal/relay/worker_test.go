package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource отдает заранее подготовленные потоки; после их окончания
// возвращает поток, который закрывается только вместе с ctx
type scriptedSource struct {
	mu      sync.Mutex
	streams []chan []byte
	errs    []error
	opened  int
}

func (s *scriptedSource) Stream(ctx context.Context, _ string) (<-chan []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(s.streams) > 0 {
		ch := s.streams[0]
		s.streams = s.streams[1:]
		return ch, nil
	}
	idle := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(idle)
	}()
	return idle, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []string
	tables   []string
	fail     bool
	got      chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, table string, payload []byte) error {
	p.mu.Lock()
	p.tables = append(p.tables, table)
	p.payloads = append(p.payloads, string(payload))
	p.mu.Unlock()
	p.got <- struct{}{}
	if p.fail {
		return errors.New("redis down")
	}
	return nil
}

func closedStream(payloads ...string) chan []byte {
	ch := make(chan []byte, len(payloads))
	for _, p := range payloads {
		ch <- []byte(p)
	}
	close(ch)
	return ch
}

func waitN(t *testing.T, ch chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("published %d of %d", i, n)
		}
	}
}

func TestWorker_RelaysAndReconnects(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := &scriptedSource{
		errs:    []error{errors.New("listen failed"), nil, nil},
		streams: []chan []byte{closedStream("a", "b"), closedStream("c")},
	}
	pub := &recordingPublisher{got: make(chan struct{}, 10)}
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWorker(src, pub, logger, time.Millisecond, "alerts")
	w.Start(ctx)
	waitN(t, pub.got, 3)
	cancel()
	w.Wait()

	assert.Equal(t, []string{"a", "b", "c"}, pub.payloads)
	assert.Equal(t, []string{"alerts", "alerts", "alerts"}, pub.tables)
	src.mu.Lock()
	defer src.mu.Unlock()
	assert.GreaterOrEqual(t, src.opened, 3)
}

func TestWorker_PublishErrorDoesNotStopStream(t *testing.T) {
	logger, hook := test.NewNullLogger()
	src := &scriptedSource{streams: []chan []byte{closedStream("x", "y")}}
	pub := &recordingPublisher{fail: true, got: make(chan struct{}, 10)}
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWorker(src, pub, logger, time.Millisecond, "comments")
	w.Start(ctx)
	waitN(t, pub.got, 2)
	cancel()
	w.Wait()

	require.Len(t, pub.payloads, 2)
	var failures int
	for _, e := range hook.AllEntries() {
		if e.Message == "Failed to relay change event" {
			failures++
		}
	}
	assert.Equal(t, 2, failures)
}

func TestWorker_StopsOnCancelWhileWaiting(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := &scriptedSource{errs: []error{errors.New("down")}}
	pub := &recordingPublisher{got: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWorker(src, pub, logger, time.Hour, "alerts")
	w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
