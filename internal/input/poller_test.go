package input

import (
	"errors"
	"testing"
	"time"
)

type fakeReader struct {
	mask byte
}

func (f *fakeReader) ReadInputMask() (byte, error) { return f.mask, nil }

func waitEdge(t *testing.T, edges <-chan Edge, timeout time.Duration) Edge {
	t.Helper()
	select {
	case e := <-edges:
		return e
	case <-time.After(timeout):
		t.Fatal("timed out waiting for edge")
	}
	return Edge{}
}

func TestPollerEmitsEdgeAfterDebounce(t *testing.T) {
	r := &fakeReader{}
	p := New(r, 5*time.Millisecond, 15*time.Millisecond, nil)
	p.Start()
	defer p.Stop()

	time.Sleep(20 * time.Millisecond) // seed baseline (no edge)
	r.mask = 1 << uint(Forward)

	e := waitEdge(t, p.Edges(), time.Second)
	if e.Channel != Forward || !e.Value {
		t.Fatalf("got %+v, want Forward=true", e)
	}
}

func TestPollerIgnoresBriefGlitch(t *testing.T) {
	r := &fakeReader{}
	p := New(r, 5*time.Millisecond, 40*time.Millisecond, nil)
	p.Start()
	defer p.Stop()

	time.Sleep(15 * time.Millisecond)
	r.mask = 1 << uint(Reverse)
	time.Sleep(15 * time.Millisecond) // well under debounce window
	r.mask = 0

	select {
	case e := <-p.Edges():
		t.Fatalf("unexpected edge for a sub-debounce glitch: %+v", e)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestPollerReportsReadErrors(t *testing.T) {
	errCh := make(chan error, 1)
	r := &erroringReader{err: errors.New("bus down")}
	p := New(r, 5*time.Millisecond, 10*time.Millisecond, func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})
	p.Start()
	defer p.Stop()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected non-nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("onError was never called")
	}
}

type erroringReader struct{ err error }

func (e *erroringReader) ReadInputMask() (byte, error) { return 0, e.err }
