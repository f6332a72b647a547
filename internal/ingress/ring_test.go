package ingress

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func TestRing_FIFO(t *testing.T) {
	r := NewRing(DefaultCapacity)
	for i := 0; i < 5; i++ {
		if err := r.Push("c1", []byte(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("Push(%d) error = %v", i, err)
		}
	}
	if r.Len() != 5 {
		t.Errorf("Len() = %d, want 5", r.Len())
	}

	for i := 0; i < 5; i++ {
		f, ok := r.Pop()
		if !ok {
			t.Fatalf("Pop(%d) empty", i)
		}
		if want := fmt.Sprintf("msg-%d", i); string(f.Data) != want || f.ClientID != "c1" {
			t.Errorf("Pop(%d) = %s/%q, want c1/%q", i, f.ClientID, f.Data, want)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Error("Pop() on empty ring returned a frame")
	}
}

func TestRing_OverflowDropsNewest(t *testing.T) {
	r := NewRing(DefaultCapacity)
	for i := 0; i < DefaultCapacity; i++ {
		if err := r.Push("c", []byte{byte('a' + i)}); err != nil {
			t.Fatalf("Push(%d) error = %v", i, err)
		}
	}
	if err := r.Push("c", []byte("late")); !errors.Is(err, ErrFull) {
		t.Fatalf("Push() on full ring error = %v, want ErrFull", err)
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", r.Dropped())
	}

	var got []string
	r.Drain(func(f Frame) { got = append(got, string(f.Data)) })
	if strings.Join(got, "") != "abcdefgh" {
		t.Errorf("drained %v, want the first eight frames", got)
	}

	if err := r.Push("c", []byte("again")); err != nil {
		t.Errorf("Push() after drain error = %v", err)
	}
}

func TestRing_Oversize(t *testing.T) {
	r := NewRing(DefaultCapacity)
	if err := r.Push("c", make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrOversize) {
		t.Errorf("Push() error = %v, want ErrOversize", err)
	}
	if err := r.Push("c", make([]byte, MaxFrameSize)); err != nil {
		t.Errorf("Push(max) error = %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRing_PopCopiesData(t *testing.T) {
	r := NewRing(1)
	r.Push("c", []byte("first"))
	f, _ := r.Pop()
	r.Push("c", []byte("second"))
	if string(f.Data) != "first" {
		t.Errorf("popped data changed to %q after slot reuse", f.Data)
	}
}

func TestNewRing_RoundsCapacity(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultCapacity},
		{1, 1},
		{5, 8},
		{8, 8},
		{9, 16},
	}
	for _, tt := range tests {
		if got := NewRing(tt.in).Cap(); got != tt.want {
			t.Errorf("NewRing(%d).Cap() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRing_ConcurrentProducerConsumer(t *testing.T) {
	r := NewRing(DefaultCapacity)
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for r.Push("p", []byte(fmt.Sprint(i))) != nil {
				runtime.Gosched()
			}
		}
	}()

	next := 0
	for next < n {
		f, ok := r.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		if string(f.Data) != fmt.Sprint(next) {
			t.Fatalf("got %q, want %d", f.Data, next)
		}
		next++
	}
	wg.Wait()
}
