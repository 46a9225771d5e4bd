package idgen

import (
	"strings"
	"sync"
	"testing"
)

func TestSequenceIsMonotonic(t *testing.T) {
	seq := NewSequence("req-", 1)
	if got := seq.NewID(); got != "req-000001" {
		t.Fatalf("unexpected first id %q", got)
	}
	if got := seq.NewID(); got != "req-000002" {
		t.Fatalf("unexpected second id %q", got)
	}
}

func TestGeneratorsAreCollisionFreeUnderConcurrency(t *testing.T) {
	const workers, perWorker = 16, 250
	for _, scheme := range []Scheme{SchemeSequence, SchemeUUID, SchemeNanoID} {
		t.Run(string(scheme), func(t *testing.T) {
			gen, err := New(scheme, "req-")
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			var (
				mu   sync.Mutex
				seen = make(map[string]struct{}, workers*perWorker)
				wg   sync.WaitGroup
			)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					local := make([]string, 0, perWorker)
					for i := 0; i < perWorker; i++ {
						local = append(local, gen.NewID())
					}
					mu.Lock()
					for _, id := range local {
						seen[id] = struct{}{}
					}
					mu.Unlock()
				}()
			}
			wg.Wait()
			if len(seen) != workers*perWorker {
				t.Fatalf("expected %d unique ids, got %d", workers*perWorker, len(seen))
			}
			for id := range seen {
				if !strings.HasPrefix(id, "req-") {
					t.Fatalf("id %q missing prefix", id)
				}
				break
			}
		})
	}
}

func TestNewRejectsUnknownScheme(t *testing.T) {
	if _, err := New("snowflake", ""); err == nil {
		t.Fatalf("expected error for unknown scheme")
	}
	gen, err := New("", "cmt-")
	if err != nil {
		t.Fatalf("default scheme: %v", err)
	}
	if id := gen.NewID(); len(id) != len("cmt-")+nanoSize {
		t.Fatalf("unexpected nanoid %q", id)
	}
}

func TestSequenceObserve(t *testing.T) {
	seq := NewSequence("req-", 1)
	for _, id := range []string{"req-000007", "req-003", "other-000099", "req-abc", "req-000002"} {
		seq.Observe(id)
	}
	if got := seq.NewID(); got != "req-000008" {
		t.Fatalf("expected sequence to continue after the largest observed id, got %q", got)
	}
	var _ Observer = seq
}
