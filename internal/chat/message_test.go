package chat

import (
	"sync"
	"testing"
)

// The TUI rebuilds its viewport on resize while a turn may still be
// appending, so reads and appends must be safe to interleave.
func TestTranscriptConcurrentAppendAndRead(t *testing.T) {
	tr := &Transcript{}
	const n = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			tr.Append(SenderSystem, "line", "00:00:00")
		}
	}()

	for i := 0; i < n; i++ {
		for j, m := range tr.Messages() {
			if m.ID != int64(j+1) {
				t.Fatalf("message at index %d has ID %d", j, m.ID)
			}
		}
	}
	wg.Wait()

	if tr.Len() != n {
		t.Fatalf("Len = %d, want %d", tr.Len(), n)
	}
}
