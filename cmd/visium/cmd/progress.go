package cmd

import (
	"fmt"
	"os"
	"sync"

	visium "github.com/st-atlas/visium-datasets"
)

// consoleSink prints one line per task start and completion to stderr.
// Byte-level advances are counted but not rendered; concurrent downloads
// would interleave a live bar.
type consoleSink struct {
	mu   sync.Mutex
	done map[string]int64
}

func newConsoleSink() *consoleSink {
	return &consoleSink{done: make(map[string]int64)}
}

func (s *consoleSink) Start(task, name string, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total > 0 {
		fmt.Fprintf(os.Stderr, "  %s %s %s(%s)%s\n", task, name, colorGray, formatBytes(total), colorReset)
		return
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n", task, name)
}

func (s *consoleSink) Advance(task, name string, n int64) {
	s.mu.Lock()
	s.done[task+"/"+name] += n
	s.mu.Unlock()
}

func (s *consoleSink) Done(task, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  %s✗%s %s %s: %v\n", colorRed, colorReset, task, name, err)
		return
	}
	n := s.done[task+"/"+name]
	if n > 0 {
		fmt.Fprintf(os.Stderr, "  %s✓%s %s %s %s(%s)%s\n",
			colorGreen, colorReset, task, name, colorGray, formatBytes(n), colorReset)
		return
	}
	fmt.Fprintf(os.Stderr, "  %s✓%s %s %s\n", colorGreen, colorReset, task, name)
}

var _ visium.ProgressSink = (*consoleSink)(nil)
