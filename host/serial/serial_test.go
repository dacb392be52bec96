package serial

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	if cfg.Device != "/dev/ttyUSB0" || cfg.Baud != 115200 || cfg.ReadTimeout != 100*time.Millisecond {
		t.Errorf("Unexpected default config %+v", cfg)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := Open(&Config{Baud: 115200}); err == nil {
		t.Error("Expected error for empty device")
	}
	missing := filepath.Join(t.TempDir(), "no-such-tty")
	if _, err := Open(DefaultConfig(missing)); err == nil {
		t.Errorf("Expected error opening %s", missing)
	}
}

// timeoutPort returns its chunks one per read, timing out (0, io.EOF)
// between them
type timeoutPort struct {
	chunks  []string
	timeout bool
	written strings.Builder
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	p.timeout = !p.timeout
	if p.timeout || len(p.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *timeoutPort) Write(b []byte) (int, error) { return p.written.Write(b) }
func (p *timeoutPort) Close() error                { return nil }
func (p *timeoutPort) Flush() error                { return nil }

func TestSessionRetriesTimeouts(t *testing.T) {
	port := &timeoutPort{chunks: []string{"set", "p a 1\n"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := bufio.NewReader(Session(ctx, port))
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString failed: %v", err)
	}
	if line != "setp a 1\n" {
		t.Errorf("Expected joined line, got %q", line)
	}

	cancel()
	if _, err := r.ReadString('\n'); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled once drained, got %v", err)
	}
}
