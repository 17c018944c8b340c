// panel_host.go - Raw-mode stdin host for the operator panel

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// PanelHost reads raw stdin, does minimal line editing and feeds complete
// lines to a Panel. Only instantiated in main for interactive use — never
// in tests.
type PanelHost struct {
	panel        *Panel
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// crlfWriter rewrites LF to CRLF; raw mode disables the kernel's output
// post-processing, so the panel's plain \n output needs the translation.
type crlfWriter struct {
	w io.Writer
}

func (cw crlfWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			if _, err := cw.w.Write([]byte("\r\n")); err != nil {
				return 0, err
			}
			continue
		}
		if _, err := cw.w.Write([]byte{b}); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// NewPanelHost creates a host adapter that drives the given machine's
// panel from stdin.
func NewPanelHost(machine *MachineState, stor *MainStorage) *PanelHost {
	return &PanelHost{
		panel:  NewPanel(machine, stor, crlfWriter{os.Stdout}),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin in raw mode and begins reading in a goroutine. Call
// Stop() to restore stdin. The returned Done channel closes when the
// operator quits.
func (h *PanelHost) Start() {
	h.fd = int(os.Stdin.Fd())

	// Raw mode disables OS-level echo and line buffering; the host does
	// its own echo so the operator sees the command line.
	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "panel_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "panel_host: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go h.readLoop()
}

// Done closes when the operator quits the panel.
func (h *PanelHost) Done() <-chan struct{} {
	return h.done
}

func (h *PanelHost) readLoop() {
	defer close(h.done)

	var line []byte
	buf := make([]byte, 1)
	fmt.Print("panel> ")

	for {
		select {
		case <-h.stopCh:
			return
		default:
		}

		n, err := syscall.Read(h.fd, buf)
		if n > 0 {
			b := buf[0]
			switch {
			case b == '\r' || b == '\n':
				fmt.Print("\r\n")
				if !h.panel.Execute(string(line)) {
					return
				}
				line = line[:0]
				fmt.Print("panel> ")
			case b == 0x7F || b == 0x08: // Backspace/DEL
				if len(line) > 0 {
					line = line[:len(line)-1]
					fmt.Print("\b \b")
				}
			case b == 0x03: // Ctrl-C
				return
			case b >= 0x20 && b < 0x7F:
				line = append(line, b)
				fmt.Printf("%c", b)
			}
		}
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if err != nil {
			return
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// Stop terminates the reading goroutine and restores stdin.
func (h *PanelHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
		select {
		case <-h.done:
		case <-time.After(time.Second):
		}
		if h.nonblockSet {
			_ = syscall.SetNonblock(h.fd, false)
		}
		if h.oldTermState != nil {
			_ = term.Restore(h.fd, h.oldTermState)
		}
	})
}
