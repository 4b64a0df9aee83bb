// uart.go - a minimal 8250-equivalent serial UART used as the machine's
// console (SPEC_FULL.md §7 supplemental peripherals), plus TerminalHost,
// the raw-terminal stdin adapter feeding it.
//
// Grounded verbatim on terminal_host.go's golang.org/x/term + syscall
// raw-mode/non-blocking-read pattern; UART register semantics (THR/RBR,
// LSR, IER) follow the conventional 8250 port layout at the PC/XT's
// COM1 base, narrowed to what a BIOS/bootloader console actually pokes:
// no baud-rate divisor latch side effects, no modem-control lines.
package pcxt86

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

const (
	uartBase = 0x3F8 // COM1

	uartRBR = uartBase + 0 // receiver buffer (read)
	uartTHR = uartBase + 0 // transmitter holding (write)
	uartIER = uartBase + 1 // interrupt enable
	uartLSR = uartBase + 5 // line status
)

const (
	lsrDataReady      = 1 << 0
	lsrTxHoldingEmpty = 1 << 5
	lsrTxEmpty        = 1 << 6
)

// UART is an 8250-equivalent serial port: an unbounded receive FIFO fed by
// TerminalHost, and transmitted bytes appended to an output buffer a host
// loop drains with DrainOutput.
type UART struct {
	mu      sync.Mutex
	rx      []byte
	tx      []byte
	ier     byte
	pic     *PIC
	irqLine int
}

func NewUART(pic *PIC) *UART {
	return &UART{pic: pic, irqLine: 4} // COM1 conventionally wired to IRQ4
}

func (u *UART) Inb(port uint16) byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch port {
	case uartRBR:
		if len(u.rx) == 0 {
			return 0
		}
		b := u.rx[0]
		u.rx = u.rx[1:]
		return b
	case uartLSR:
		status := byte(lsrTxHoldingEmpty | lsrTxEmpty)
		if len(u.rx) > 0 {
			status |= lsrDataReady
		}
		return status
	case uartIER:
		return u.ier
	default:
		return 0xFF
	}
}

func (u *UART) Outb(port uint16, v byte) {
	u.mu.Lock()
	switch port {
	case uartTHR:
		u.tx = append(u.tx, v)
	case uartIER:
		u.ier = v
	}
	u.mu.Unlock()
}

// RouteHostKey delivers one byte typed at the host terminal to the
// emulated receive FIFO, raising the UART's IRQ line if the guest has
// enabled receive-data interrupts.
func (u *UART) RouteHostKey(b byte) {
	u.mu.Lock()
	u.rx = append(u.rx, b)
	raise := u.ier&0x01 != 0
	u.mu.Unlock()
	if raise && u.pic != nil {
		u.pic.Raise(u.irqLine)
	}
}

// DrainOutput returns and clears bytes the guest has transmitted.
func (u *UART) DrainOutput() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.tx
	u.tx = nil
	return out
}

// TerminalHost reads raw stdin and feeds bytes into a UART. Only
// instantiated for interactive use, never in tests.
type TerminalHost struct {
	uart         *UART
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func NewTerminalHost(u *UART) *TerminalHost {
	return &TerminalHost{
		uart:   u,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin into raw, non-blocking mode and begins routing typed
// bytes into the UART's receive FIFO in a goroutine. Call Stop to
// restore stdin.
func (h *TerminalHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "uart: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "uart: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				b := buf[0]
				if b == '\r' {
					b = '\n'
				}
				if b == 0x7F {
					b = 0x08
				}
				h.uart.RouteHostKey(b)
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
	}()
}

// Stop terminates the stdin reading goroutine and restores stdin to
// blocking, cooked mode.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// PrintOutput drains the UART's transmit buffer and prints it to stdout.
// Call periodically from the main loop for interactive use.
func (h *TerminalHost) PrintOutput() {
	out := h.uart.DrainOutput()
	if len(out) > 0 {
		fmt.Print(string(out))
	}
}
