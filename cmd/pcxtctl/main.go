// main.go - pcxtctl, the command-line entry point wiring a Machine
// together and running it against a loaded ROM image.
//
// Grounded on main.go's argument-checking and peripheral-wiring shape
// (IntuitionEngine's entry point), narrowed from its GUI/audio/video
// startup sequence to pcxt86's console-only machine: load a ROM image,
// start the terminal, run until interrupted or faulted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oldiron/pcxt86"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: pcxtctl romfile")
		os.Exit(1)
	}

	rom, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("failed to read ROM image: %v\n", err)
		os.Exit(1)
	}

	m := pcxt86.NewMachine()
	m.Mem.LoadROM(0xF0000, rom)
	m.CPU.Reset()

	host := pcxt86.NewTerminalHost(m.UART)
	host.Start()
	defer host.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		for ctx.Err() == nil {
			host.PrintOutput()
			time.Sleep(10 * time.Millisecond)
		}
	}()

	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Println(m.CPU.DiagnosticDump())
		fmt.Printf("halted: %v\n", err)
		os.Exit(1)
	}
}
