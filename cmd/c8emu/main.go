// Command c8emu runs a CHIP-8 ROM headlessly from a terminal. It exercises
// the interpreter core end-to-end; it has no display or sound of its own,
// only an optional raw-terminal keyboard reader for programs that read the
// keypad.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/massung/chip8toolchain/internal/vm"
)

// keyMap mirrors the teacher's SDL scancode-to-hex-keypad table, adapted
// to plain ASCII bytes read from a raw terminal.
var keyMap = map[byte]int{
	'x': 0x0, '1': 0x1, '2': 0x2, '3': 0x3,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'a': 0x7,
	's': 0x8, 'd': 0x9, 'z': 0xA, 'c': 0xB,
	'4': 0xC, 'r': 0xD, 'f': 0xE, 'v': 0xF,
}

const cyclesPerSecond = 500

var cyclesLimit int

var rootCmd = &cobra.Command{
	Use:   "c8emu rom",
	Short: "Run a CHIP-8 ROM headlessly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().IntVar(&cyclesLimit, "cycles", 0, "stop after this many instructions (0 = unbounded)")
}

func run(romPath string) error {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", romPath, err)
	}

	m, err := vm.New(rom)
	if err != nil {
		return fmt.Errorf("loading %s: %w", romPath, err)
	}

	rawTerm := enterRawTerm() == nil
	if rawTerm {
		defer exitRawTerm()
	}

	ticker := time.NewTicker(time.Second / cyclesPerSecond)
	defer ticker.Stop()

	last := time.Now()
	buf := make([]byte, 1)

	for cycles := 0; cyclesLimit == 0 || cycles < cyclesLimit; cycles++ {
		<-ticker.C
		now := time.Now()
		elapsed := now.Sub(last)
		last = now

		if rawTerm {
			if n, _ := os.Stdin.Read(buf); n > 0 {
				if key, ok := keyMap[buf[0]]; ok {
					m.SetKey(key)
				}
			}
		}

		if err := m.Step(elapsed); err != nil {
			fmt.Printf("halted after %d cycles: %v\n", cycles, err)
			return nil
		}
	}

	fmt.Printf("stopped after %d cycles\n", cyclesLimit)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
