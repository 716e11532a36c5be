// Command c8asm assembles CHIP-8 source into a ROM image.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/massung/chip8toolchain/internal/assembler"
)

var rootCmd = &cobra.Command{
	Use:   "c8asm sourceFile outFile",
	Short: "Assemble CHIP-8 source into a ROM image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return assemble(args[0], args[1])
	},
	SilenceUsage: true,
}

func assemble(sourceFile, outFile string) error {
	src, err := os.ReadFile(sourceFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourceFile, err)
	}

	rom, diags := assembler.Assemble(src)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprint(os.Stderr, d.Format())
		}
		return fmt.Errorf("%d error(s) in %s", len(diags), sourceFile)
	}

	if err := os.WriteFile(outFile, rom, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outFile, err)
	}

	fmt.Printf("%s: %d bytes\n", outFile, len(rom))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
