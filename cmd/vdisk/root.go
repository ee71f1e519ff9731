package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vdisk",
	Short: "Inspect and manipulate virtual floppy disk images",
	Long: `vdisk reads and writes the VDK, JVC/DSK/OS-9 and DMK virtual disk
image formats understood by the floppy disk subsystem, for inspecting
and building test images without a running emulator.`,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
