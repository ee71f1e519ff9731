package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"floppy/vdisk"
)

var convertCmd = &cobra.Command{
	Use:                   "convert SRC DST",
	Short:                 "Convert a disk image between VDK, JVC/DSK/OS-9 and DMK",
	Long: `Loads SRC, dispatching on its extension, and saves the same disk
content as DST, dispatching on DST's extension. Geometry and track
contents are preserved; container-specific metadata (VDK's extra
header bytes, JVC's headerless detection) only carries over when DST
is the same container family as SRC.`,
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		src, dst := args[0], args[1]

		d, err := vdisk.Load(src)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer d.Unref()

		d.Filetype = vdisk.DetectFiletype(dst)
		if err := vdisk.Save(d, dst); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
