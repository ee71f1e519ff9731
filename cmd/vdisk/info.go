package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"floppy/vdisk"
)

var infoCmd = &cobra.Command{
	Use:                   "info FILE",
	Short:                 "Print geometry and sector layout for a disk image",
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		d, err := vdisk.Load(filename)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer d.Unref()

		ctx := vdisk.NewCtx(d)
		defer ctx.Close()

		cyls, heads := ctx.Geometry()
		fmt.Printf("file:        %s\ncylinders:   %d\nheads:       %d\n", filename, cyls, heads)

		info, ierr := vdisk.GetInfo(ctx)
		if ierr != nil {
			fmt.Printf("no formatted sectors found: %v\n", ierr)
			return
		}
		fmt.Print(info)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
