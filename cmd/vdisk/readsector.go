package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"floppy/vdisk"
)

var (
	readSectorCyl  int
	readSectorHead int
	readSectorSize int
)

var readSectorCmd = &cobra.Command{
	Use:                   "read-sector FILE SECTOR",
	Short:                 "Hex-dump one sector's data field",
	Args:                  cobra.ExactArgs(2),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]
		var sector int
		if _, err := fmt.Sscanf(args[1], "%d", &sector); err != nil {
			fmt.Printf("invalid sector number %q\n", args[1])
			os.Exit(1)
		}

		d, err := vdisk.Load(filename)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer d.Unref()

		ctx := vdisk.NewCtx(d)
		defer ctx.Close()

		buf := make([]byte, readSectorSize)
		if rerr := vdisk.ReadSector(ctx, readSectorCyl, readSectorHead, sector, buf); rerr != nil {
			fmt.Println(rerr)
			os.Exit(1)
		}
		if ctx.IdamCRCError {
			fmt.Println("warning: IDAM CRC error")
		}
		if ctx.DataCRCError {
			fmt.Println("warning: data CRC error")
		}
		hexDump(buf)
	},
}

func hexDump(data []byte) {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]
		fmt.Printf("%04x  ", off)
		for i := 0; i < 16; i++ {
			if i < len(row) {
				fmt.Printf("%02x ", row[i])
			} else {
				fmt.Print("   ")
			}
		}
		fmt.Print(" ")
		for _, b := range row {
			if b >= 0x20 && b < 0x7f {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}
		fmt.Println()
	}
}

func init() {
	readSectorCmd.Flags().IntVar(&readSectorCyl, "cyl", 0, "cylinder")
	readSectorCmd.Flags().IntVar(&readSectorHead, "head", 0, "head")
	readSectorCmd.Flags().IntVar(&readSectorSize, "size", 256, "sector data size in bytes")
	rootCmd.AddCommand(readSectorCmd)
}
