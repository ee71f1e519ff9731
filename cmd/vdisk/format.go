package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"floppy/vdisk"
)

var (
	formatCyls       int
	formatHeads      int
	formatSectors    int
	formatFirstSect  int
	formatSsizeCode  int
	formatInterleave int
	formatDouble     bool
	formatDataRate   int
	formatRPM        int
)

var formatCmd = &cobra.Command{
	Use:                   "format FILE",
	Short:                 "Create a freshly formatted blank disk image",
	Long: `Builds a new disk image with every track formatted to the given
geometry (all sectors filled with 0xE5), and saves it as FILE. The
container format is chosen from FILE's extension.`,
	Args:                  cobra.ExactArgs(1),
	DisableFlagsInUseLine: true,
	Run: func(cmd *cobra.Command, args []string) {
		filename := args[0]

		d := vdisk.New(formatDataRate, formatRPM)
		ctx := vdisk.NewCtx(d)
		defer ctx.Close()

		params := vdisk.FormatParams{
			DoubleDensity: formatDouble,
			NumSectors:    formatSectors,
			FirstSector:   formatFirstSect,
			SsizeCode:     formatSsizeCode,
			Interleave:    formatInterleave,
		}

		for head := 0; head < formatHeads; head++ {
			for cyl := 0; cyl < formatCyls; cyl++ {
				if err := vdisk.FormatTrack(ctx, params, cyl, head); err != nil {
					fmt.Printf("error formatting cylinder %d head %d: %v\n", cyl, head, err)
					os.Exit(1)
				}
			}
		}

		if err := vdisk.Save(d, filename); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	formatCmd.Flags().IntVar(&formatCyls, "cyls", 35, "number of cylinders")
	formatCmd.Flags().IntVar(&formatHeads, "heads", 1, "number of heads")
	formatCmd.Flags().IntVar(&formatSectors, "sectors", 18, "sectors per track")
	formatCmd.Flags().IntVar(&formatFirstSect, "first-sector", 1, "first logical sector number")
	formatCmd.Flags().IntVar(&formatSsizeCode, "ssize-code", 1, "sector size code (0=128, 1=256, 2=512, 3=1024 bytes)")
	formatCmd.Flags().IntVar(&formatInterleave, "interleave", 1, "sector interleave factor")
	formatCmd.Flags().BoolVar(&formatDouble, "double-density", true, "format at double density (MFM)")
	formatCmd.Flags().IntVar(&formatDataRate, "data-rate", 250000, "bit rate in bits/sec, used to size each track")
	formatCmd.Flags().IntVar(&formatRPM, "rpm", 300, "rotational speed, used to size each track")
	rootCmd.AddCommand(formatCmd)
}
