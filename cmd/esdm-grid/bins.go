package main

import (
	"fmt"

	esdm "github.com/ESiWACE/esdm-sub000"
	"github.com/ESiWACE/esdm-sub000/internal/config"
	"github.com/spf13/cobra"
)

var binsCmd = &cobra.Command{
	Use:   "bins",
	Short: "Preview the regular bin layout of a dataset shape",
	Long: `Preview the regular bin layout of a dataset shape.

Prints the bin size, the bin count and the size of the last bin per
dimension that a regular fragment collection chooses for --dims and
--element-size. The target bin size comes from the configuration unless
--max-block-size is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dims, _ := cmd.Flags().GetInt64Slice("dims")
		elementSize, _ := cmd.Flags().GetInt64("element-size")

		opts := []esdm.DatasetOption{esdm.WithConfig(cfg)}
		if cmd.Flags().Changed(config.KeyMaxBlockSize) {
			n, _ := cmd.Flags().GetInt64(config.KeyMaxBlockSize)
			opts = append(opts, esdm.WithMaxBlockSize(n))
		}

		d, err := esdm.NewDataset("preview", dims, elementSize, opts...)
		if err != nil {
			return err
		}
		defer d.Close()

		layout, err := d.Fragments().(*esdm.RegularFragments).Layout()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bin size:   %v\n", layout.BinSize)
		fmt.Fprintf(out, "bin count:  %v\n", layout.BinCount)
		fmt.Fprintf(out, "edge bin:   %v\n", layout.EdgeBinSize)
		fmt.Fprintf(out, "total bins: %d\n", layout.TotalBins)
		return nil
	},
}

func init() {
	binsCmd.Flags().Int64Slice("dims", nil, "dataset extent per dimension, e.g. 1000,1000")
	binsCmd.Flags().Int64("element-size", 8, "element size in bytes")
	binsCmd.Flags().Int64(config.KeyMaxBlockSize, config.DefaultMaxBlockSize, "target bin size in bytes")
	_ = binsCmd.MarkFlagRequired("dims")
}
