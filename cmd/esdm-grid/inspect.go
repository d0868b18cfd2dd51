package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	esdm "github.com/ESiWACE/esdm-sub000"
	"github.com/ESiWACE/esdm-sub000/internal/codec"
	"github.com/ESiWACE/esdm-sub000/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the cell tree of a grid document",
	Long: `Print the cell tree of a grid document.

Every grid line shows the grid id, its domain and how many of its cells are
still empty. Cells are listed in row-major order with either the fragment
they hold or their subgrid. Files ending in .cbor are read as CBOR.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		forceCBOR, _ := cmd.Flags().GetBool("cbor")
		diagnose, _ := cmd.Flags().GetBool("diagnose")
		cbor := isCBOR(args[0], forceCBOR)
		out := cmd.OutOrStdout()

		if diagnose {
			if !cbor {
				return fmt.Errorf("--diagnose needs a CBOR document")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := codec.Diagnose(data)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text)
			return nil
		}

		d, g, err := loadGrid(args[0], cbor)
		if err != nil {
			return err
		}
		defer d.Close()
		return printGrid(out, g, 0)
	},
}

func init() {
	inspectCmd.Flags().Bool("cbor", false, "read the document as CBOR regardless of its name")
	inspectCmd.Flags().Bool("diagnose", false, "print CBOR diagnostic notation instead of the tree")
}

// printGrid writes g and its cells, indenting each level by two spaces.
func printGrid(w io.Writer, g *esdm.Grid, depth int) error {
	indent := strings.Repeat("  ", depth)
	state := "complete"
	if !g.IsComplete() {
		state = fmt.Sprintf("%d of %d cells empty", g.EmptyCells(), g.CellCount())
	}
	fmt.Fprintf(w, "%sgrid %s %s intervals=%v (%s)\n", indent, g.ID(), g.Domain(), g.Intervals(), state)
	if !utils.IsValidID(g.ID()) {
		logrus.WithField("grid", g.ID()).Warn("grid id was not generated by esdm")
	}

	for i := int64(0); i < g.CellCount(); i++ {
		sub, err := g.Subgrid(i)
		if err != nil {
			return err
		}
		if sub != nil {
			fmt.Fprintf(w, "%s  [%d]\n", indent, i)
			if err := printGrid(w, sub, depth+2); err != nil {
				return err
			}
			continue
		}

		f, err := g.Fragment(i)
		if err != nil {
			return err
		}
		if f == nil {
			extent, err := g.CellExtends(i)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s  [%d] %s empty\n", indent, i, extent)
			continue
		}
		fmt.Fprintf(w, "%s  [%d] %s fragment %s on %s\n", indent, i, f.Extent(), f.ID, f.Backend().ID())
	}
	return nil
}
