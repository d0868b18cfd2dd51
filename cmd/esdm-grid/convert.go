package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/renameio"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a grid document between JSON and CBOR",
	Long: `Convert a grid document between JSON and CBOR.

The input encoding follows the input file name (.cbor is CBOR, anything else
JSON); the output encoding follows the output name. The document is fully
validated on the way. The output file is replaced atomically.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]
		forceCBOR, _ := cmd.Flags().GetBool("cbor")

		d, g, err := loadGrid(in, isCBOR(in, forceCBOR))
		if err != nil {
			return err
		}
		defer d.Close()

		var data []byte
		if isCBOR(out, false) {
			data, err = g.MarshalBinary()
		} else {
			data, err = json.MarshalIndent(g, "", "  ")
			data = append(data, '\n')
		}
		if err != nil {
			return fmt.Errorf("encoding %s: %w", out, err)
		}
		if err := renameio.WriteFile(out, data, 0o644); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"in":    in,
			"out":   out,
			"bytes": len(data),
		}).Info("grid converted")
		return nil
	},
}

func init() {
	convertCmd.Flags().Bool("cbor", false, "read the input as CBOR regardless of its name")
}
