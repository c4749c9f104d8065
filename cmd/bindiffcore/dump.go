package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/oisee/bindiffcore/pkg/binexport"
)

func newDumpCmd() *cobra.Command {
	var arch32 bool
	cmd := &cobra.Command{
		Use:   "dump <binexport-file>",
		Short: "Print a human-readable disassembly of a decoded binary-export artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			art, err := binexport.Decode(f)
			if err != nil {
				return err
			}
			dumpArtifact(cmd.OutOrStdout(), art, arch32)
			return nil
		},
	}
	cmd.Flags().BoolVar(&arch32, "arch32", false, "sign-extend immediates from 32 bits")
	return cmd
}

func dumpArtifact(w io.Writer, art *binexport.Artifact, arch32 bool) {
	for fgIdx, fg := range art.FlowGraphs {
		entryAddr := "?"
		if fg.EntryBasicBlockIndex >= 0 && fg.EntryBasicBlockIndex < len(art.BasicBlocks) {
			bb := art.BasicBlocks[fg.EntryBasicBlockIndex]
			if bb.Begin < len(art.Instructions) {
				entryAddr = art.Instructions[bb.Begin].Address.String()
			}
		}
		fmt.Fprintf(w, "function %d @ %s\n", fgIdx, entryAddr)
		for _, bbIdx := range fg.BasicBlockIndex {
			bb := art.BasicBlocks[bbIdx]
			for i := bb.Begin; i < bb.End && i < len(art.Instructions); i++ {
				ins := art.Instructions[i]
				line := fmt.Sprintf("  %s  %s", ins.Address, ins.MnemonicName)
				for _, opIdx := range ins.OperandIndex {
					line += " " + art.RenderOperand(opIdx, arch32)
				}
				fmt.Fprintln(w, line)
			}
		}
	}
}
