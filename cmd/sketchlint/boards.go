package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBoardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List known target boards and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, store, err := setup()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tARCH\tPINS\tRAM\tFLASH\tPWM\tINTERRUPTS")
			for _, b := range store.Boards() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dB\t%dB\t%v\t%v\n",
					b.ID, b.Name, b.Arch, b.DigitalPinCount,
					b.Constraints.RAMBytes, b.Constraints.FlashBytes,
					b.PWMPins, b.InterruptPins)
			}
			return tw.Flush()
		},
	}
}
