package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bft-labs/servolink/pkg/command"
)

func newEncodeCmd() *cobra.Command {
	var stop bool

	cmd := &cobra.Command{
		Use:   "encode [angle]",
		Short: "Print the packet for an angle (or --stop) without opening a port",
		Args: func(cmd *cobra.Command, args []string) error {
			if stop {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if stop {
				p := command.BuildStop()
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tvalid=%t\n", p, p.Valid())
				return nil
			}

			angle, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("angle %q: %w", args[0], err)
			}
			p, err := command.BuildSetAngle(angle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&stop, "stop", false, "print the stop packet")
	return cmd
}
