package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raizel-hub/academic-assistant/internal/infrastructure/auth"
)

func newHashPINCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-pin [PIN]",
		Short: "Print the bcrypt hash to store in the PIN_Hash column",
		Long: `Prints the bcrypt hash of a PIN. Without an argument the PIN is read
from the first line of standard input, which keeps it out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pin string
			if len(args) == 1 {
				pin = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no PIN given")
				}
				pin = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.HashPIN(pin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
