package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raizel-hub/academic-assistant/internal/application/assistant"
	"github.com/raizel-hub/academic-assistant/internal/bootstrap"
	"github.com/raizel-hub/academic-assistant/internal/domain/student"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		reg        string
		showIntent bool
	)

	cmd := &cobra.Command{
		Use:   "ask --reg REG TEXT...",
		Short: "Answer one message as the assistant would, against the configured records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := bootstrap.OpenStore(ctx, cfg, a.log)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := bootstrap.NewServices(ctx, cfg, store.Records, a.log)
			if err != nil {
				return err
			}

			reply := svc.Assistant.Reply(ctx, assistant.Request{
				RegistrationNumber: student.RegistrationNumber(strings.TrimSpace(reg)),
				Text:               strings.Join(args, " "),
			})

			out := cmd.OutOrStdout()
			if showIntent {
				fmt.Fprintf(out, "[%s]\n", reply.Intent)
			}
			fmt.Fprintln(out, reply.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg, "reg", "", "registration number of the asking student")
	cmd.Flags().BoolVar(&showIntent, "intent", false, "print the classified intent first")
	_ = cmd.MarkFlagRequired("reg")
	return cmd
}
