package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ledgerview/internal/amqp"
	"ledgerview/internal/notify"
)

func watchCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print notices published by running servers",
		Long: `Consume the notice stream from AMQP_URL and print each notice as it arrives.
The queue named by AMQP_QUEUE is declared and bound to AMQP_EXCHANGE with AMQP_ROUTING_KEY.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not set")
			}
			ctx := cmd.Context()
			client, err := amqp.NewClient(ctx, a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPRoutingKey, a.cfg.AMQPQueue, a.logger)
			if err != nil {
				return fmt.Errorf("connect to broker: %w", err)
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.ConsumeNotices(ctx, func(n notify.Notice) error {
				if sessionID != "" && n.SessionID != sessionID {
					return nil
				}
				_, err := fmt.Fprintf(out, "%s  %-7s %-10s %-8s %s\n",
					n.At.Format("15:04:05"), n.Kind, n.Operation, shortID(n.SessionID), n.Message)
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "only print notices of this session id")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
