package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"finalshot/src/session"
	"finalshot/src/singleinstance"
	"finalshot/src/trigger"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

type stats struct {
	launched int
	queued   int32
	busy     int32
	absent   int32
	failed   int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-bang",
		Short:         "Fire concurrent bang commands at a running FinalShot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := trigger.Parse(opts.command); err != nil {
				return err
			}
			s := runWithOptions(*opts, singleinstance.NewClient())
			s.print(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.command, "command", "-fs", "bang command each client sends")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions, client singleinstance.Client) *stats {
	var wg sync.WaitGroup
	s := &stats{launched: opts.n}
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, err := client.Delegate(ctx, opts.command)
			switch {
			case err != nil && strings.Contains(err.Error(), session.ErrBusy.Error()):
				atomic.AddInt32(&s.busy, 1)
			case err != nil:
				atomic.AddInt32(&s.failed, 1)
			case !delegated:
				atomic.AddInt32(&s.absent, 1)
			default:
				atomic.AddInt32(&s.queued, 1)
			}
		}()
	}
	wg.Wait()
	return s
}

func (s *stats) print(w io.Writer) {
	fmt.Fprintf(w, "launched=%d queued=%d busy=%d no-resident=%d err=%d\n", s.launched, s.queued, s.busy, s.absent, s.failed)
}
