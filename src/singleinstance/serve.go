package singleinstance

import (
	"context"
	"errors"
	"net"

	"finalshot/src/logutil"
)

// Handler queues a delegated command. A non-nil error is sent back to the
// client as the rejection reason.
type Handler func(command string) error

// Serve answers requests from srv until ctx is cancelled or srv is closed.
func Serve(ctx context.Context, srv Server, handle Handler) error {
	log := logutil.WithComponent("singleinstance")
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if err := handle(conn.Request().Command); err != nil {
			if rerr := conn.Reject(err.Error()); rerr != nil {
				log.Debug().Err(rerr).Msg("reply failed")
			}
		} else if aerr := conn.Accept(); aerr != nil {
			log.Debug().Err(aerr).Msg("reply failed")
		}
		_ = conn.Close()
	}
}
