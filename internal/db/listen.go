package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LocationsChannel is the NOTIFY channel raised by the locations trigger.
const LocationsChannel = "locations_changed"

// Listen holds a dedicated connection subscribed to channel and calls fn with
// each notification payload. It returns nil when ctx is cancelled and an
// error if the connection is lost.
func (d *DB) Listen(ctx context.Context, channel string, fn func(payload string)) error {
	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", channel, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		fn(n.Payload)
	}
}
