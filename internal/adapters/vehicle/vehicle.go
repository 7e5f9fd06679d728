// Package vehicle defines the flight controller bridge boundary: a
// publish-style channel of vehicle state flowing in, and fire-and-forget
// guidance commands flowing out. The real bridge lives outside this process;
// this package carries its contract and a simulated implementation.
package vehicle

import (
	"context"

	"github.com/kenanunal/lander/internal/domain/commander"
)

// StateSource delivers vehicle state updates as the bridge publishes them.
type StateSource interface {
	// Updates returns the channel of state snapshots. The channel closes
	// when the source shuts down.
	Updates() <-chan commander.VehicleState
}

// CommandSink accepts guidance commands. Dispatch is fire-and-forget: an
// error means the command could not be handed to the bridge, not that the
// vehicle rejected it.
type CommandSink interface {
	Send(ctx context.Context, cmd commander.Command) error
}

// Bridge is a full vehicle interface: state out, commands in.
type Bridge interface {
	StateSource
	CommandSink
}
