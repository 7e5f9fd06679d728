package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/kenanunal/lander/internal/domain/commander"
	"github.com/kenanunal/lander/pkg/logger"
)

const stateDatagramMax = 4096

// UDPBridge speaks to the flight controller bridge process over two UDP
// channels: state snapshots arrive as JSON datagrams on the listen address,
// guidance commands go out as JSON datagrams to the command address. Both
// directions are publish-style and fire-and-forget, matching the boundary
// contract.
type UDPBridge struct {
	in  *net.UDPConn
	out *net.UDPConn
	ch  chan commander.VehicleState
	log logger.Logger
}

// NewUDPBridge binds listenAddr for state and dials commandAddr for commands.
func NewUDPBridge(listenAddr, commandAddr string) (*UDPBridge, error) {
	la, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve vehicle listen addr: %w", err)
	}
	in, err := net.ListenUDP("udp", la)
	if err != nil {
		return nil, fmt.Errorf("listen for vehicle state: %w", err)
	}

	ca, err := net.ResolveUDPAddr("udp", commandAddr)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("resolve vehicle command addr: %w", err)
	}
	out, err := net.DialUDP("udp", nil, ca)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("dial vehicle commands: %w", err)
	}

	return &UDPBridge{
		in:  in,
		out: out,
		ch:  make(chan commander.VehicleState, stateChannelBuffer),
		log: logger.Get().Named("vehicle"),
	}, nil
}

// Addr returns the bound state listen address.
func (b *UDPBridge) Addr() net.Addr {
	return b.in.LocalAddr()
}

// Updates implements StateSource.
func (b *UDPBridge) Updates() <-chan commander.VehicleState {
	return b.ch
}

// Send implements CommandSink.
func (b *UDPBridge) Send(_ context.Context, cmd commander.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if _, err := b.out.Write(payload); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// Run decodes incoming state datagrams until ctx is done.
func (b *UDPBridge) Run(ctx context.Context) {
	defer close(b.ch)
	go func() {
		<-ctx.Done()
		b.in.Close()
		b.out.Close()
	}()

	buf := make([]byte, stateDatagramMax)
	for {
		n, _, err := b.in.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Warn(ctx, "vehicle state read failed", logger.Error(err))
			continue
		}

		var vs commander.VehicleState
		if err := json.Unmarshal(buf[:n], &vs); err != nil {
			b.log.Debug(ctx, "malformed vehicle state datagram", logger.Error(err))
			continue
		}

		select {
		case b.ch <- vs:
		default:
			// Consumer keeps only the latest value; drop when behind.
		}
	}
}
