// Package camera receives image frames from the external camera pipeline.
// Frames arrive as UDP datagrams: a fixed 16-byte header (width, height as
// uint32, capture time as int64 unix nanoseconds) followed by the row-major
// grayscale pixel buffer.
package camera

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/pkg/logger"
)

const (
	headerSize    = 16
	maxDatagram   = 1 << 20 // 1 MiB, bounds sensor size
	frameChanSize = 4
)

// UDPSource listens for frame datagrams and exposes them as a frame channel.
type UDPSource struct {
	conn *net.UDPConn
	out  chan *detect.Frame
	log  logger.Logger
}

// NewUDPSource binds the listen address.
func NewUDPSource(addr string) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve camera listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen for frames: %w", err)
	}
	return &UDPSource{
		conn: conn,
		out:  make(chan *detect.Frame, frameChanSize),
		log:  logger.Get().Named("camera"),
	}, nil
}

// Addr returns the bound listen address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Frames implements service.FrameSource.
func (s *UDPSource) Frames() <-chan *detect.Frame {
	return s.out
}

// Run reads datagrams until ctx is done. Malformed datagrams are dropped
// here; the tracker separately accounts frames whose pixel buffer lies about
// its dimensions.
func (s *UDPSource) Run(ctx context.Context) {
	defer close(s.out)
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn(ctx, "frame read failed", logger.Error(err))
			continue
		}
		if n < headerSize {
			s.log.Debug(ctx, "runt frame datagram", logger.Int("bytes", n))
			continue
		}

		f := &detect.Frame{
			ID:        uuid.NewString(),
			Width:     int(binary.BigEndian.Uint32(buf[0:4])),
			Height:    int(binary.BigEndian.Uint32(buf[4:8])),
			Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(buf[8:16]))),
			Pixels:    append([]byte(nil), buf[headerSize:n]...),
		}

		select {
		case s.out <- f:
		default:
			// The tracker is behind; newest frame wins, this one is stale
			// the moment the next arrives anyway.
		}
	}
}
