package camera_test

import (
	"context"
	"encoding/binary"
	"net"
	"os"
	"testing"
	"time"

	"github.com/kenanunal/lander/internal/adapters/camera"
	"github.com/kenanunal/lander/internal/domain/detect"
	"github.com/kenanunal/lander/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// frameDatagram encodes a frame as the wire header plus pixels.
func frameDatagram(w, h int, ts time.Time, pixels []byte) []byte {
	buf := make([]byte, 16+len(pixels))
	binary.BigEndian.PutUint32(buf[0:4], uint32(w))
	binary.BigEndian.PutUint32(buf[4:8], uint32(h))
	binary.BigEndian.PutUint64(buf[8:16], uint64(ts.UnixNano()))
	copy(buf[16:], pixels)
	return buf
}

func TestUDPSource(t *testing.T) {
	Convey("Given a UDP frame source on a loopback port", t, func() {
		src, err := camera.NewUDPSource("127.0.0.1:0")
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		go src.Run(ctx)
		defer cancel()

		conn, err := net.Dial("udp", src.Addr().String())
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("When a well-formed frame datagram arrives", func() {
			ts := time.Now().Truncate(time.Nanosecond)
			pixels := make([]byte, 8*6)
			pixels[3] = 250

			_, err := conn.Write(frameDatagram(8, 6, ts, pixels))
			So(err, ShouldBeNil)

			Convey("Then the decoded frame comes out the channel", func() {
				var f *detect.Frame
				select {
				case f = <-src.Frames():
				case <-time.After(2 * time.Second):
					So("timed out waiting for frame", ShouldBeEmpty)
					return
				}
				So(f.Width, ShouldEqual, 8)
				So(f.Height, ShouldEqual, 6)
				So(f.Timestamp.UnixNano(), ShouldEqual, ts.UnixNano())
				So(f.Pixels, ShouldResemble, pixels)
				So(f.ID, ShouldNotBeEmpty)
				So(f.Validate(), ShouldBeNil)
			})
		})

		Convey("When a runt datagram arrives followed by a good one", func() {
			_, err := conn.Write([]byte{1, 2, 3})
			So(err, ShouldBeNil)

			pixels := make([]byte, 4*4)
			_, err = conn.Write(frameDatagram(4, 4, time.Now(), pixels))
			So(err, ShouldBeNil)

			Convey("Then only the good frame is delivered", func() {
				select {
				case f := <-src.Frames():
					So(f.Width, ShouldEqual, 4)
				case <-time.After(2 * time.Second):
					So("timed out waiting for frame", ShouldBeEmpty)
				}
			})
		})

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then the frame channel closes", func() {
				select {
				case _, ok := <-src.Frames():
					So(ok, ShouldBeFalse)
				case <-time.After(2 * time.Second):
					So("timed out waiting for close", ShouldBeEmpty)
				}
			})
		})
	})
}
