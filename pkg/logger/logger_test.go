package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)

		ctx := context.Background()

		Convey("Logging with every field kind does not panic", func() {
			So(func() {
				log := Get().Named("test")
				log.Debug(ctx, "debug line", String("s", "v"))
				log.Info(ctx, "info line",
					Int("i", 1),
					Bool("b", true),
					Float64("f", 0.5),
					Duration("d", time.Second),
					Time("t", time.Now()),
					Any("a", []int{1, 2}),
					Error(errors.New("boom")),
				)
				log.Warn(ctx, "warn line")
				log.Error(ctx, "error line", Error(nil))
			}, ShouldNotPanic)
		})

		Convey("Named loggers chain", func() {
			So(func() {
				Named("outer").Named("inner").Info(ctx, "nested")
			}, ShouldNotPanic)
		})

		Convey("Level strings parse", func() {
			So(SetLevelString("debug"), ShouldBeNil)
			So(SetLevelString("WARN"), ShouldBeNil)
			So(SetLevelString(" info "), ShouldBeNil)
			So(SetLevelString(""), ShouldBeNil)
			So(SetLevelString("noisy"), ShouldNotBeNil)
		})
	})
}
