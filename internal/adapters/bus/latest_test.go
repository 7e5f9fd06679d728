package bus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/kenanunal/lander/internal/adapters/bus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLatest(t *testing.T) {
	Convey("Given an empty last-value cell", t, func() {
		cell := bus.NewLatest[int]()

		Convey("Loading reports nothing published", func() {
			v, ok := cell.Load()
			So(ok, ShouldBeFalse)
			So(v, ShouldEqual, 0)
			So(cell.PublishedAt().IsZero(), ShouldBeTrue)
		})

		Convey("When values are published in sequence", func() {
			cell.Publish(1)
			cell.Publish(2)
			cell.Publish(3)

			Convey("Then only the newest value is visible", func() {
				v, ok := cell.Load()
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 3)
			})

			Convey("And the publish instant is recorded", func() {
				So(cell.PublishedAt().IsZero(), ShouldBeFalse)
				So(time.Since(cell.PublishedAt()), ShouldBeLessThan, time.Minute)
			})
		})

		Convey("When readers race a publisher", func() {
			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 1; i <= 1000; i++ {
					cell.Publish(i)
				}
			}()

			var wg sync.WaitGroup
			for r := 0; r < 4; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					last := 0
					for {
						select {
						case <-done:
							return
						default:
						}
						if v, ok := cell.Load(); ok {
							// A reader never observes time running backwards.
							if v < last {
								t.Errorf("stale read: %d after %d", v, last)
								return
							}
							last = v
						}
					}
				}()
			}
			<-done
			wg.Wait()

			v, ok := cell.Load()
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 1000)
		})
	})
}
