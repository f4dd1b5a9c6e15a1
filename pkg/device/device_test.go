package device_test

import (
	"context"
	"encoding/hex"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sp105e/led-command/mocks"
	"github.com/sp105e/led-command/pkg/device"
	"github.com/sp105e/led-command/pkg/protocol"
)

const address = "AA:BB:CC:DD:EE:FF"

var (
	statusReport = []byte{0x01, 0x05, 0x03, 0x80, 0x09, 0x02, 0x00, 0x00}
	helloAck     = []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0xbf}
)

func frame(s string) []byte {
	b, err := hex.DecodeString(s)
	Expect(err).NotTo(HaveOccurred())
	return b
}

// known asserts that f holds a value and returns it.
func known[T any](f protocol.Field[T]) T {
	v, ok := f.Get()
	ExpectWithOffset(1, ok).To(BeTrue(), "field should be known")
	return v
}

var _ = Describe("Controller", func() {
	var (
		ctrl       *gomock.Controller
		conn       *mocks.MockConnector
		controller *device.Controller
		inbox      chan []byte
		ctx        context.Context
	)

	// reply makes the mock controller answer the next frame with the given notifications.
	reply := func(expected []byte, notifications ...[]byte) *gomock.Call {
		return conn.EXPECT().Send(gomock.Any(), expected).DoAndReturn(func(context.Context, []byte) error {
			for _, n := range notifications {
				inbox <- n
			}
			return nil
		})
	}

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		DeferCleanup(cancel)

		ctrl = gomock.NewController(GinkgoT())
		conn = mocks.NewMockConnector(ctrl)
		inbox = make(chan []byte, 10)
		conn.EXPECT().Receive().Return((<-chan []byte)(inbox)).AnyTimes()
		conn.EXPECT().Address().Return(address).AnyTimes()
		conn.EXPECT().RetryInterval().Return(time.Millisecond).AnyTimes()

		controller = device.New(conn)
		Expect(controller.Connect(ctx)).To(Succeed())
		DeferCleanup(func() {
			conn.EXPECT().Close()
			controller.Disconnect()
			ctrl.Finish()
		})
	})

	It("reports the connector address", func() {
		Expect(controller.Address()).To(Equal(address))
	})

	Context("commands", func() {
		It("sends encoded frames", func() {
			gomock.InOrder(
				conn.EXPECT().Send(gomock.Any(), frame("38000000aa")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("38ff00801e")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("388000002a")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("380000003b")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("38012c002d")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("38000000ab")).Return(nil),
			)
			Expect(controller.PowerOn(ctx)).To(Succeed())
			Expect(controller.SetColor(ctx, 255, 0, 128)).To(Succeed())
			Expect(controller.SetBrightness(ctx, 128)).To(Succeed())
			Expect(controller.SetFixedColor(ctx, protocol.FixedWhite)).To(Succeed())
			Expect(controller.SetPixelCount(ctx, 300)).To(Succeed())
			Expect(controller.PowerOff(ctx)).To(Succeed())
		})

		It("sends effect, speed and strip configuration frames", func() {
			gomock.InOrder(
				conn.EXPECT().Send(gomock.Any(), frame("380500002c")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("3803000003")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("380200003c")).Return(nil),
				conn.EXPECT().Send(gomock.Any(), frame("380300001c")).Return(nil),
			)
			Expect(controller.SetEffect(ctx, 5)).To(Succeed())
			Expect(controller.SetSpeed(ctx, 3)).To(Succeed())
			Expect(controller.SetColorOrder(ctx, protocol.ColorOrderGRB)).To(Succeed())
			Expect(controller.SetPixelType(ctx, protocol.PixelWS2811)).To(Succeed())
		})

		It("rejects invalid intents without transmitting", func() {
			err := controller.SetBrightness(ctx, 256)
			Expect(err).To(MatchError(protocol.ErrOutOfRange))
			var rangeErr *protocol.OutOfRangeError
			Expect(err).To(BeAssignableToTypeOf(rangeErr))
			Expect(controller.SetSpeed(ctx, 7)).To(MatchError(protocol.ErrOutOfRange))
		})

		It("retries temporary write failures", func() {
			gomock.InOrder(
				conn.EXPECT().Send(gomock.Any(), gomock.Any()).Return(protocol.ErrWriteFailed),
				conn.EXPECT().Send(gomock.Any(), frame("38000000aa")).Return(nil),
			)
			Expect(controller.PowerOn(ctx)).To(Succeed())
		})

		It("does not retry permanent failures", func() {
			conn.EXPECT().Send(gomock.Any(), gomock.Any()).Return(protocol.ErrNotConnected)
			Expect(controller.PowerOn(ctx)).To(MatchError(protocol.ErrNotConnected))
		})

		It("passes raw frames through unchanged", func() {
			conn.EXPECT().Send(gomock.Any(), []byte{0x38, 0x01}).Return(nil)
			Expect(controller.Execute(ctx, protocol.Raw{Bytes: []byte{0x38, 0x01}})).To(Succeed())
		})
	})

	Context("status", func() {
		It("decodes the status report", func() {
			reply(frame("3800000010"), statusReport)
			status, err := controller.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(known(status.Power)).To(BeTrue())
			Expect(known(status.Mode)).To(Equal(protocol.Effect(5)))
			Expect(known(status.Speed)).To(Equal(3))
			Expect(known(status.Brightness)).To(Equal(0x80))
			Expect(known(status.PixelType)).To(Equal(protocol.PixelAPA102))
			Expect(known(status.ColorOrder)).To(Equal(protocol.ColorOrderGRB))
			Expect(status.Color.IsKnown()).To(BeFalse())
		})

		It("skips handshake acknowledgements", func() {
			reply(frame("3800000010"), helloAck, statusReport)
			status, err := controller.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(known(status.Brightness)).To(Equal(0x80))
		})

		It("reports malformed notifications", func() {
			reply(frame("3800000010"), []byte{0x01, 0x02})
			_, err := controller.Status(ctx)
			Expect(err).To(MatchError(protocol.ErrMalformed))
		})

		It("times out without a response", func() {
			reply(frame("3800000010"))
			shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			_, err := controller.Status(shortCtx)
			Expect(err).To(MatchError(protocol.ErrNoResponse))
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})

		It("fails when the connection is lost", func() {
			conn.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, []byte) error {
				close(inbox)
				return nil
			})
			_, err := controller.Status(ctx)
			Expect(err).To(MatchError(protocol.ErrNotConnected))
		})
	})

	Context("handshake", func() {
		It("accepts the acknowledgement", func() {
			reply(frame("38000000d5"), helloAck)
			Expect(controller.Hello(ctx)).To(Succeed())
		})

		It("rejects unexpected replies", func() {
			reply(frame("38000000d5"), statusReport)
			Expect(controller.Hello(ctx)).To(MatchError(protocol.ErrBadHandshake))
		})
	})

	Context("watch", func() {
		It("decodes every notification until cancelled", func() {
			watchCtx, cancel := context.WithCancel(ctx)
			var seen []protocol.Status
			done := make(chan error, 1)
			go func() {
				done <- controller.Watch(watchCtx, func(s protocol.Status) {
					if len(seen) == 2 {
						return
					}
					seen = append(seen, s)
					if len(seen) == 2 {
						cancel()
					}
				})
			}()

			// Watch subscribes asynchronously; keep feeding until both reports arrive.
			Eventually(func() int {
				inbox <- statusReport
				return len(done)
			}).WithTimeout(time.Second).WithPolling(20 * time.Millisecond).Should(Equal(1))
			Expect(<-done).To(MatchError(context.Canceled))
			Expect(seen).To(HaveLen(2))
		})
	})
})
