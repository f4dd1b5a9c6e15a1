package protocol_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sp105e/led-command/pkg/protocol"
)

var _ = Describe("Encode", func() {
	DescribeTable("produces the documented wire layout",
		func(intent protocol.Intent, expected []byte) {
			frame, err := protocol.Encode(intent)
			Expect(err).NotTo(HaveOccurred())
			Expect(frame.Bytes()).To(Equal(expected))
		},
		Entry("power on", protocol.SetPower{On: true}, []byte{0x38, 0, 0, 0, 0xAA}),
		Entry("power off", protocol.SetPower{On: false}, []byte{0x38, 0, 0, 0, 0xAB}),
		Entry("color", protocol.SetColor{Red: 0x12, Green: 0x34, Blue: 0x56}, []byte{0x38, 0x12, 0x34, 0x56, 0x1E}),
		Entry("brightness", protocol.SetBrightness{Level: 200}, []byte{0x38, 200, 0, 0, 0x2A}),
		Entry("effect", protocol.SetEffect{Effect: 54}, []byte{0x38, 54, 0, 0, 0x2C}),
		Entry("automatic effect", protocol.SetEffect{Effect: protocol.EffectAuto}, []byte{0x38, 0, 0, 0, 0x2C}),
		Entry("speed", protocol.SetSpeed{Speed: 4}, []byte{0x38, 4, 0, 0, 0x03}),
		Entry("status", protocol.RequestStatus{}, []byte{0x38, 0, 0, 0, 0x10}),
		Entry("hello", protocol.Hello{}, []byte{0x38, 0, 0, 0, 0xD5}),
		Entry("fixed red", protocol.SetFixedColor{Color: protocol.FixedRed}, []byte{0x38, 0, 0, 0, 0x36}),
		Entry("fixed green", protocol.SetFixedColor{Color: protocol.FixedGreen}, []byte{0x38, 0, 0, 0, 0x18}),
		Entry("fixed blue", protocol.SetFixedColor{Color: protocol.FixedBlue}, []byte{0x38, 0, 0, 0, 0x12}),
		Entry("fixed white", protocol.SetFixedColor{Color: protocol.FixedWhite}, []byte{0x38, 0, 0, 0, 0x3B}),
		Entry("fixed alt white", protocol.SetFixedColor{Color: protocol.FixedAltWhite}, []byte{0x38, 0, 0, 0, 0x56}),
		Entry("pixel count", protocol.SetPixelCount{Count: 0x0412}, []byte{0x38, 0x04, 0x12, 0, 0x2D}),
		Entry("color order", protocol.SetColorOrder{Order: protocol.ColorOrderGRB}, []byte{0x38, 2, 0, 0, 0x3C}),
		Entry("pixel type", protocol.SetPixelType{Type: protocol.PixelAPA102}, []byte{0x38, 9, 0, 0, 0x1C}),
	)

	It("is deterministic for every intent", func() {
		intents := []protocol.Intent{
			protocol.SetPower{On: true},
			protocol.SetPower{On: false},
			protocol.SetColor{Red: 255, Green: 0, Blue: 128},
			protocol.SetBrightness{Level: 17},
			protocol.SetEffect{Effect: 96},
			protocol.SetSpeed{Speed: 6},
			protocol.RequestStatus{},
			protocol.Hello{},
			protocol.SetFixedColor{Color: protocol.FixedAltWhite},
			protocol.SetPixelCount{Count: 2048},
			protocol.SetColorOrder{Order: protocol.ColorOrderBGR},
			protocol.SetPixelType{Type: protocol.PixelSK9822},
			protocol.Raw{Bytes: []byte{0xde, 0xad}},
		}
		for _, intent := range intents {
			first, err := protocol.Encode(intent)
			Expect(err).NotTo(HaveOccurred())
			second, err := protocol.Encode(intent)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Equal(second)).To(BeTrue(), "%#v", intent)
			Expect(first.Bytes()).To(Equal(second.Bytes()))
		}
	})

	It("encodes the same color twice to identical frames", func() {
		a := protocol.MustEncode(protocol.SetColor{Red: 255, Green: 0, Blue: 128})
		b := protocol.MustEncode(protocol.SetColor{Red: 255, Green: 0, Blue: 128})
		Expect(a.Equal(b)).To(BeTrue())
		Expect(a.String()).To(Equal("38ff00801e"))
	})

	It("rejects brightness 256 with the offending field and range", func() {
		_, err := protocol.Encode(protocol.SetBrightness{Level: 256})
		Expect(errors.Is(err, protocol.ErrOutOfRange)).To(BeTrue())
		var rangeErr *protocol.OutOfRangeError
		Expect(errors.As(err, &rangeErr)).To(BeTrue())
		Expect(rangeErr.Field).To(Equal("level"))
		Expect(rangeErr.Value).To(Equal(256))
		Expect(rangeErr.Allowed).To(Equal(protocol.Range{Min: 0, Max: 255}))
		Expect(err.Error()).To(Equal("level: value 256 outside allowed range 0..=255"))
	})

	type bound struct {
		field string
		build func(v int) protocol.Intent
		min   int
		max   int
	}
	bounds := []bound{
		{"red", func(v int) protocol.Intent { return protocol.SetColor{Red: v} }, 0, 255},
		{"green", func(v int) protocol.Intent { return protocol.SetColor{Green: v} }, 0, 255},
		{"blue", func(v int) protocol.Intent { return protocol.SetColor{Blue: v} }, 0, 255},
		{"level", func(v int) protocol.Intent { return protocol.SetBrightness{Level: v} }, 0, 255},
		{"speed", func(v int) protocol.Intent { return protocol.SetSpeed{Speed: v} }, protocol.MinSpeed, protocol.MaxSpeed},
		{"count", func(v int) protocol.Intent { return protocol.SetPixelCount{Count: v} }, protocol.MinPixelCount, protocol.MaxPixelCount},
	}

	for _, b := range bounds {
		b := b
		Context("parameter "+b.field, func() {
			It("accepts both inclusive boundaries", func() {
				_, err := protocol.Encode(b.build(b.min))
				Expect(err).NotTo(HaveOccurred())
				_, err = protocol.Encode(b.build(b.max))
				Expect(err).NotTo(HaveOccurred())
			})

			It("rejects one unit outside either boundary", func() {
				for _, v := range []int{b.min - 1, b.max + 1} {
					_, err := protocol.Encode(b.build(v))
					var rangeErr *protocol.OutOfRangeError
					Expect(errors.As(err, &rangeErr)).To(BeTrue(), "value %d", v)
					Expect(rangeErr.Field).To(Equal(b.field))
					Expect(rangeErr.Value).To(Equal(v))
				}
			})
		})
	}

	DescribeTable("rejects enumerated values outside their tables",
		func(intent protocol.Intent, field string) {
			_, err := protocol.Encode(intent)
			var rangeErr *protocol.OutOfRangeError
			Expect(errors.As(err, &rangeErr)).To(BeTrue())
			Expect(rangeErr.Field).To(Equal(field))
		},
		Entry("effect", protocol.SetEffect{Effect: protocol.MaxEffect + 1}, "effect"),
		Entry("color order", protocol.SetColorOrder{Order: protocol.ColorOrderBGR + 1}, "order"),
		Entry("pixel type", protocol.SetPixelType{Type: protocol.PixelSK9822 + 1}, "type"),
		Entry("fixed color", protocol.SetFixedColor{Color: protocol.FixedAltWhite + 1}, "color"),
	)

	It("accepts the last entry of every enumerated table", func() {
		for _, intent := range []protocol.Intent{
			protocol.SetEffect{Effect: protocol.MaxEffect},
			protocol.SetColorOrder{Order: protocol.ColorOrderBGR},
			protocol.SetPixelType{Type: protocol.PixelSK9822},
			protocol.SetFixedColor{Color: protocol.FixedAltWhite},
		} {
			_, err := protocol.Encode(intent)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	Describe("Raw", func() {
		It("passes bytes through verbatim without validation", func() {
			payload := []byte{0xff, 0x00, 0x38, 0x99, 0x12, 0x34, 0x56}
			frame, err := protocol.Encode(protocol.Raw{Bytes: payload})
			Expect(err).NotTo(HaveOccurred())
			Expect(frame.Bytes()).To(Equal(payload))
			_, ok := frame.Opcode()
			Expect(ok).To(BeFalse())
		})

		It("does not alias the caller's slice", func() {
			payload := []byte{0x38, 0, 0, 0, 0x99}
			frame := protocol.MustEncode(protocol.Raw{Bytes: payload})
			payload[4] = 0x00
			Expect(frame.Bytes()[4]).To(Equal(byte(0x99)))

			out := frame.Bytes()
			out[0] = 0x00
			Expect(frame.Bytes()[0]).To(Equal(byte(0x38)))
		})

		It("encodes an empty payload to an empty frame", func() {
			frame, err := protocol.Encode(protocol.Raw{})
			Expect(err).NotTo(HaveOccurred())
			Expect(frame.Len()).To(Equal(0))
		})
	})

	It("reports the opcode of well-known frames", func() {
		op, ok := protocol.MustEncode(protocol.RequestStatus{}).Opcode()
		Expect(ok).To(BeTrue())
		Expect(op).To(Equal(protocol.OpStatus))
		Expect(op.String()).To(Equal("status"))
		Expect(protocol.Opcode(0x77).String()).To(Equal("opcode(0x77)"))
	})

	It("rejects nil and foreign intents", func() {
		_, err := protocol.Encode(nil)
		Expect(err).To(MatchError(protocol.ErrUnsupportedIntent))
		_, err = protocol.Encode(&protocol.SetPower{On: true})
		Expect(err).To(MatchError(protocol.ErrUnsupportedIntent))
	})

	It("panics in MustEncode on invalid input", func() {
		Expect(func() { protocol.MustEncode(protocol.SetSpeed{Speed: 99}) }).To(Panic())
	})
})
