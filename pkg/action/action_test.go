package action_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sp105e/led-command/pkg/action"
	"github.com/sp105e/led-command/pkg/protocol"
)

func encoded(i protocol.Intent) string {
	frame, err := protocol.Encode(i)
	Expect(err).NotTo(HaveOccurred())
	return frame.String()
}

var _ = Describe("Power Actions", func() {
	It("returns power on action", func() {
		Expect(action.PowerOn()).To(Equal(protocol.SetPower{On: true}))
		Expect(encoded(action.PowerOn())).To(Equal("38000000aa"))
	})

	It("returns power off action", func() {
		Expect(action.PowerOff()).To(Equal(protocol.SetPower{On: false}))
		Expect(encoded(action.PowerOff())).To(Equal("38000000ab"))
	})
})

var _ = Describe("Color Actions", func() {
	Describe("Color", func() {
		It("keeps channel order", func() {
			Expect(action.Color(1, 2, 3)).To(Equal(protocol.SetColor{Red: 1, Green: 2, Blue: 3}))
		})
	})

	Describe("ColorHex", func() {
		It("parses codes with and without prefix", func() {
			for _, code := range []string{"#ff0080", "ff0080", "#FF0080", " #ff0080 "} {
				c, err := action.ColorHex(code)
				Expect(err).NotTo(HaveOccurred())
				Expect(c).To(Equal(protocol.SetColor{Red: 255, Green: 0, Blue: 128}))
			}
		})

		It("rejects malformed codes", func() {
			for _, code := range []string{"", "#fff", "#ff00800", "#gg0000"} {
				_, err := action.ColorHex(code)
				Expect(err).To(HaveOccurred(), code)
			}
		})
	})

	Describe("BrightnessPercent", func() {
		DescribeTable("maps percentages to levels",
			func(percent, level int) {
				b, err := action.BrightnessPercent(percent)
				Expect(err).NotTo(HaveOccurred())
				Expect(b.Level).To(Equal(level))
			},
			Entry("off", 0, 0),
			Entry("half", 50, 128),
			Entry("full", 100, 255),
		)

		It("rejects values outside 0..100", func() {
			_, err := action.BrightnessPercent(101)
			Expect(err).To(MatchError(protocol.ErrOutOfRange))
			_, err = action.BrightnessPercent(-1)
			Expect(err).To(MatchError(protocol.ErrOutOfRange))
		})
	})

	Describe("FixedColor", func() {
		It("returns fixed color action", func() {
			Expect(encoded(action.FixedColor(protocol.FixedRed))).To(Equal("3800000036"))
		})
	})
})

var _ = Describe("Effect Actions", func() {
	It("returns effect action", func() {
		Expect(action.Effect(protocol.EffectAuto)).To(Equal(protocol.SetEffect{Effect: protocol.EffectAuto}))
	})

	It("returns speed action", func() {
		Expect(action.Speed(protocol.MaxSpeed).Speed).To(Equal(6))
	})
})

var _ = Describe("Strip Actions", func() {
	It("returns pixel count action", func() {
		Expect(encoded(action.PixelCount(2048))).To(Equal("380800002d"))
	})

	It("returns color order action", func() {
		Expect(action.ColorOrder(protocol.ColorOrderBGR).Order).To(Equal(protocol.ColorOrderBGR))
	})

	It("returns pixel type action", func() {
		Expect(action.PixelType(protocol.PixelWS2811).Type).To(Equal(protocol.PixelWS2811))
	})
})

var _ = Describe("Query Actions", func() {
	It("returns status and hello actions", func() {
		Expect(encoded(action.Status())).To(Equal("3800000010"))
		Expect(encoded(action.Hello())).To(Equal("38000000d5"))
	})

	Describe("RawHex", func() {
		It("accepts common spellings", func() {
			for _, s := range []string{"38ff00801e", "0x38FF00801E", "38 ff 00 80 1e", "38:ff:00:80:1e"} {
				raw, err := action.RawHex(s)
				Expect(err).NotTo(HaveOccurred())
				Expect(raw.Bytes).To(Equal([]byte{0x38, 0xff, 0x00, 0x80, 0x1e}))
			}
		})

		It("rejects empty and invalid input", func() {
			_, err := action.RawHex("")
			Expect(err).To(HaveOccurred())
			_, err = action.RawHex("3")
			Expect(err).To(HaveOccurred())
			_, err = action.RawHex("zz")
			Expect(err).To(HaveOccurred())
		})
	})
})
