package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractItems", func() {
	var (
		text  string
		total float64
		items []LineItem
	)

	BeforeEach(func() {
		total = 43.20
	})

	JustBeforeEach(func() {
		items = ExtractItems(text, total)
	})

	When("lines use the qty x price shape", func() {
		BeforeEach(func() {
			text = "Latte 2 x 4.50 9.00\nBagel 3 x 11.40 34.20\nTotal: $43.20"
		})

		It("extracts one item per line", func() {
			Expect(items).To(HaveLen(2))
		})

		It("keeps the description, quantity and prices", func() {
			Expect(items[0]).To(Equal(LineItem{
				Description: "Latte",
				Quantity:    2,
				UnitPrice:   4.50,
				TotalPrice:  9.00,
			}))
		})
	})

	When("a qty line omits the line total", func() {
		BeforeEach(func() {
			text = "Latte 2 x 4.50\nBagel 3 x 11.40"
		})

		It("computes it from quantity and unit price", func() {
			Expect(items[0].TotalPrice).To(Equal(9.00))
			Expect(items[1].TotalPrice).To(Equal(34.20))
		})
	})

	When("lines are description-amount pairs", func() {
		BeforeEach(func() {
			text = "Latte 4.50\nSandwich 12.25\nSubtotal 40.00\nTax 3.20\nTotal 43.20"
		})

		It("skips summary-keyword lines", func() {
			Expect(items).To(HaveLen(3))
			Expect(items[0].Description).To(Equal("Latte"))
			Expect(items[1].Description).To(Equal("Sandwich"))
		})

		It("defaults quantity to one", func() {
			Expect(items[0].Quantity).To(Equal(1))
		})
	})

	When("an amount is suspiciously close to the total", func() {
		BeforeEach(func() {
			text = "Latte 4.50\nBalance due 43.00\nMisc 41.00"
		})

		It("excludes amounts at or above 90% of the total", func() {
			for _, it := range items {
				Expect(it.Description).NotTo(Equal("Misc"))
			}
		})
	})

	When("no line-based tier matches", func() {
		BeforeEach(func() {
			text = "Latte 4.50 Sandwich 12.25 junk"
		})

		It("falls back to the global scan", func() {
			Expect(len(items)).To(BeNumerically(">=", 2))
		})
	})

	When("the items sum to less than half the total", func() {
		BeforeEach(func() {
			text = "Latte 4.50"
		})

		It("appends a shortfall item", func() {
			Expect(items).To(HaveLen(2))
			Expect(items[1].Description).To(Equal("Additional Items"))
			Expect(items[1].Quantity).To(Equal(1))
			Expect(items[1].TotalPrice).To(Equal(38.70))
		})
	})

	When("nothing matches at all", func() {
		BeforeEach(func() {
			text = "###"
		})

		It("yields a single catch-all item covering the total", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Description).To(Equal("Purchased Items"))
			Expect(items[0].TotalPrice).To(Equal(43.20))
		})
	})
})
