package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractItems", func() {
	var (
		input string
		items []LineItem
	)

	JustBeforeEach(func() {
		items = ExtractItems(input, DefaultRules())
	})

	When("lines carry a quantity", func() {
		BeforeEach(func() {
			input = "2x Masala Dosa ₹180\n1x Filter Coffee ₹40"
		})

		It("stores the per-unit price", func() {
			Expect(items).To(Equal([]LineItem{
				{Name: "Masala Dosa", Qty: 2, Price: 90},
				{Name: "Filter Coffee", Qty: 1, Price: 40},
			}))
		})
	})

	When("lines use the other printed shapes", func() {
		BeforeEach(func() {
			input = "Paneer Roll ₹120\nVeg Biryani - ₹220\nMango Lassi (₹80)\nGulab Jamun₹65.00"
		})

		It("reads each with a quantity of one", func() {
			Expect(items).To(Equal([]LineItem{
				{Name: "Paneer Roll", Qty: 1, Price: 120},
				{Name: "Veg Biryani", Qty: 1, Price: 220},
				{Name: "Mango Lassi", Qty: 1, Price: 80},
				{Name: "Gulab Jamun", Qty: 1, Price: 65},
			}))
		})
	})

	When("summary lines are mixed in", func() {
		BeforeEach(func() {
			input = "Paneer Roll ₹120\nSubtotal ₹120\nGST ₹6\nDelivery Fee ₹30\nPacking Charges ₹10\nGrand Total ₹166"
		})

		It("skips them", func() {
			Expect(items).To(Equal([]LineItem{{Name: "Paneer Roll", Qty: 1, Price: 120}}))
		})
	})

	When("OCR glues summary labels to their neighbours", func() {
		BeforeEach(func() {
			input = "Paneer Roll ₹120\nGrandTotal ₹450\nCGST2.5% ₹11.25\nItemTotal ₹120\nDeliveryCharges ₹30"
		})

		It("still skips them", func() {
			Expect(items).To(Equal([]LineItem{{Name: "Paneer Roll", Qty: 1, Price: 120}}))
		})
	})

	When("an item name only contains a keyword inside a word", func() {
		BeforeEach(func() {
			input = "Cold Coffee ₹90\nSubtotals ₹90"
		})

		It("keeps the item and skips the plural label", func() {
			Expect(items).To(Equal([]LineItem{{Name: "Cold Coffee", Qty: 1, Price: 90}}))
		})
	})

	When("the same item is printed twice", func() {
		BeforeEach(func() {
			input = "Paneer Tikka ₹250\npaneer tikka ₹250\nPaneer Tikka ₹260"
		})

		It("keeps one item per name and price", func() {
			Expect(items).To(HaveLen(2))
			Expect(items[0].Price).To(Equal(250.0))
			Expect(items[1].Price).To(Equal(260.0))
		})
	})

	When("prices fall outside the item range", func() {
		BeforeEach(func() {
			input = "Gold Coin ₹15000\nFree Papad ₹0"
		})

		It("drops them", func() {
			Expect(items).To(BeEmpty())
		})
	})

	When("a price sits exactly on the upper bound", func() {
		BeforeEach(func() {
			input = "Party Platter ₹10,000"
		})

		It("keeps it", func() {
			Expect(items).To(Equal([]LineItem{{Name: "Party Platter", Qty: 1, Price: 10000}}))
		})
	})

	When("the quantity is zero", func() {
		BeforeEach(func() {
			input = "0x Samosa ₹30"
		})

		It("never yields a zero quantity", func() {
			Expect(items).NotTo(ContainElement(HaveField("Qty", 0.0)))
		})
	})

	When("lines are too short", func() {
		BeforeEach(func() {
			input = "Tea\n₹20\n"
		})

		It("ignores them", func() {
			Expect(items).To(BeEmpty())
		})
	})
})
