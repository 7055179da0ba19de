package parsing

import (
	"github.com/shopspring/decimal"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SuggestSplit", func() {
	var (
		total      float64
		items      []LineItem
		members    []string
		suggestion *SplitSuggestion
	)

	BeforeEach(func() {
		items = nil
	})

	JustBeforeEach(func() {
		suggestion = SuggestSplit(total, items, members)
	})

	When("the total does not divide evenly", func() {
		BeforeEach(func() {
			total = 100
			members = []string{"m1", "m2", "m3"}
		})

		It("gives the remainder to the last member", func() {
			Expect(suggestion.Type).To(Equal(SplitEqual))
			Expect(suggestion.Splits).To(Equal(map[string]float64{
				"m1": 33.33,
				"m2": 33.33,
				"m3": 33.34,
			}))
			Expect(*suggestion.AmountPerPerson).To(Equal(33.33))
			Expect(suggestion.Explanation).To(Equal("Equal split: ₹33.33 per person"))
		})

		It("sums exactly to the total", func() {
			sum := decimal.Zero
			for _, v := range suggestion.Splits {
				sum = sum.Add(decimal.NewFromFloat(v))
			}
			Expect(sum.Equal(decimal.NewFromFloat(total))).To(BeTrue())
		})
	})

	When("member ids repeat or are blank", func() {
		BeforeEach(func() {
			total = 100
			members = []string{"a", "b", " a ", "", "c", "b"}
		})

		It("splits among the distinct members and still sums to the total", func() {
			Expect(suggestion.Splits).To(Equal(map[string]float64{
				"a": 33.33,
				"b": 33.33,
				"c": 33.34,
			}))
		})

		When("only one distinct member remains", func() {
			BeforeEach(func() {
				members = []string{"a", " a", "a ", " "}
			})

			It("charges that member the whole bill", func() {
				Expect(suggestion.Splits).To(Equal(map[string]float64{"a": 100}))
			})
		})
	})

	When("only blank ids are given", func() {
		BeforeEach(func() {
			total = 100
			members = []string{" ", ""}
		})

		It("suggests nothing", func() {
			Expect(suggestion).To(BeNil())
		})
	})

	When("awkward totals are split many ways", func() {
		It("always sums to the total", func() {
			for _, amount := range []float64{0.07, 10.01, 999.99, 1234.56} {
				ids := []string{"a", "b", "c", "d", "e", "f", "g"}
				s := SuggestSplit(amount, nil, ids)
				Expect(s.Splits).To(HaveLen(len(ids)))

				sum := decimal.Zero
				for _, v := range s.Splits {
					sum = sum.Add(decimal.NewFromFloat(v))
				}
				Expect(sum.Equal(decimal.NewFromFloat(amount))).To(BeTrue(), "total %v", amount)
			}
		})
	})

	When("the bill lists items", func() {
		BeforeEach(func() {
			total = 220
			members = []string{"m1", "m2"}
			items = []LineItem{
				{Name: "Masala Dosa", Qty: 2, Price: 90},
				{Name: "Filter Coffee", Qty: 1, Price: 40},
			}
		})

		It("suggests an item-based split quoted per person", func() {
			Expect(suggestion.Type).To(Equal(SplitItemBased))
			Expect(*suggestion.AmountPerPerson).To(Equal(110.0))
			Expect(suggestion.Splits).To(BeNil())
			Expect(suggestion.Explanation).To(Equal("Split 2 items equally among 2 people"))
		})
	})

	When("there is one member", func() {
		BeforeEach(func() {
			total = 99.99
			members = []string{"solo"}
		})

		It("charges them the whole bill", func() {
			Expect(suggestion.Splits).To(Equal(map[string]float64{"solo": 99.99}))
		})
	})

	When("there are no members", func() {
		BeforeEach(func() {
			total = 100
			members = nil
		})

		It("suggests nothing", func() {
			Expect(suggestion).To(BeNil())
		})
	})

	When("there is nothing to pay", func() {
		BeforeEach(func() {
			total = 0
			members = []string{"m1", "m2"}
		})

		It("suggests nothing", func() {
			Expect(suggestion).To(BeNil())
		})
	})
})
