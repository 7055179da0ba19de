package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractDate", func() {
	DescribeTable("recognised dates",
		func(input, want string) {
			date, ok := ExtractDate(input)
			Expect(ok).To(BeTrue())
			Expect(date).To(Equal(want))
		},
		Entry("slashes with a two digit year", "Date: 15/01/24", "2024-01-15"),
		Entry("dashes with a four digit year", "Bill Date 5-3-2024", "2024-03-05"),
		Entry("abbreviated month", "15 Jan 2024, 8:30 PM", "2024-01-15"),
		Entry("abbreviated month in capitals", "02 DEC 23", "2023-12-02"),
		Entry("earliest shape in the text wins", "Printed 03 Feb 2024\nOrdered 01/02/2024", "2024-02-03"),
		Entry("invalid calendar values are skipped", "Ref 45/13/24\nDate 07/08/24", "2024-08-07"),
	)

	It("reports nothing when no date is printed", func() {
		_, ok := ExtractDate("Masala Dosa ₹90")
		Expect(ok).To(BeFalse())
	})

	It("rejects three digit years", func() {
		_, ok := ExtractDate("12/05/202")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("ExtractTime", func() {
	DescribeTable("recognised times",
		func(input, want string) {
			clock, ok := ExtractTime(input)
			Expect(ok).To(BeTrue())
			Expect(clock).To(Equal(want))
		},
		Entry("24-hour clock", "Time: 14:05", "14:05"),
		Entry("afternoon", "7:45 PM", "19:45"),
		Entry("noon", "12:10 pm", "12:10"),
		Entry("just after midnight", "12:05 am", "00:05"),
		Entry("morning with padding", "9:30am", "09:30"),
		Entry("impossible clocks are skipped", "Table 25:10\nServed 21:15", "21:15"),
	)

	It("reports nothing when no time is printed", func() {
		_, ok := ExtractTime("Grand Total ₹450")
		Expect(ok).To(BeFalse())
	})
})
