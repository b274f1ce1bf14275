package review

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buildPrompt", func() {
	It("cuts long tables on a rune boundary", func() {
		// "ã" is two bytes, so the limit lands inside one of them
		table := "|" + strings.Repeat("ã", previewByteLimit) + "|"
		prompt := buildPrompt(Request{Report: "1T22", TableMarkdown: table})

		Expect(utf8.ValidString(prompt)).To(BeTrue())
		Expect(prompt).To(ContainSubstring("[...truncado...]"))
	})

	It("keeps short input intact", func() {
		Expect(truncateUTF8("Crédito", 64)).To(Equal("Crédito"))
		Expect(truncateUTF8("Crédito", 3)).To(Equal("Cr"))
	})
})
