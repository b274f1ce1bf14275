package mdtable_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"eclreports/internal/pkg/mdtable"
)

var _ = Describe("Parse", func() {
	const samplePage = `# Perdas esperadas

## Estágio 1

| Produto | Saldo em 31/12/2021 | Baixas para prejuízo | Saldo em 31/03/2022 |
| --- | --- | --- | --- |
| Cartão consignado | 1.000 | (100) | 900 |
|  |  |  |  |
| Crédito pessoal | 2.000 |  | 2.000 |

Texto solto sobre a tabela seguinte

| Produto | Total | |
| --- | --- | --- |
| Total | 2.900 | |
`

	var page *mdtable.Page

	BeforeEach(func() {
		var err error
		page, err = mdtable.Parse([]byte(samplePage))
		Expect(err).NotTo(HaveOccurred())
	})

	It("captures the title and every table in order", func() {
		Expect(page.Title).To(Equal("Perdas esperadas"))
		Expect(page.Tables).To(HaveLen(2))
		Expect(page.Tables[0].Index).To(Equal(1))
		Expect(page.Tables[1].Index).To(Equal(2))
	})

	It("uses the preceding heading or paragraph as caption", func() {
		Expect(page.Tables[0].Caption).To(Equal("Estágio 1"))
		Expect(page.Tables[1].Caption).To(Equal("Texto solto sobre a tabela seguinte"))
	})

	It("keeps the section heading when a note sits before the table", func() {
		Expect(page.Tables[0].Heading).To(Equal("Estágio 1"))
		Expect(page.Tables[1].Heading).To(Equal("Estágio 1"))

		noted, err := mdtable.Parse([]byte("## Estágio 2\n\nEm milhares de reais\n\n| Produto | Saldo |\n|---|---|\n| Cartão | 1 |\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(noted.Tables[0].Caption).To(Equal("Em milhares de reais"))
		Expect(noted.Tables[0].Heading).To(Equal("Estágio 2"))
		Expect(noted.Tables[0].Clean().Heading).To(Equal("Estágio 2"))
	})

	It("collects header and body cells", func() {
		Expect(page.Tables[0].Rows).To(Equal([][]string{
			{"Produto", "Saldo em 31/12/2021", "Baixas para prejuízo", "Saldo em 31/03/2022"},
			{"Cartão consignado", "1.000", "(100)", "900"},
			{"", "", "", ""},
			{"Crédito pessoal", "2.000", "", "2.000"},
		}))
	})

	It("drops blank rows and columns when cleaning", func() {
		cleaned := page.Tables[0].Clean()
		Expect(cleaned.Rows).To(HaveLen(3))
		Expect(cleaned.Caption).To(Equal("Estágio 1"))

		second := page.Tables[1].Clean()
		Expect(second.Rows).To(Equal([][]string{
			{"Produto", "Total"},
			{"Total", "2.900"},
		}))
	})

	It("reports tables without data as empty", func() {
		table := &mdtable.Table{Rows: [][]string{{"a", "b"}, {"", " "}}}
		Expect(table.Clean().Empty()).To(BeTrue())
	})

	It("names blank header cells", func() {
		table := &mdtable.Table{Rows: [][]string{{"", "2022", "2022"}, {"x", "1", "2"}}}
		Expect(table.Header()).To(Equal([]string{"Unnamed: 0", "2022", "2022.1"}))
	})
})

var _ = Describe("ToMarkdown", func() {
	It("renders tables back to pipe syntax", func() {
		page := &mdtable.Page{Tables: []*mdtable.Table{{
			Index:   1,
			Caption: "Estágio 2",
			Rows:    [][]string{{"Produto", "Saldo"}, {"Cartão | benefício", "10"}},
		}}}

		Expect(mdtable.ToMarkdown(page)).To(Equal("## Estágio 2\n\n" +
			"| Produto | Saldo |\n" +
			"| --- | --- |\n" +
			"| Cartão \\| benefício | 10 |\n\n"))
	})

	It("round trips through Parse", func() {
		table := &mdtable.Table{Index: 1, Rows: [][]string{{"Produto", "Saldo"}, {"Cartão", "(1.234)"}}}
		page, err := mdtable.Parse([]byte(mdtable.TableToMarkdown(table)))
		Expect(err).NotTo(HaveOccurred())
		Expect(page.Tables).To(HaveLen(1))
		Expect(page.Tables[0].Rows).To(Equal(table.Rows))
	})
})
