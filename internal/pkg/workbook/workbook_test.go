package workbook_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"eclreports/internal/pkg/period"
	"eclreports/internal/pkg/workbook"
)

func pageFile(base, prefix, content string) period.PageFile {
	GinkgoHelper()
	path := filepath.Join(base, prefix+"_all_tables.csv")
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	f, err := period.ParseAllTablesName(path)
	Expect(err).NotTo(HaveOccurred())
	return f
}

func openBook(path string) *excelize.File {
	GinkgoHelper()
	f, err := excelize.OpenFile(path)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(f.Close)
	return f
}

var _ = Describe("Exporter", func() {
	var (
		base     string
		exporter *workbook.Exporter
	)

	BeforeEach(func() {
		base = GinkgoT().TempDir()
		exporter = workbook.NewExporter()
	})

	Describe("ByPage", func() {
		It("writes one sheet per page in chronological order", func() {
			files := []period.PageFile{
				pageFile(base, "2T22_p66", "Produto,Saldo\nCartão,10\n"),
				pageFile(base, "1T22_p46", "Produto\nCrédito\n"),
				pageFile(base, "1T22_p47", ""),
			}

			out := filepath.Join(base, workbook.DefaultPageOutput)
			Expect(exporter.ByPage(files, out)).To(Succeed())

			book := openBook(out)
			Expect(book.GetSheetList()).To(Equal([]string{"1T22_p46", "1T22_p47", "2T22_p66"}))

			rows, err := book.GetRows("2T22_p66")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([][]string{{"Produto", "Saldo"}, {"Cartão", "10"}}))

			rows, err = book.GetRows("1T22_p47")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})

		It("gives a page found in two folders its own sheet", func() {
			other := filepath.Join(base, "rerun")
			Expect(os.MkdirAll(other, 0o755)).To(Succeed())
			files := []period.PageFile{
				pageFile(base, "1T22_p46", "Produto,Saldo\nCartão,10\n"),
				pageFile(other, "1T22_p46", "Produto\nCrédito\nVeículos\n"),
			}

			out := filepath.Join(base, workbook.DefaultPageOutput)
			Expect(exporter.ByPage(files, out)).To(Succeed())

			book := openBook(out)
			Expect(book.GetSheetList()).To(Equal([]string{"1T22_p46", "1T22_p46_2"}))

			first, err := book.GetRows("1T22_p46")
			Expect(err).NotTo(HaveOccurred())
			second, err := book.GetRows("1T22_p46_2")
			Expect(err).NotTo(HaveOccurred())
			card := [][]string{{"Produto", "Saldo"}, {"Cartão", "10"}}
			credit := [][]string{{"Produto"}, {"Crédito"}, {"Veículos"}}
			Expect(first).To(Or(Equal(card), Equal(credit)))
			Expect(second).To(Or(Equal(card), Equal(credit)))
			Expect(first).NotTo(Equal(second))
		})

		It("writes an error sheet for unreadable files", func() {
			missing, err := period.ParseAllTablesName(filepath.Join(base, "3T22_p47_all_tables.csv"))
			Expect(err).NotTo(HaveOccurred())

			out := filepath.Join(base, workbook.DefaultPageOutput)
			Expect(exporter.ByPage([]period.PageFile{missing}, out)).To(Succeed())

			book := openBook(out)
			Expect(book.GetSheetList()).To(Equal([]string{"ERR_3T22_p47"}))
			rows, err := book.GetRows("ERR_3T22_p47")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows[0]).To(Equal([]string{"error"}))
			Expect(rows[1][0]).To(ContainSubstring("3T22_p47_all_tables.csv"))
		})
	})

	Describe("ByTrimester", func() {
		It("stacks the pages of each report into one sheet", func() {
			files := []period.PageFile{
				pageFile(base, "1T22_p47", "Produto,Baixas\nCrédito,(3)\n"),
				pageFile(base, "1T22_p46", "Produto,Saldo\nCartão,10\n"),
				pageFile(base, "4T21_p60", "Produto\nConsignado\n"),
				pageFile(base, "2T22_p66", "Produto\n"),
			}

			out := filepath.Join(base, workbook.DefaultTrimesterOutput)
			Expect(exporter.ByTrimester(files, out)).To(Succeed())

			book := openBook(out)
			Expect(book.GetSheetList()).To(Equal([]string{"4T21", "1T22"}))

			rows, err := book.GetRows("1T22")
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal([][]string{
				{"Produto", "Saldo", "Baixas"},
				{"Cartão", "10"},
				{"Crédito", "", "(3)"},
			}))
		})

		It("fails when no report has data", func() {
			files := []period.PageFile{pageFile(base, "2T22_p66", "")}

			out := filepath.Join(base, workbook.DefaultTrimesterOutput)
			Expect(exporter.ByTrimester(files, out)).To(MatchError(workbook.ErrNoSheets))
			Expect(out).NotTo(BeAnExistingFile())
		})
	})
})
