package tablecsv_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"eclreports/internal/pkg/mdtable"
	"eclreports/internal/pkg/tablecsv"
)

var _ = Describe("WritePage", func() {
	var (
		dir    string
		writer *tablecsv.Writer
	)

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), "csv_1T22_p46")
		writer = tablecsv.NewWriter()
	})

	readFile := func(name string) string {
		GinkgoHelper()
		b, err := os.ReadFile(filepath.Join(dir, name))
		Expect(err).NotTo(HaveOccurred())
		return string(b)
	}

	It("writes each table and the stacked page", func() {
		tables := []*mdtable.Table{
			{Index: 1, Rows: [][]string{{"Produto", "Saldo"}, {"Cartão", "10"}}},
			{Index: 2, Rows: [][]string{{"a", "b"}, {"", ""}}},
			{Index: 3, Rows: [][]string{{"Produto", "Baixas"}, {"Crédito", "(3)"}}},
		}

		artifacts, err := writer.WritePage(dir, "1T22", 46, tables)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifacts.TableFiles).To(Equal([]string{
			filepath.Join(dir, "table_1.csv"),
			filepath.Join(dir, "table_3.csv"),
		}))
		Expect(artifacts.AllTables).To(Equal(filepath.Join(dir, "1T22_p46_all_tables.csv")))

		Expect(readFile("table_1.csv")).To(Equal("Produto,Saldo\nCartão,10\n"))
		Expect(readFile("1T22_p46_all_tables.csv")).To(Equal(
			"Produto,Saldo,Baixas\nCartão,10,\n,,\nCrédito,,(3)\n"))
		Expect(filepath.Join(dir, "table_2.csv")).NotTo(BeAnExistingFile())
	})

	It("writes a single table as the page file", func() {
		tables := []*mdtable.Table{{Index: 1, Rows: [][]string{{"x"}, {"1"}}}}

		_, err := writer.WritePage(dir, "1T22", 46, tables)
		Expect(err).NotTo(HaveOccurred())
		Expect(readFile("1T22_p46_all_tables.csv")).To(Equal("x\n1\n"))
	})

	It("writes nothing for a page without tables", func() {
		artifacts, err := writer.WritePage(dir, "1T22", 46, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(artifacts.AllTables).To(BeEmpty())
		Expect(dir).NotTo(BeADirectory())
	})
})
