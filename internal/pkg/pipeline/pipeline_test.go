package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"eclreports/internal/pkg/ecl"
	"eclreports/internal/pkg/pipeline"
)

const lossPage = `## Estágio 2

| Estágio 2 | Saldo em 31/12/2021 | Transferência para estágio 1 | Baixas para prejuízo | Constituição/(Reversão) | Saldo em 31/03/2022 |
|---|---|---|---|---|---|
| Cartão consignado | 500 | (50) | (10) | 60 | 500 |
| Crédito pessoal | 800 | (80) | - | 10 | 780 |

Outras informações

| Item | Valor |
|---|---|
| Nota | 7 |
`

type memoryStore struct {
	mu    sync.Mutex
	saved map[string]*pipeline.PageResult
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(map[string]*pipeline.PageResult)}
}

func pageKey(report string, page int) string {
	return fmt.Sprintf("%s_p%d", report, page)
}

func (s *memoryStore) IsProcessed(_ context.Context, report string, page int, checksum string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.saved[pageKey(report, page)]
	return ok && stored.Checksum == checksum, nil
}

func (s *memoryStore) SavePage(_ context.Context, page *pipeline.PageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[pageKey(page.Report, page.Page)] = page
	return nil
}

var _ = Describe("Manifest", func() {
	It("loads reports from yaml and orders pages", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "manifest.yaml")
		Expect(os.WriteFile(path, []byte(`
input_dir: ocr
output_dir: out
reports:
  2T22: [67, 66]
  1T22: [47, 46, 46]
`), 0o644)).To(Succeed())

		m, err := pipeline.LoadManifest(path)
		Expect(err).NotTo(HaveOccurred())

		refs, err := m.Pages()
		Expect(err).NotTo(HaveOccurred())

		var got []string
		for _, r := range refs {
			got = append(got, r.MarkdownPath)
		}
		Expect(got).To(Equal([]string{
			filepath.Join("ocr", "ocr_md_1T22_p46.md"),
			filepath.Join("ocr", "ocr_md_1T22_p47.md"),
			filepath.Join("ocr", "ocr_md_2T22_p66.md"),
			filepath.Join("ocr", "ocr_md_2T22_p67.md"),
		}))
		Expect(refs[0].OutputDir).To(Equal("out"))
	})

	It("rejects bad report ids", func() {
		m := &pipeline.Manifest{Reports: map[string][]int{"5T22": {1}}}
		_, err := m.Pages()
		Expect(err).To(HaveOccurred())
	})

	It("rejects empty manifests", func() {
		_, err := (&pipeline.Manifest{}).Pages()
		Expect(err).To(MatchError(pipeline.ErrEmptyManifest))
	})
})

var _ = Describe("Extractor", func() {
	var (
		ctx      context.Context
		inputDir string
		outDir   string
		manifest *pipeline.Manifest
	)

	BeforeEach(func() {
		ctx = context.Background()
		inputDir = GinkgoT().TempDir()
		outDir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(inputDir, "ocr_md_1T22_p46.md"), []byte(lossPage), 0o644)).To(Succeed())
		manifest = &pipeline.Manifest{
			InputDir:  inputDir,
			OutputDir: outDir,
			Reports:   map[string][]int{"1T22": {46, 47}},
		}
	})

	It("writes csv artifacts and reconciles loss stage tables", func() {
		results, err := pipeline.NewExtractor(nil, ecl.DefaultTolerance, 2).Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))

		page := results[0]
		Expect(page.Report).To(Equal("1T22"))
		Expect(page.Tables).To(HaveLen(2))
		Expect(page.Artifacts.TableFiles).To(HaveLen(2))
		Expect(filepath.Join(outDir, "csv_1T22_p46", "1T22_p46_all_tables.csv")).To(BeAnExistingFile())

		Expect(page.Results).To(HaveLen(1))
		findings := page.Results[0].Findings
		Expect(page.Results[0].Table.Stage).To(Equal(ecl.Stage2))
		Expect(findings[0].Balanced).To(BeTrue())
		Expect(findings[1].Balanced).To(BeFalse())
	})

	It("skips pages the store has already seen", func() {
		store := newMemoryStore()
		extractor := pipeline.NewExtractor(store, ecl.DefaultTolerance, 1)

		first, err := extractor.Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())
		Expect(first[0].Skipped).To(BeFalse())
		Expect(store.saved).To(HaveLen(1))

		second, err := extractor.Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())
		Expect(second[0].Skipped).To(BeTrue())
		Expect(second[0].Checksum).To(Equal(first[0].Checksum))
	})

	It("does not mistake another page with the same content for a stored one", func() {
		Expect(os.WriteFile(filepath.Join(inputDir, "ocr_md_2T22_p66.md"), []byte(lossPage), 0o644)).To(Succeed())
		manifest.Reports = map[string][]int{"1T22": {46}, "2T22": {66}}
		store := newMemoryStore()

		results, err := pipeline.NewExtractor(store, ecl.DefaultTolerance, 2).Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		for _, r := range results {
			Expect(r.Skipped).To(BeFalse(), "%s p%d", r.Report, r.Page)
			Expect(r.Results).To(HaveLen(1))
		}
		Expect(results[0].Checksum).To(Equal(results[1].Checksum))
		Expect(store.saved).To(HaveKey("1T22_p46"))
		Expect(store.saved).To(HaveKey("2T22_p66"))
		Expect(filepath.Join(outDir, "csv_2T22_p66", "2T22_p66_all_tables.csv")).To(BeAnExistingFile())
	})

	It("reprocesses a page whose content changed", func() {
		store := newMemoryStore()
		extractor := pipeline.NewExtractor(store, ecl.DefaultTolerance, 1)
		_, err := extractor.Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())

		Expect(os.WriteFile(filepath.Join(inputDir, "ocr_md_1T22_p46.md"), []byte(lossPage+"\nRevisado\n"), 0o644)).To(Succeed())
		again, err := extractor.Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0].Skipped).To(BeFalse())
	})

	It("still writes csv artifacts for an unchanged page into a new output dir", func() {
		store := newMemoryStore()
		extractor := pipeline.NewExtractor(store, ecl.DefaultTolerance, 1)
		_, err := extractor.Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())

		manifest.OutputDir = GinkgoT().TempDir()
		again, err := extractor.Run(ctx, manifest)
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0].Skipped).To(BeTrue())
		Expect(again[0].Artifacts).NotTo(BeNil())
		Expect(filepath.Join(manifest.OutputDir, "csv_1T22_p46", "1T22_p46_all_tables.csv")).To(BeAnExistingFile())
	})

	It("stops when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := pipeline.NewExtractor(nil, ecl.DefaultTolerance, 1).Run(cancelled, manifest)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("reports a missing page", func() {
		ref, err := pipeline.SinglePage(filepath.Join(inputDir, "ocr_md_1T22_p99.md"), outDir, "", 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = pipeline.NewExtractor(nil, ecl.DefaultTolerance, 1).ExtractPage(ctx, ref)
		Expect(err).To(MatchError(pipeline.ErrMissingMarkdown))
	})
})

var _ = Describe("Checksum", func() {
	It("is stable for equal content", func() {
		Expect(pipeline.Checksum([]byte("a"))).To(Equal(pipeline.Checksum([]byte("a"))))
		Expect(pipeline.Checksum([]byte("a"))).NotTo(Equal(pipeline.Checksum([]byte("b"))))
	})
})
