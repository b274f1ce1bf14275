package tasks_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go/v3/option"
	"gorm.io/gorm"

	"eclreports/internal/config"
	"eclreports/internal/models"
	"eclreports/internal/pkg/review"
	"eclreports/internal/tasks"
	"eclreports/internal/testhelpers"
)

var _ = Describe("Database backed tasks", func() {
	var (
		ctx    context.Context
		dbConn *gorm.DB
		cfg    *config.Config
		p      *tasks.TaskProcessor
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbConn, cfg = testhelpers.OpenTestDB()

		cfg.InputDir = GinkgoT().TempDir()
		cfg.OutputDir = GinkgoT().TempDir()
		cfg.OpenAIAPIKey = ""
		p = tasks.NewTaskProcessor(dbConn, cfg)

		markdown, err := testhelpers.LoadFixture("ocr_md_1T22_p46.md")
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(filepath.Join(cfg.InputDir, "ocr_md_1T22_p46.md"), markdown, 0o644)).To(Succeed())
	})

	extract := func() {
		GinkgoHelper()
		task, err := tasks.NewExtractPageTask(tasks.ExtractPagePayload{Report: "1T22", Page: 46})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.HandleExtractPageTask(ctx, task)).To(Succeed())
	}

	Describe("HandleExtractPageTask", func() {
		It("stores the page and its reconciliation", func() {
			extract()

			doc, err := gorm.G[models.Document](dbConn).Where("report_id = ? AND page = ?", "1T22", 46).First(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.CSVPath).To(Equal(filepath.Join(cfg.OutputDir, "csv_1T22_p46", "1T22_p46_all_tables.csv")))
			Expect(doc.CSVPath).To(BeAnExistingFile())

			count, err := gorm.G[models.Reconciliation](dbConn).Where("balanced = ?", false).Count(ctx, "id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("skips pages that did not change", func() {
			extract()
			extract()

			count, err := gorm.G[models.Document](dbConn).Count(ctx, "id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("HandleReviewFindingsTask", func() {
		BeforeEach(func() {
			extract()

			testhelpers.Activate()
			reviewer, err := review.NewReviewer("test-key",
				option.WithHTTPClient(http.DefaultClient),
				option.WithMaxRetries(0),
			)
			Expect(err).NotTo(HaveOccurred())
			p.SetReviewer(reviewer)
		})

		AfterEach(func() {
			testhelpers.Deactivate()
		})

		It("stores one advisory review per unbalanced row", func() {
			answer := `{"suspected_column":"Saldo em 31/03/2022","read_value":"2.390","likely_value":"2.300","rationale":"9 lido no lugar de 0","confidence":0.7}`
			testhelpers.New("https://api.openai.com").
				Post("/v1/responses").Reply(200).
				BodyString(testhelpers.OpenAIResponse(answer)).
				Header("Content-Type", "application/json")

			task, err := tasks.NewReviewFindingsTask("1T22", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.HandleReviewFindingsTask(ctx, task)).To(Succeed())
			Expect(testhelpers.IsDone()).To(BeTrue())

			reviews, err := gorm.G[models.Review](dbConn).Find(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reviews).To(HaveLen(1))
			Expect(reviews[0].UsedTokens).To(Equal(int64(123)))
			Expect(string(reviews[0].Suggestion)).To(ContainSubstring("2.300"))

			By("leaving the reconciliation untouched")
			rec, err := gorm.G[models.Reconciliation](dbConn).Where("id = ?", reviews[0].ReconciliationID).First(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Closing.String()).To(Equal("2390"))
			Expect(rec.Balanced).To(BeFalse())

			By("not reviewing the same row twice")
			Expect(p.HandleReviewFindingsTask(ctx, task)).To(Succeed())
			count, err := gorm.G[models.Review](dbConn).Count(ctx, "id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("keeps going when the model fails", func() {
			testhelpers.New("https://api.openai.com").Post("/v1/responses").Reply(500).BodyString(`{"error":{"message":"boom"}}`)

			task, err := tasks.NewReviewFindingsTask("1T22", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.HandleReviewFindingsTask(ctx, task)).To(Succeed())

			count, err := gorm.G[models.Review](dbConn).Count(ctx, "id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	Describe("HandleReviewFindingsTask with many unbalanced rows", func() {
		const manyRows = `## Estágio 1

| Estágio 1 | Saldo em 31/12/2021 | Baixas para prejuízo | Saldo em 31/03/2022 |
|---|---|---|---|
| Cartão consignado | 100 | (10) | 95 |
| Crédito pessoal | 200 | (20) | 195 |
| Veículos | 300 | (30) | 295 |
| Imobiliário | 400 | (40) | 395 |
| Rural | 500 | (50) | 495 |
`

		BeforeEach(func() {
			Expect(os.WriteFile(filepath.Join(cfg.InputDir, "ocr_md_2T22_p66.md"), []byte(manyRows), 0o644)).To(Succeed())
			task, err := tasks.NewExtractPageTask(tasks.ExtractPagePayload{Report: "2T22", Page: 66})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.HandleExtractPageTask(ctx, task)).To(Succeed())

			testhelpers.Activate()
			reviewer, err := review.NewReviewer("test-key",
				option.WithHTTPClient(http.DefaultClient),
				option.WithMaxRetries(0),
			)
			Expect(err).NotTo(HaveOccurred())
			p.SetReviewer(reviewer)
		})

		AfterEach(func() {
			testhelpers.Deactivate()
		})

		failing := func(n int) {
			for i := 0; i < n; i++ {
				testhelpers.New("https://api.openai.com").Post("/v1/responses").Reply(500).BodyString(`{"error":{"message":"boom"}}`)
			}
		}

		It("counts failed attempts against the limit", func() {
			failing(2)
			// must stay unused
			testhelpers.New("https://api.openai.com").Post("/v1/responses").Reply(200).
				BodyString(testhelpers.OpenAIResponse(`{"confidence":0.1}`)).
				Header("Content-Type", "application/json")

			limit := 2
			task, err := tasks.NewReviewFindingsTask("2T22", &limit)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.HandleReviewFindingsTask(ctx, task)).To(Succeed())

			Expect(testhelpers.IsDone()).To(BeFalse())
			count, err := gorm.G[models.Review](dbConn).Count(ctx, "id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("stops after repeated model errors", func() {
			failing(3)
			testhelpers.New("https://api.openai.com").Post("/v1/responses").Reply(200).
				BodyString(testhelpers.OpenAIResponse(`{"confidence":0.1}`)).
				Header("Content-Type", "application/json")

			task, err := tasks.NewReviewFindingsTask("2T22", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.HandleReviewFindingsTask(ctx, task)).To(Succeed())

			Expect(testhelpers.IsDone()).To(BeFalse())
			count, err := gorm.G[models.Review](dbConn).Count(ctx, "id")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	It("ignores review tasks when reviews are disabled", func() {
		task := asynq.NewTask(tasks.TypeTaskReviewFindings, []byte(`{"report":"1T22"}`))
		Expect(p.HandleReviewFindingsTask(ctx, task)).To(Succeed())
	})
})
