package review_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go/v3/option"

	"eclreports/internal/pkg/review"
	"eclreports/internal/testhelpers"
)

var _ = Describe("Reviewer", func() {
	var reviewer *review.Reviewer

	request := review.Request{
		Report:        "1T22",
		Stage:         "Estágio1",
		Category:      "Crédito pessoal",
		TableMarkdown: "| Estágio 1 | Saldo em 31/12/2021 | Saldo em 31/03/2022 |\n| --- | --- | --- |\n| Crédito pessoal | 2.500 | 2.390 |\n",
		Opening:       "2500",
		Movements:     "-200",
		Closing:       "2390",
		Expected:      "2300",
		Difference:    "90",
	}

	BeforeEach(func() {
		testhelpers.Activate()

		var err error
		reviewer, err = review.NewReviewer("test-key",
			option.WithHTTPClient(http.DefaultClient),
			option.WithMaxRetries(0),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		testhelpers.Deactivate()
	})

	It("requires an api key", func() {
		_, err := review.NewReviewer("")
		Expect(err).To(MatchError(review.ErrMissingAPIKey))
	})

	It("parses the suggestion", func() {
		answer := `{"suspected_column":"Saldo em 31/03/2022","read_value":"2.390","likely_value":"2.300","rationale":"9 lido no lugar de 0","confidence":0.8}`
		testhelpers.New("https://api.openai.com").
			Post("/v1/responses").Reply(200).
			BodyString(testhelpers.OpenAIResponse(answer)).
			Header("Content-Type", "application/json")

		result, err := reviewer.Review(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		Expect(testhelpers.IsDone()).To(BeTrue())

		Expect(result.Suggestion.SuspectedColumn).To(Equal("Saldo em 31/03/2022"))
		Expect(result.Suggestion.LikelyValue).To(Equal("2.300"))
		Expect(result.Suggestion.Confidence).To(BeNumerically("~", 0.8))
		Expect(result.UsedTokens).To(Equal(int64(123)))
		Expect(result.Model).To(Equal("gpt-5.1"))
		Expect(string(result.Raw)).To(Equal(answer))
	})

	It("accepts answers wrapped in a code fence", func() {
		testhelpers.New("https://api.openai.com").
			Post("/v1/responses").Reply(200).
			BodyString(testhelpers.OpenAIResponse("```json\n{\"suspected_column\":\"Baixas para prejuízo\",\"confidence\":0.4}\n```")).
			Header("Content-Type", "application/json")

		result, err := reviewer.Review(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Suggestion.SuspectedColumn).To(Equal("Baixas para prejuízo"))
	})

	It("fails on answers that are not json", func() {
		testhelpers.New("https://api.openai.com").
			Post("/v1/responses").Reply(200).
			BodyString(testhelpers.OpenAIResponse("não sei")).
			Header("Content-Type", "application/json")

		_, err := reviewer.Review(context.Background(), request)
		Expect(err).To(MatchError(ContainSubstring("unmarshal JSON")))
	})
})
