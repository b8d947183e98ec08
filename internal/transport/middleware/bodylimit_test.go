package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/credify/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MaxBodySize", func() {
	const limit = 64

	var (
		logger  *slog.Logger
		reached bool
		read    []byte
		readErr error
	)

	reader := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		read, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	oversized := `{"debtor_name":"` + strings.Repeat("a", 4*limit) + `","original_amount":10,"due_date":"2026-05-01"}`

	// streamed drops the declared length, as a chunked upload would.
	streamed := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/debts", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		return req
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		reached = false
		read = nil
		readErr = nil
	})

	It("lets small bodies through untouched", func() {
		body := `{"amount":1}`
		w := httptest.NewRecorder()
		middleware.MaxBodySize(limit, logger)(reader).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(readErr).NotTo(HaveOccurred())
		Expect(string(read)).To(Equal(body))
	})

	It("refuses a declared length over the cap before reading", func() {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(oversized))

		w := httptest.NewRecorder()
		middleware.MaxBodySize(limit, logger)(reader).ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
		Expect(w.Body.String()).To(ContainSubstring("PAYLOAD_TOO_LARGE"))
		Expect(reached).To(BeFalse())
	})

	It("stops a streamed body at the cap", func() {
		w := httptest.NewRecorder()
		middleware.MaxBodySize(limit, logger)(reader).ServeHTTP(w, streamed(oversized))

		Expect(reached).To(BeTrue())
		var tooLarge *http.MaxBytesError
		Expect(errors.As(readErr, &tooLarge)).To(BeTrue())
		Expect(tooLarge.Limit).To(Equal(int64(limit)))
		Expect(len(read)).To(BeNumerically("<=", limit))
	})

	Context("in front of the contract validator", func() {
		var chain http.Handler

		BeforeEach(func() {
			doc, err := middleware.LoadOpenAPI(context.Background(), "../../../api/openapi.yml")
			Expect(err).NotTo(HaveOccurred())
			validate, err := middleware.OpenAPIValidator(doc, logger)
			Expect(err).NotTo(HaveOccurred())

			chain = middleware.MaxBodySize(limit, logger)(validate(reader))
		})

		It("answers 413 when the validator reads past the cap", func() {
			w := httptest.NewRecorder()
			chain.ServeHTTP(w, streamed(oversized))

			Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(w.Body.String()).To(ContainSubstring("PAYLOAD_TOO_LARGE"))
			Expect(reached).To(BeFalse())
		})

		It("still validates bodies under the cap", func() {
			w := httptest.NewRecorder()
			chain.ServeHTTP(w, streamed(`{"debtor_name":"Ana"}`))

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("VALIDATION_FAILED"))
			Expect(reached).To(BeFalse())
		})
	})
})
