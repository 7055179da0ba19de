package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/billlens/internal/parsing"
	"github.com/zombor/billlens/internal/scanning"
)

// multipartBody builds an upload form with one file part and extra fields
func multipartBody(filename, partContentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(writer.WriteField(k, v)).To(Succeed())
	}
	if filename != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		if partContentType != "" {
			header["Content-Type"] = []string{partContentType}
		}
		part, err := writer.CreatePart(header)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

func decodeBody(resp *http.Response, v any) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, v)).To(Succeed(), string(body))
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		scanner     *mockScanner
		service     *Service
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = newMockScanner()
		auth = BasicAuth{}
		ghttpServer = ghttp.NewServer()
	})

	JustBeforeEach(func() {
		idGen := &mockIDGenerator{id: "rcpt-1"}
		timeSrc := &mockTimeSource{now: time.Date(2024, 3, 12, 20, 30, 0, 0, time.UTC)}
		if scanner == nil {
			service = NewServiceWithDeps(db, nil, storage, nil, idGen, timeSrc)
		} else {
			service = NewServiceWithDeps(db, scanner, storage, nil, idGen, timeSrc)
		}
		server := NewServerWithMux(service, auth, "1.2.3", http.NewServeMux())
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	postJSON := func(path string, v any) *http.Response {
		data, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		return do(http.MethodPost, path, bytes.NewReader(data), "application/json")
	}

	Describe("GET /", func() {
		It("describes the service", func() {
			resp := do(http.MethodGet, "/", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var info map[string]string
			decodeBody(resp, &info)
			Expect(info).To(Equal(map[string]string{"service": "BillLens API", "version": "1.2.3", "status": "ok"}))
		})
	})

	Describe("GET /health", func() {
		It("returns ok", func() {
			resp := do(http.MethodGet, "/health", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var health map[string]bool
			decodeBody(resp, &health)
			Expect(health["ok"]).To(BeTrue())
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			resp := do(http.MethodOptions, "/api/parse", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		})

		It("marks ordinary responses", func() {
			resp := do(http.MethodGet, "/health", nil, "")
			defer resp.Body.Close()
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("rejects requests without credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("rejects a wrong password", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/receipts", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "nope")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("accepts the right credentials", func() {
			resp := do(http.MethodGet, "/api/receipts", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("leaves the health check open", func() {
			resp, err := http.Get(ghttpServer.URL() + "/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /api/parse", func() {
		It("parses the text and suggests a split", func() {
			resp := postJSON("/api/parse", map[string]any{
				"text":       "Grand Total: ₹100",
				"member_ids": []string{"a", "b", "c"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var analysis Analysis
			decodeBody(resp, &analysis)
			Expect(analysis.Total).To(Equal(100.0))
			Expect(analysis.Currency).To(Equal("INR"))
			Expect(analysis.Items).NotTo(BeNil())
			Expect(analysis.SuggestedSplit.Splits).To(Equal(map[string]float64{"a": 33.33, "b": 33.33, "c": 33.34}))
		})

		It("rejects a malformed body", func() {
			resp := do(http.MethodPost, "/api/parse", strings.NewReader("{"), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			var body map[string]string
			decodeBody(resp, &body)
			Expect(body["error"]).NotTo(BeEmpty())
		})
	})

	Describe("POST /api/ocr/extract", func() {
		It("returns the OCR text", func() {
			body, ct := multipartBody("bill.png", "image/png", photo(), map[string]string{"use_preprocessing": "false"})
			resp := do(http.MethodPost, "/api/ocr/extract", body, ct)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result scanning.Result
			decodeBody(resp, &result)
			Expect(result.Text).To(Equal(zomatoBill))
			Expect(result.Engine).To(Equal(scanning.EngineTesseract))
			Expect(scanner.lastContentType).To(Equal("image/png"))
		})

		It("guesses the content type from the extension", func() {
			body, ct := multipartBody("scan.PDF", "application/octet-stream", []byte("%PDF-1.4"), map[string]string{"use_preprocessing": "no"})
			resp := do(http.MethodPost, "/api/ocr/extract", body, ct)
			resp.Body.Close()
			Expect(scanner.lastContentType).To(Equal("application/pdf"))
		})

		It("requires a file", func() {
			body, ct := multipartBody("", "", nil, map[string]string{"hint": "x"})
			resp := do(http.MethodPost, "/api/ocr/extract", body, ct)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects an empty file", func() {
			body, ct := multipartBody("bill.jpg", "image/jpeg", []byte{}, nil)
			resp := do(http.MethodPost, "/api/ocr/extract", body, ct)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		When("the scanner fails", func() {
			BeforeEach(func() {
				scanner.scanErr = errors.New("backend down")
			})

			It("returns 500 without leaking the cause", func() {
				body, ct := multipartBody("bill.png", "image/png", photo(), nil)
				resp := do(http.MethodPost, "/api/ocr/extract", body, ct)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				var errBody map[string]string
				decodeBody(resp, &errBody)
				Expect(errBody["error"]).NotTo(ContainSubstring("backend down"))
			})
		})

		When("the image format is unsupported", func() {
			BeforeEach(func() {
				scanner.scanErr = scanning.ErrUnsupportedFormat
			})

			It("returns 400", func() {
				body, ct := multipartBody("bill.bmp", "image/bmp", []byte("BM"), map[string]string{"use_preprocessing": "false"})
				resp := do(http.MethodPost, "/api/ocr/extract", body, ct)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("no scanner is configured", func() {
			BeforeEach(func() {
				scanner = nil
			})

			It("returns 503", func() {
				body, ct := multipartBody("bill.png", "image/png", photo(), nil)
				resp := do(http.MethodPost, "/api/ocr/extract", body, ct)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			})
		})
	})

	Describe("POST /api/ocr/parse", func() {
		It("accepts raw base64", func() {
			resp := postJSON("/api/ocr/parse", map[string]string{
				"image_base64": base64.StdEncoding.EncodeToString(photo()),
				"hint":         "swiggy",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var analysis Analysis
			decodeBody(resp, &analysis)
			Expect(analysis.Merchant).To(Equal("Swiggy"))
			Expect(analysis.Total).To(Equal(220.0))
			Expect(analysis.Confidence).To(Equal(0.87))
			Expect(analysis.SuggestedSplit).To(BeNil())
		})

		It("accepts a data URL", func() {
			resp := postJSON("/api/ocr/parse", map[string]string{
				"image_base64": "data:image/png;base64," + base64.StdEncoding.EncodeToString(photo()),
			})
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("rejects invalid base64", func() {
			resp := postJSON("/api/ocr/parse", map[string]string{"image_base64": "%%%"})
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/ocr/parse-with-split", func() {
		It("splits among the query members", func() {
			resp := postJSON("/api/ocr/parse-with-split?member_ids=a,b", map[string]string{
				"image_base64": base64.StdEncoding.EncodeToString(photo()),
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var analysis Analysis
			decodeBody(resp, &analysis)
			Expect(analysis.SuggestedSplit).NotTo(BeNil())
			Expect(analysis.SuggestedSplit.AmountPerPerson).To(HaveValue(Equal(110.0)))
		})
	})

	Describe("receipts", func() {
		It("uploads a receipt", func() {
			body, ct := multipartBody("bill.png", "image/png", photo(), map[string]string{"member_ids": "a, b"})
			resp := do(http.MethodPost, "/api/receipts", body, ct)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var receipt Receipt
			decodeBody(resp, &receipt)
			Expect(receipt.ID).To(Equal("rcpt-1"))
			Expect(receipt.Merchant).To(Equal("Zomato"))
			Expect(receipt.SuggestedSplit).NotTo(BeNil())
			Expect(db.receipts).To(HaveKey("rcpt-1"))
		})

		When("a receipt is stored", func() {
			BeforeEach(func() {
				storage.files["rcpt-9_bill.jpg"] = []byte("jpeg bytes")
				db.receipts["rcpt-9"] = &Receipt{
					ID:          "rcpt-9",
					Analysis:    Analysis{ParsedReceipt: parsing.ParsedReceipt{Merchant: "Swiggy"}},
					Filename:    "rcpt-9_bill.jpg",
					ContentType: "image/jpeg",
				}
			})

			It("lists it", func() {
				resp := do(http.MethodGet, "/api/receipts", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
				var receipts []*Receipt
				decodeBody(resp, &receipts)
				Expect(receipts).To(HaveLen(1))
			})

			It("gets it", func() {
				resp := do(http.MethodGet, "/api/receipts/rcpt-9", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var receipt Receipt
				decodeBody(resp, &receipt)
				Expect(receipt.Merchant).To(Equal("Swiggy"))
			})

			It("serves its image", func() {
				resp := do(http.MethodGet, "/api/receipts/rcpt-9/file", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
				data, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([]byte("jpeg bytes")))
			})

			It("deletes it", func() {
				resp := do(http.MethodDelete, "/api/receipts/rcpt-9", nil, "")
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				Expect(db.receipts).To(BeEmpty())
				Expect(storage.files).To(BeEmpty())
			})

			It("exports a workbook", func() {
				resp := do(http.MethodGet, "/api/receipts/export", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
				Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("receipts.xlsx"))
				data, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(data[:2]).To(Equal([]byte("PK")))
			})
		})

		It("returns 404 for an unknown receipt", func() {
			resp := do(http.MethodGet, "/api/receipts/missing", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			var body map[string]string
			decodeBody(resp, &body)
			Expect(body["error"]).To(Equal("Not found"))
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("disk gone")
			})

			It("returns 500", func() {
				resp := do(http.MethodGet, "/api/receipts", nil, "")
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("POST /api/settlement/validate", func() {
		It("returns the balances and audit", func() {
			resp := do(http.MethodPost, "/api/settlement/validate", strings.NewReader(`{
				"members": [{"id": "a"}, {"id": "b"}],
				"expenses": [{"id": "e1", "paidBy": "a", "amount": 100, "splits": {"a": 50, "b": 50}}],
				"settlements": [{"id": "s1", "fromMemberId": "b", "toMemberId": "a", "amount": 50}]
			}`), "application/json")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var report struct {
				Balances map[string]float64 `json:"balances"`
				Audit    []string           `json:"audit"`
				Status   string             `json:"status"`
			}
			decodeBody(resp, &report)
			Expect(report.Status).To(Equal("ok"))
			Expect(report.Balances).To(Equal(map[string]float64{"a": 0, "b": 0}))
			Expect(report.Audit).NotTo(BeEmpty())
		})

		It("rejects a malformed export", func() {
			resp := do(http.MethodPost, "/api/settlement/validate", strings.NewReader("[]"), "application/json")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("sync", func() {
		It("pushes a snapshot", func() {
			resp := postJSON("/api/sync/push", map[string]any{
				"user_id": "u1",
				"payload": map[string]any{"groups": []string{"trip"}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]any
			decodeBody(resp, &body)
			Expect(body["ok"]).To(BeTrue())
			Expect(body["user_id"]).To(Equal("u1"))
			Expect(db.snapshots["u1"].Payload).To(MatchJSON(`{"groups":["trip"]}`))
		})

		It("pulls a snapshot", func() {
			db.snapshots["u1"] = &Snapshot{UserID: "u1", Payload: json.RawMessage(`{"v":1}`)}
			resp := do(http.MethodGet, "/api/sync/pull?user_id=u1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body struct {
				OK      bool            `json:"ok"`
				Payload json.RawMessage `json:"payload"`
			}
			decodeBody(resp, &body)
			Expect(body.OK).To(BeTrue())
			Expect(body.Payload).To(MatchJSON(`{"v":1}`))
		})

		It("requires a user id", func() {
			resp := do(http.MethodGet, "/api/sync/pull", nil, "")
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
