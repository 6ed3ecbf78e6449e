package expense

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/xuri/excelize/v2"

	"github.com/expensio/expensio/internal/extraction"
)

func extractedRecord(vendor, date string, total, tax float64) extraction.ReceiptRecord {
	return extraction.ReceiptRecord{
		Vendor:    vendor,
		Date:      date,
		Total:     total,
		Currency:  "USD",
		TaxAmount: tax,
		Items: []extraction.LineItem{
			{Description: "Purchased Items", Quantity: 1, UnitPrice: total, TotalPrice: total},
		},
	}
}

var _ = Describe("Server", func() {
	var (
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		service = NewService(newMockDB(), newMockSource(), newMockStorage())
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	uploadReceipt := func(filename string) *http.Response {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		part, _ := writer.CreateFormFile("file", filename)
		part.Write([]byte("fake image data"))
		writer.Close()

		resp, err := http.Post(ghttpServer.URL()+"/api/expenses", writer.FormDataContentType(), &b)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("handleHealth", func() {
		It("should return status OK", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		When("auth is configured", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should not require credentials", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/health")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})
	})

	Describe("handleListExpenses", func() {
		When("expenses exist", func() {
			BeforeEach(func() {
				db := newMockDB()
				db.expenses["id1"] = &Expense{ID: "id1", Status: StatusProcessed}
				db.expenses["id2"] = &Expense{ID: "id2", Status: StatusDegraded}
				service = NewService(db, newMockSource(), newMockStorage())
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return all expenses", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var expenses []*Expense
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &expenses)).NotTo(HaveOccurred())
				Expect(expenses).To(HaveLen(2))
			})

			It("should set Content-Type to application/json", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})

		When("no expenses exist", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var expenses []*Expense
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &expenses)).NotTo(HaveOccurred())
				Expect(expenses).To(BeEmpty())
			})
		})

		When("service returns an error", func() {
			BeforeEach(func() {
				db := newMockDB()
				db.listErr = errors.New("service error")
				service = NewService(db, newMockSource(), newMockStorage())
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleUploadReceipt", func() {
		When("upload succeeds", func() {
			It("should return status Created", func() {
				resp := uploadReceipt("test.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			})

			It("should return an expense with extracted fields", func() {
				resp := uploadReceipt("test.jpg")
				defer resp.Body.Close()
				var exp Expense
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &exp)).NotTo(HaveOccurred())
				Expect(exp.ID).NotTo(BeEmpty())
				Expect(exp.Record.Vendor).To(Equal("Starbucks"))
				Expect(exp.Record.Total).To(Equal(43.20))
				Expect(exp.Status).To(Equal(StatusProcessed))
			})

			It("should set Content-Type to application/json", func() {
				resp := uploadReceipt("test.jpg")
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})

		When("the receipt text is unusable", func() {
			BeforeEach(func() {
				source := newMockSource()
				source.text = "   "
				service = NewService(newMockDB(), source, newMockStorage())
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should still return status Created", func() {
				resp := uploadReceipt("test.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			})

			It("should return a degraded expense", func() {
				resp := uploadReceipt("test.jpg")
				defer resp.Body.Close()
				var exp Expense
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &exp)).NotTo(HaveOccurred())
				Expect(exp.Status).To(Equal(StatusDegraded))
				Expect(exp.Record.Total).To(BeNumerically(">", 0))
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()

				resp, err := http.Post(ghttpServer.URL()+"/api/expenses", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("invalid multipart form", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/expenses", "multipart/form-data", bytes.NewBufferString("invalid"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the OCR source fails", func() {
			BeforeEach(func() {
				source := newMockSource()
				source.textErr = errors.New("unreadable image")
				service = NewService(newMockDB(), source, newMockStorage())
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status Bad Request", func() {
				resp := uploadReceipt("test.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})

			It("should return error in JSON", func() {
				resp := uploadReceipt("test.jpg")
				defer resp.Body.Close()
				var response map[string]string
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response["error"]).To(ContainSubstring("unreadable image"))
			})
		})
	})

	Describe("handleGetExpense", func() {
		When("expense exists", func() {
			BeforeEach(func() {
				db := newMockDB()
				db.expenses["test-id"] = &Expense{ID: "test-id", Status: StatusProcessed}
				service = NewService(db, newMockSource(), newMockStorage())
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the correct expense", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/test-id")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var got Expense
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &got)).NotTo(HaveOccurred())
				Expect(got.ID).To(Equal("test-id"))
			})
		})

		When("expense does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/nonexistent")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleGetExpenseFile", func() {
		When("expense and file exist", func() {
			BeforeEach(func() {
				db := newMockDB()
				storage := newMockStorage()
				db.expenses["test-id"] = &Expense{
					ID:          "test-id",
					Filename:    "test-file.jpg",
					ContentType: "image/jpeg",
				}
				storage.files["test-file.jpg"] = []byte("file content")
				service = NewService(db, newMockSource(), storage)
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/test-id/file")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the file content", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/test-id/file")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("file content"))
			})

			It("should set the correct Content-Type header", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/test-id/file")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
			})
		})

		When("expense does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/nonexistent/file")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleDeleteExpense", func() {
		When("deletion succeeds", func() {
			BeforeEach(func() {
				db := newMockDB()
				storage := newMockStorage()
				db.expenses["test-id"] = &Expense{ID: "test-id", Filename: "test-file.jpg"}
				storage.files["test-file.jpg"] = []byte("data")
				service = NewService(db, newMockSource(), storage)
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status No Content", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/expenses/test-id", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
			})

			It("should remove the expense from the database", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/expenses/test-id", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				_, getErr := service.GetExpense("test-id")
				Expect(getErr).To(HaveOccurred())
			})
		})

		When("expense does not exist", func() {
			It("should return status Internal Server Error", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/expenses/nonexistent", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})
	})

	Describe("handleExportExpenses", func() {
		BeforeEach(func() {
			db := newMockDB()
			db.expenses["id1"] = &Expense{
				ID:       "id1",
				Record:   extractedRecord("Starbucks", "2024-01-15", 25.99, 2.08),
				Status:   StatusProcessed,
				Filename: "id1_receipt.jpg",
			}
			db.expenses["id2"] = &Expense{
				ID:       "id2",
				Record:   extractedRecord("Walmart", "2024-03-02", 80.00, 6.40),
				Status:   StatusProcessed,
				Filename: "id2_receipt.jpg",
			}
			service = NewService(db, newMockSource(), newMockStorage())
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		When("no date window is given", func() {
			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/export")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return an XLSX attachment", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/export")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
				Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("attachment"))
			})

			It("should include every expense as a row", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/export")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())

				wb, err := excelize.OpenReader(bytes.NewReader(body))
				Expect(err).NotTo(HaveOccurred())
				defer wb.Close()

				rows, err := wb.GetRows("Expenses")
				Expect(err).NotTo(HaveOccurred())
				Expect(rows).To(HaveLen(3))
				Expect(rows[0][0]).To(Equal("Date"))
				Expect(rows[1][1]).To(Equal("Starbucks"))
				Expect(rows[2][1]).To(Equal("Walmart"))
			})
		})

		When("a date window is given", func() {
			It("should only include expenses inside the window", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/export?from=2024-02-01&to=2024-03-31")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())

				wb, err := excelize.OpenReader(bytes.NewReader(body))
				Expect(err).NotTo(HaveOccurred())
				defer wb.Close()

				rows, err := wb.GetRows("Expenses")
				Expect(err).NotTo(HaveOccurred())
				Expect(rows).To(HaveLen(2))
				Expect(rows[1][1]).To(Equal("Walmart"))
			})
		})

		When("the from parameter is malformed", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses/export?from=yesterday")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("authenticate", func() {
		var result bool

		When("no auth is configured", func() {
			It("should return true", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/expenses", nil)
				Expect(err).NotTo(HaveOccurred())
				result = server.authenticate(req)
				Expect(result).To(BeTrue())
			})
		})

		When("valid credentials are provided", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return true", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/expenses", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("user:pass"))
				req.Header.Set("Authorization", "Basic "+credentials)
				result = server.authenticate(req)
				Expect(result).To(BeTrue())
			})
		})

		When("invalid credentials are provided", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return false", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/expenses", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("user:wrong"))
				req.Header.Set("Authorization", "Basic "+credentials)
				result = server.authenticate(req)
				Expect(result).To(BeFalse())
			})
		})

		When("no authorization header is provided", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return false", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/expenses", nil)
				Expect(err).NotTo(HaveOccurred())
				result = server.authenticate(req)
				Expect(result).To(BeFalse())
			})
		})
	})

	Describe("requireAuth", func() {
		When("request is unauthorized", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
				server = NewServerWithMux(service, auth, http.NewServeMux())
				setupServer()
			})

			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})

			It("should set WWW-Authenticate header", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("WWW-Authenticate")).NotTo(BeEmpty())
			})
		})
	})
})
