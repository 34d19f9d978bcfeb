package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// httpClient creates an HTTP client with sensible defaults.
func httpClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// doRequest performs an HTTP request and returns the response.
func doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return httpClient().Do(req)
}

// envelope mirrors the API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call performs the request, checks the status and decodes data into target.
func call(method, path string, body any, wantStatus int, target any) {
	GinkgoHelper()
	resp, err := doRequest(method, path, body)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	Expect(resp.StatusCode).To(Equal(wantStatus))

	if target == nil || resp.StatusCode == http.StatusNoContent {
		return
	}
	var env envelope
	Expect(json.NewDecoder(resp.Body).Decode(&env)).To(Succeed())
	Expect(json.Unmarshal(env.Data, target)).To(Succeed())
}

type alertView struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	DataEntityID string `json:"dataEntityId"`
}

type listView struct {
	Items    []alertView `json:"items"`
	PageInfo struct {
		Total   int64 `json:"total"`
		Page    int   `json:"page"`
		HasNext bool  `json:"hasNext"`
	} `json:"pageInfo"`
}

type totalsView struct {
	Total          int64 `json:"total"`
	MyTotal        int64 `json:"myTotal"`
	DependentTotal int64 `json:"dependentTotal"`
}

type entityView struct {
	Fetched bool        `json:"fetched"`
	Items   []alertView `json:"items"`
}

type integrityView struct {
	OK bool `json:"ok"`
}

var _ = Describe("Session cache flow", Ordered, func() {
	var (
		sessionID string
		owner     = fmt.Sprintf("owner-%d", time.Now().UnixNano())
		prefix    = fmt.Sprintf("it-%d", time.Now().UnixNano())
	)

	alertID := func(n int) string { return fmt.Sprintf("%s-a%d", prefix, n) }
	entityID := func(n int) string { return fmt.Sprintf("%s-e%d", prefix, n) }

	sessionPath := func(suffix string) string { return "/v1/sessions/" + sessionID + suffix }

	integrityOK := func() {
		GinkgoHelper()
		var integrity integrityView
		call(http.MethodGet, sessionPath("/integrity"), nil, http.StatusOK, &integrity)
		Expect(integrity.OK).To(BeTrue())
	}

	BeforeAll(func() {
		By("seeding the catalog")
		base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		for i := 1; i <= 3; i++ {
			entity := entityID(1)
			if i == 3 {
				entity = entityID(2)
			}
			call(http.MethodPut, "/v1/alerts/"+alertID(i), map[string]any{
				"type":         "FAILED_JOB",
				"dataEntityId": entity,
				"createdAt":    base.Add(time.Duration(i) * time.Minute),
			}, http.StatusOK, nil)
		}
		call(http.MethodPut, "/v1/owners/"+owner+"/data-entities/"+entityID(1), map[string]string{"relation": "owned"}, http.StatusOK, nil)
		call(http.MethodPut, "/v1/owners/"+owner+"/data-entities/"+entityID(2), map[string]string{"relation": "dependent"}, http.StatusOK, nil)

		var created struct {
			SessionID string `json:"sessionId"`
		}
		call(http.MethodPost, "/v1/sessions", nil, http.StatusCreated, &created)
		Expect(created.SessionID).NotTo(BeEmpty())
		sessionID = created.SessionID

		DeferCleanup(func() {
			_, _ = doRequest(http.MethodDelete, "/v1/sessions/"+sessionID, nil)
			for i := 1; i <= 3; i++ {
				_, _ = doRequest(http.MethodDelete, "/v1/owners/"+owner+"/data-entities/"+entityID(i), nil)
			}
		})
	})

	It("starts empty", func() {
		var list listView
		call(http.MethodGet, sessionPath("/alerts"), nil, http.StatusOK, &list)
		Expect(list.Items).To(BeEmpty())
		Expect(list.PageInfo.HasNext).To(BeTrue())
	})

	It("caches owner-relative totals after a refresh", func() {
		call(http.MethodPost, sessionPath("/refresh?owner="+owner+"&size=100"), nil, http.StatusAccepted, nil)

		Eventually(func(g Gomega) {
			var totals totalsView
			resp, err := doRequest(http.MethodGet, sessionPath("/totals"), nil)
			g.Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			var env envelope
			g.Expect(json.NewDecoder(resp.Body).Decode(&env)).To(Succeed())
			g.Expect(json.Unmarshal(env.Data, &totals)).To(Succeed())
			g.Expect(totals.MyTotal).To(Equal(int64(2)))
			g.Expect(totals.DependentTotal).To(Equal(int64(1)))
		}).WithTimeout(5 * time.Second).WithPolling(20 * time.Millisecond).Should(Succeed())
	})

	It("caches the fetched list page", func() {
		Eventually(func() []string {
			var list listView
			call(http.MethodGet, sessionPath("/alerts"), nil, http.StatusOK, &list)
			ids := []string{}
			for _, a := range list.Items {
				if a.ID == alertID(1) || a.ID == alertID(2) || a.ID == alertID(3) {
					ids = append(ids, a.ID)
				}
			}
			return ids
		}).WithTimeout(5 * time.Second).Should(Equal([]string{alertID(3), alertID(2), alertID(1)}))
		integrityOK()
	})

	It("caches alerts per data entity", func() {
		call(http.MethodPost, sessionPath("/data-entities/"+entityID(1)+"/refresh"), nil, http.StatusAccepted, nil)

		Eventually(func() int {
			var view entityView
			call(http.MethodGet, sessionPath("/data-entities/"+entityID(1)+"/alerts"), nil, http.StatusOK, &view)
			if !view.Fetched {
				return -1
			}
			return len(view.Items)
		}).WithTimeout(5 * time.Second).Should(Equal(2))
		integrityOK()
	})

	It("applies a status update to the cached record", func() {
		call(http.MethodPut, sessionPath("/alerts/"+alertID(1)+"/status"),
			map[string]string{"status": "RESOLVED", "updatedBy": owner}, http.StatusAccepted, nil)

		Eventually(func() string {
			var a alertView
			call(http.MethodGet, sessionPath("/alerts/"+alertID(1)), nil, http.StatusOK, &a)
			return a.Status
		}).WithTimeout(5 * time.Second).Should(Equal("RESOLVED"))

		var stored alertView
		call(http.MethodGet, "/v1/alerts/"+alertID(1), nil, http.StatusOK, &stored)
		Expect(stored.Status).To(Equal("RESOLVED"))
		integrityOK()
	})

	It("rejects reads once the session is closed", func() {
		call(http.MethodDelete, sessionPath(""), nil, http.StatusNoContent, nil)
		call(http.MethodGet, sessionPath("/alerts"), nil, http.StatusNotFound, nil)
		call(http.MethodPost, sessionPath("/refresh"), nil, http.StatusNotFound, nil)
	})
})
