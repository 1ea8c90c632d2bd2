package edge_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-functions/config"
	"github.com/angeloszaimis/edge-functions/internal/edge"
	"github.com/angeloszaimis/edge-functions/pkg/logger"
)

var _ = Describe("New", func() {
	var (
		cfg   *config.Config
		srv   *httptest.Server
		paths []string
		hits  atomic.Int32
	)

	BeforeEach(func() {
		paths = nil
		hits.Store(0)
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			paths = append(paths, r.Method+" "+r.URL.Path)
			if r.URL.Path == "/broken" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		}))

		var err error
		cfg, err = config.LoadFromEnv()
		Expect(err).NotTo(HaveOccurred())
		for _, u := range []*config.UpstreamConfig{&cfg.Upstreams.BackendHealth, &cfg.Upstreams.MVGridHealth, &cfg.Upstreams.MVGridPredict} {
			u.URL = srv.URL
			u.Backoff = "1ms"
		}
	})

	AfterEach(func() {
		srv.Close()
	})

	build := func() *edge.Handlers {
		env := map[string]string{"CF_PAGES_COMMIT_SHA": "abc1234567890"}
		return edge.New(cfg, logger.Discard(), nil, edge.Options{
			Lookup: func(k string) string { return env[k] },
		})
	}

	It("should forward each route to its configured upstream path", func() {
		h := build()

		h.Health.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, edge.PathHealth, nil))
		h.MVGridHealth.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, edge.PathMVGridHealth, nil))
		h.MVGridPredict.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, edge.PathMVGridPredict, strings.NewReader(`{}`)))

		Expect(paths).To(Equal([]string{"GET /health", "GET /health", "POST /predict"}))
	})

	It("should answer degraded for the backend health check", func() {
		cfg.Upstreams.BackendHealth.Path = "/broken"
		h := build()

		w := httptest.NewRecorder()
		h.Health.ServeHTTP(w, httptest.NewRequest(http.MethodGet, edge.PathHealth, nil))

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(hits.Load()).To(Equal(int32(1)))
	})

	It("should answer 502 for the grid health check after three attempts", func() {
		cfg.Upstreams.MVGridHealth.Path = "/broken"
		h := build()

		w := httptest.NewRecorder()
		h.MVGridHealth.ServeHTTP(w, httptest.NewRequest(http.MethodGet, edge.PathMVGridHealth, nil))

		Expect(w.Code).To(Equal(http.StatusBadGateway))
		Expect(hits.Load()).To(Equal(int32(3)))
	})

	It("should report build metadata through the injected lookup", func() {
		w := httptest.NewRecorder()
		build().Build.ServeHTTP(w, httptest.NewRequest(http.MethodGet, edge.PathBuild, nil))

		var body map[string]string
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("shaShort", "abc1234"))
		Expect(body).To(HaveKeyWithValue("commitUrl", "https://github.com/"+config.DefaultRepository+"/commit/abc1234567890"))
	})

	It("should list the warmup targets", func() {
		targets := edge.WarmupTargets(cfg)
		Expect(targets).To(HaveLen(2))
		Expect(targets[0].Name).To(Equal(edge.RouteHealth))
		Expect(targets[1].URL).To(Equal(srv.URL + "/health"))
	})
})
