package buildinfo_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-functions/internal/buildinfo"
)

const repo = "nepryoon/neuromorphic-inference-lab-site"

var _ = Describe("Reporter", func() {
	var (
		env      map[string]string
		reporter *buildinfo.Reporter
		now      time.Time
	)

	lookup := func(name string) string { return env[name] }

	BeforeEach(func() {
		env = map[string]string{}
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		reporter = buildinfo.NewReporter(
			slog.New(slog.NewTextHandler(io.Discard, nil)),
			repo,
			buildinfo.Env{},
			buildinfo.WithLookup(lookup),
			buildinfo.WithClock(func() time.Time { return now }),
		)
	})

	Describe("Record", func() {
		It("should derive shaShort and commitUrl from the sha", func() {
			env["CF_PAGES_COMMIT_SHA"] = "abc1234567890"

			rec := reporter.Record()
			Expect(rec.SHA).To(Equal("abc1234567890"))
			Expect(rec.Commit).To(Equal("abc1234567890"))
			Expect(rec.SHAShort).To(Equal("abc1234"))
			Expect(rec.CommitURL).To(Equal("https://github.com/" + repo + "/commit/abc1234567890"))
		})

		It("should leave derived fields empty without a sha", func() {
			rec := reporter.Record()
			Expect(rec.SHA).To(BeEmpty())
			Expect(rec.SHAShort).To(BeEmpty())
			Expect(rec.CommitURL).To(BeEmpty())
			Expect(rec.Branch).To(BeEmpty())
			Expect(rec.URL).To(BeEmpty())
		})

		It("should default the build date to the current time", func() {
			rec := reporter.Record()
			Expect(rec.Built).To(Equal("2026-03-01T12:00:00Z"))
			Expect(rec.BuiltAt).To(Equal(rec.Built))
			Expect(rec.Timestamp).To(Equal(rec.Built))
		})

		It("should report the build date from the environment", func() {
			env["CF_PAGES_BUILD_DATE"] = "2026-02-27T09:30:00Z"
			env["CF_PAGES_BRANCH"] = "main"
			env["CF_PAGES_URL"] = "https://abc.pages.dev"

			rec := reporter.Record()
			Expect(rec.BuiltAt).To(Equal("2026-02-27T09:30:00Z"))
			Expect(rec.Timestamp).To(Equal("2026-02-27T09:30:00Z"))
			Expect(rec.Built).To(Equal("2026-03-01T12:00:00Z"))
			Expect(rec.Branch).To(Equal("main"))
			Expect(rec.URL).To(Equal("https://abc.pages.dev"))
		})

		It("should fall back to link-time values", func() {
			restore := buildinfo.SetLinked("deadbeefcafe", "release", "2026-01-01T00:00:00Z")
			defer restore()

			rec := reporter.Record()
			Expect(rec.SHAShort).To(Equal("deadbee"))
			Expect(rec.Branch).To(Equal("release"))
			Expect(rec.BuiltAt).To(Equal("2026-01-01T00:00:00Z"))
		})

		It("should prefer the environment over link-time values", func() {
			restore := buildinfo.SetLinked("deadbeefcafe", "release", "")
			defer restore()
			env["CF_PAGES_COMMIT_SHA"] = "abc1234567890"

			Expect(reporter.Record().SHAShort).To(Equal("abc1234"))
		})

		It("should read custom variable names", func() {
			custom := buildinfo.NewReporter(
				slog.New(slog.NewTextHandler(io.Discard, nil)),
				repo,
				buildinfo.Env{SHA: "GIT_SHA"},
				buildinfo.WithLookup(lookup),
			)
			env["GIT_SHA"] = "0123456789"
			env["CF_PAGES_BRANCH"] = "dev"

			rec := custom.Record()
			Expect(rec.SHAShort).To(Equal("0123456"))
			Expect(rec.Branch).To(Equal("dev"))
		})
	})

	Describe("ServeHTTP", func() {
		It("should serve the record as uncached JSON", func() {
			env["CF_PAGES_COMMIT_SHA"] = "abc1234567890"

			w := httptest.NewRecorder()
			reporter.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/build", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Cache-Control")).To(Equal("no-store"))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json; charset=utf-8"))

			var body map[string]string
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("shaShort", "abc1234"))
			Expect(body).To(HaveKey("built"))
			Expect(body).To(HaveLen(9))
		})

		It("should reject other methods", func() {
			w := httptest.NewRecorder()
			reporter.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/build", nil))

			Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(w.Header().Get("Allow")).To(Equal(http.MethodGet))
		})
	})

	DescribeTable("ShortSHA",
		func(sha, expected string) {
			Expect(buildinfo.ShortSHA(sha)).To(Equal(expected))
		},
		Entry("empty", "", ""),
		Entry("shorter than prefix", "abc", "abc"),
		Entry("exact", "abcdefg", "abcdefg"),
		Entry("long", "abcdefgh", "abcdefg"),
	)

	It("should not link a commit without a repository", func() {
		Expect(buildinfo.CommitURL("", "abc")).To(BeEmpty())
	})
})
