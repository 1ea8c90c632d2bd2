package buildinfo

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// ShortSHALength is the number of characters kept in shaShort.
const ShortSHALength = 7

// Set at link time.
var (
	revision  string
	branch    string
	buildDate string
)

// Record is the build metadata document. commit duplicates sha and
// timestamp duplicates builtAt for readers that expect those names.
type Record struct {
	SHA       string `json:"sha"`
	SHAShort  string `json:"shaShort"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	Built     string `json:"built"`
	BuiltAt   string `json:"builtAt"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	CommitURL string `json:"commitUrl"`
}

// Env names the environment variables the reporter reads.
type Env struct {
	SHA    string
	Branch string
	URL    string
	Date   string
}

// DefaultEnv is the variable set exported by the Pages build environment.
var DefaultEnv = Env{
	SHA:    "CF_PAGES_COMMIT_SHA",
	Branch: "CF_PAGES_BRANCH",
	URL:    "CF_PAGES_URL",
	Date:   "CF_PAGES_BUILD_DATE",
}

type Reporter struct {
	repository string
	env        Env
	lookup     func(string) string
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Reporter)

// WithLookup replaces os.Getenv as the source of environment values.
func WithLookup(lookup func(string) string) Option {
	return func(r *Reporter) {
		r.lookup = lookup
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// NewReporter creates a Reporter for the GitHub repository "owner/name".
// Empty fields of env are replaced by DefaultEnv.
func NewReporter(logger *slog.Logger, repository string, env Env, opts ...Option) *Reporter {
	r := &Reporter{
		repository: repository,
		env:        withDefaults(env),
		lookup:     os.Getenv,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record reads the current build metadata. It never fails.
func (r *Reporter) Record() Record {
	now := r.now().UTC().Format(time.RFC3339Nano)

	sha := r.value(r.env.SHA, revision)
	builtAt := r.value(r.env.Date, buildDate)
	if builtAt == "" {
		builtAt = now
	}

	return Record{
		SHA:       sha,
		SHAShort:  ShortSHA(sha),
		Commit:    sha,
		Branch:    r.value(r.env.Branch, branch),
		Built:     now,
		BuiltAt:   builtAt,
		Timestamp: builtAt,
		URL:       r.lookup(r.env.URL),
		CommitURL: CommitURL(r.repository, sha),
	}
}

func (r *Reporter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if req.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Method not allowed"})
		return
	}

	if err := json.NewEncoder(w).Encode(r.Record()); err != nil {
		r.logger.Warn("Failed to write build record", slog.String("err", err.Error()))
	}
}

func (r *Reporter) value(name, linked string) string {
	if v := r.lookup(name); v != "" {
		return v
	}
	return linked
}

// ShortSHA returns the first ShortSHALength characters of sha.
func ShortSHA(sha string) string {
	if len(sha) <= ShortSHALength {
		return sha
	}
	return sha[:ShortSHALength]
}

// CommitURL links sha on GitHub, or returns "" when either part is missing.
func CommitURL(repository, sha string) string {
	if sha == "" || repository == "" {
		return ""
	}
	return "https://github.com/" + repository + "/commit/" + sha
}

func withDefaults(env Env) Env {
	if env.SHA == "" {
		env.SHA = DefaultEnv.SHA
	}
	if env.Branch == "" {
		env.Branch = DefaultEnv.Branch
	}
	if env.URL == "" {
		env.URL = DefaultEnv.URL
	}
	if env.Date == "" {
		env.Date = DefaultEnv.Date
	}
	return env
}
