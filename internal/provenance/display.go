package provenance

import (
	"fmt"

	"github.com/angeloszaimis/edge-functions/internal/buildinfo"
)

// Placeholder is shown for every field that could not be resolved.
const Placeholder = "unavailable"

// Candidate keys per field, in priority order.
var (
	BranchKeys    = []string{"branch", "BRANCH", "gitBranch"}
	CommitKeys    = []string{"commit", "sha", "COMMIT", "gitCommit"}
	BuiltAtKeys   = []string{"builtAt", "timestamp", "time", "built"}
	CommitURLKeys = []string{"commitUrl", "commitURL", "commit_url"}
)

// Display holds the resolved provenance fields. CommitURL is empty when the
// document carried none.
type Display struct {
	Branch    string
	Commit    string
	BuiltAt   string
	CommitURL string
}

// Unavailable is the display used when the document could not be read.
func Unavailable() Display {
	return Display{
		Branch:  Placeholder,
		Commit:  Placeholder,
		BuiltAt: Placeholder,
	}
}

// FromDocument resolves every field of doc through its candidate keys.
func FromDocument(doc map[string]any) Display {
	d := Display{
		Branch:    firstOf(doc, BranchKeys),
		Commit:    firstOf(doc, CommitKeys),
		BuiltAt:   firstOf(doc, BuiltAtKeys),
		CommitURL: firstOf(doc, CommitURLKeys),
	}

	if d.Branch == "" {
		d.Branch = Placeholder
	}
	if d.Commit == "" {
		d.Commit = Placeholder
		d.CommitURL = ""
	}
	if d.BuiltAt == "" {
		d.BuiltAt = Placeholder
	}

	return d
}

// ShortCommit is the commit as displayed: its first characters, or the
// placeholder.
func (d Display) ShortCommit() string {
	if d.Commit == Placeholder {
		return d.Commit
	}
	return buildinfo.ShortSHA(d.Commit)
}

func (d Display) String() string {
	return fmt.Sprintf("branch: %s\ncommit: %s\nbuilt: %s", d.Branch, d.ShortCommit(), d.BuiltAt)
}

func firstOf(doc map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := doc[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
