package provenance

import (
	"html/template"
	"io"

	"github.com/pkg/errors"
)

type Link struct {
	Href  string
	Label string
}

// Footer is the input of Render: the page path, its navigation links and
// the resolved build display.
type Footer struct {
	Path    string
	Links   []Link
	Display Display
}

type navItem struct {
	Link
	Active bool
}

type footerView struct {
	Nav       []navItem
	Branch    string
	Commit    string
	CommitURL string
	BuiltAt   string
}

var footerTemplate = template.Must(template.New("footer").Parse(
	`{{if .Nav}}<nav>
{{- range .Nav}}
  <a data-nav href="{{.Href}}"{{if .Active}} class="active" aria-current="page"{{end}}>{{.Label}}</a>
{{- end}}
</nav>
{{end}}<footer class="build-provenance">
  <span id="build-branch">branch: {{.Branch}}</span>
  <span id="build-commit">commit: {{if .CommitURL}}<a href="{{.CommitURL}}" target="_blank" rel="noopener">{{.Commit}}</a>{{else}}{{.Commit}}{{end}}</span>
  <span id="build-time">built: {{.BuiltAt}}</span>
</footer>
`))

// Render writes the navigation and provenance fragment. The commit is linked
// at most once, and only when the display carries a commit URL.
func Render(w io.Writer, f Footer) error {
	hrefs := make([]string, len(f.Links))
	for i, l := range f.Links {
		hrefs[i] = l.Href
	}
	active := ActiveLinks(f.Path, hrefs)

	view := footerView{
		Branch:    f.Display.Branch,
		Commit:    f.Display.ShortCommit(),
		CommitURL: f.Display.CommitURL,
		BuiltAt:   f.Display.BuiltAt,
	}
	for i, l := range f.Links {
		view.Nav = append(view.Nav, navItem{Link: l, Active: active[i]})
	}

	return errors.Wrap(footerTemplate.Execute(w, view), "rendering provenance footer")
}
