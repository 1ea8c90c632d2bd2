package main

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/edge-functions/internal/provenance"
	"github.com/angeloszaimis/edge-functions/pkg/logger"
)

func newBuildCmd(opts *options) *cobra.Command {
	var (
		html bool
		path string
		nav  []string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Show the build provenance of the deployment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := provenance.NewClient(logger.Discard(), opts.baseURL, opts.client())
			display := client.Load(cmd.Context())

			if !html {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), display.String())
				return err
			}

			links := make([]provenance.Link, 0, len(nav))
			for _, href := range nav {
				links = append(links, provenance.Link{Href: href, Label: label(href)})
			}

			return provenance.Render(cmd.OutOrStdout(), provenance.Footer{
				Path:    path,
				Links:   links,
				Display: display,
			})
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "render the navigation and provenance HTML fragment")
	cmd.Flags().StringVar(&path, "path", "/", "current page path, used to mark the active link")
	cmd.Flags().StringSliceVar(&nav, "nav", []string{"/"}, "navigation link hrefs")

	return cmd
}

func label(href string) string {
	name := strings.Trim(href, "/")
	if name == "" {
		return "Home"
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
