package config

import "regexp"

var (
	repositoryPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
	pathPattern       = regexp.MustCompile(`^/`)
)
