// Package buildinfo serves the build metadata record of the running
// deployment at GET /api/build.
//
// Values are read from the environment on every request. When a variable is
// unset the reporter falls back to the values linked into the binary:
//
//	go build -ldflags "-X github.com/angeloszaimis/edge-functions/internal/buildinfo.revision=$(git rev-parse HEAD)"
//
// All fields are optional. shaShort and commitUrl are derived from sha and
// are empty when sha is empty.
package buildinfo
