// Package provenance reads the build metadata document served at /api/build
// and renders it for display next to the site navigation.
//
// Server revisions disagree on field names, so each displayed field is
// resolved from an ordered list of candidate keys. The first key holding a
// non-empty string wins. A field with no match, or any fetch failure,
// displays as Placeholder.
package provenance
