// Package core provides the domain models shared by the schema dependency pipeline.
//
// # Core Types
//
// Artifact: a resolved dependency file, usually a jar, addressed by path.
// ArtifactSet: an ordered, de-duplicated collection of artifacts for one scope.
//
// The package also holds the deterministic helpers the pipeline relies on:
// sorted file listing and content digests of staging trees, glob expansion of
// declared dependency paths, and normalization of generator diagnostics.
package core
