package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArtifactSet_FirstOccurrenceWinsAndOrderIsKept(t *testing.T) {
	a := NewArtifact("/libs/b.jar")
	b := NewArtifact("/libs/a.jar")
	dup := Artifact{Path: "/libs/b.jar", ID: "other"}

	set := NewArtifactSet(a, b)
	set.Add(dup)

	require.Equal(t, 2, set.Len())
	require.Equal(t, []Artifact{a, b}, set.List())
	require.Equal(t, "b.jar", set.List()[0].ID)
}

func TestArtifact_HasSuffix(t *testing.T) {
	require.True(t, NewArtifact("/libs/error-handling-1.2.2.jar").HasSuffix("jar"))
	require.False(t, NewArtifact("/libs/schemas.zip").HasSuffix("jar"))
	require.Equal(t, 0, (*ArtifactSet)(nil).Len())
}
