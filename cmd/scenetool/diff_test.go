package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scene "github.com/meigma/scenekit"
	"github.com/meigma/scenekit/internal/testutil"
)

func TestTreeDiff(t *testing.T) {
	t.Parallel()

	want := testutil.TextureScene(scene.LittleEndian)
	got := testutil.TextureScene(scene.LittleEndian)

	diff, err := treeDiff(want, got)
	require.NoError(t, err)
	assert.Empty(t, diff)

	got.Root.Child("Mesh").Child("Name").Value = scene.Text("keel")
	diff, err = treeDiff(want, got)
	require.NoError(t, err)
	assert.Equal(t, "-       <Name type=\"string\">hull</Name>\n+       <Name type=\"string\">keel</Name>\n", diff)
}

func TestFirstDifference(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "first difference at offset 0x2", firstDifference([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.Equal(t, "length 2, want 3", firstDifference([]byte{1, 2, 3}, []byte{1, 2}))
}
