package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedPath_OfFolderAndFile(t *testing.T) {
	folder := OfFolder(`C:\src\test`)
	assert.Equal(t, "C:/src/test/", folder.AbsolutePath)
	assert.True(t, folder.IsFolder())
	assert.Equal(t, "", folder.Name())

	file, err := OfFile("/src/test/FooTest.java")
	require.NoError(t, err)
	assert.False(t, file.IsFolder())
	assert.Equal(t, "FooTest.java", file.Name())

	_, err = OfFile("/src/test/")
	assert.Error(t, err)
}

func TestTypedPath_Resolve(t *testing.T) {
	root := OfFolder("/repo/src")
	file, err := root.ResolveFile("com/acme/FooTest.ss")
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/com/acme/FooTest.ss", file.String())

	folder, err := root.ResolveFolder("com/acme")
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/com/acme/", folder.String())

	_, err = root.ResolveFile("/abs")
	assert.Error(t, err)
	_, err = root.ResolveFile("folder/")
	assert.Error(t, err)
	_, err = file.ResolveFile("x")
	assert.Error(t, err)
}

func TestTypedPath_ParentAndRelativize(t *testing.T) {
	root := OfFolder("/repo/src")
	file, err := root.ResolveFile("com/acme/FooTest.ss")
	require.NoError(t, err)

	parent, err := file.ParentFolder()
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/com/acme/", parent.String())

	grandParent, err := parent.ParentFolder()
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/com/", grandParent.String())

	relative, err := root.Relativize(file)
	require.NoError(t, err)
	assert.Equal(t, "com/acme/FooTest.ss", relative)

	_, err = OfFolder("/other").Relativize(file)
	assert.Error(t, err)
}

func TestTypedPath_Compare(t *testing.T) {
	a := OfFolder("/a")
	b := OfFolder("/b")
	assert.Negative(t, a.Compare(b))
	assert.Zero(t, a.Compare(OfFolder("/a/")))
}
