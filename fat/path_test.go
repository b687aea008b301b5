package fat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	require.Nil(t, SplitPath(""))
	require.Equal(t, []string{""}, SplitPath("/"))
	require.Equal(t, []string{"a"}, SplitPath("a"))
	require.Equal(t, []string{"a"}, SplitPath("a/"))
	require.Equal(t, []string{"", "a", "b"}, SplitPath("/a/b"))
	require.Equal(t, []string{"", "", "a"}, SplitPath("//a"))
}

func TestClassify(t *testing.T) {
	cases := map[string]PathType{
		"":        PathInvalid,
		"/":       PathRoot,
		"foo":     PathRelative,
		".":       PathRelative,
		"..":      PathRelative,
		"./foo":   PathRelative,
		"../foo":  PathRelative,
		"foo/bar": PathRelative,
		"/foo":    PathAbsolute,
		"/foo/b":  PathAbsolute,
		"//foo":   PathInvalid,
		"a//b":    PathInvalid,
		"/a/":     PathAbsolute,
		"a/b//":   PathInvalid,
	}
	for path, want := range cases {
		require.Equal(t, want, Classify(SplitPath(path)), "path %q", path)
	}
}

func TestParsePath(t *testing.T) {
	valid := []string{
		"/", "a", "A1", "/a/b", "./a", "../a", "..", "a/../b", "/a/..",
		strings.Repeat("x", NameSize),
	}
	for _, path := range valid {
		_, err := ParsePath(path)
		require.Nil(t, err, "path %q", path)
	}

	invalid := []string{
		"", "a.b", "a b", "a/./b", "/.", "/a//b", "a/.", "-x",
		strings.Repeat("x", NameSize+1),
		"/" + strings.Repeat("x", NameSize+1),
	}
	for _, path := range invalid {
		_, err := ParsePath(path)
		require.ErrorIs(t, err, ErrInvalid, "path %q", path)
	}
}

func TestHasSpecialCharacters(t *testing.T) {
	require.False(t, HasSpecialCharacters("abcXYZ019"))
	require.False(t, HasSpecialCharacters(".."))
	require.True(t, HasSpecialCharacters("."))
	require.True(t, HasSpecialCharacters("a_b"))
	require.True(t, HasSpecialCharacters("/d/b"))
	require.False(t, ValidName(""))
	require.True(t, ValidName("a"))
}

func TestResolverWalk(t *testing.T) {
	f, _, _ := newTestFS(t, "x\n")
	require.Nil(t, f.Mkdir("/d"))
	require.Nil(t, f.Mkdir("/d/e"))
	require.Nil(t, f.Create("/d/file"))

	d := lookup(t, f, "/d")
	e := lookup(t, f, "/d/e")

	block, err := f.paths.DirBlock(SplitPath("/d/e"))
	require.Nil(t, err)
	require.Equal(t, int(e.FirstBlock), block)

	block, err = f.paths.DirBlock(SplitPath("d/e/.."))
	require.Nil(t, err)
	require.Equal(t, int(d.FirstBlock), block)

	block, err = f.paths.DirBlock(nil)
	require.Nil(t, err)
	require.Equal(t, RootBlock, block)

	_, err = f.paths.DirBlock(SplitPath("/d/file"))
	require.ErrorIs(t, err, ErrNotDir)
	_, err = f.paths.DirBlock(SplitPath("/missing/x"))
	require.ErrorIs(t, err, ErrNotFound)

	f.paths.SetCwd(int(e.FirstBlock))
	target, err := f.paths.Resolve(mustParse(t, "../file"))
	require.Nil(t, err)
	require.True(t, target.Exists)
	require.Equal(t, int(d.FirstBlock), target.Parent)

	target, err = f.paths.Resolve(mustParse(t, "./nothing"))
	require.Nil(t, err)
	require.False(t, target.Exists)
	require.Equal(t, int(e.FirstBlock), target.Parent)
	require.Equal(t, "nothing", target.Name)

	target, err = f.paths.Resolve(mustParse(t, "/"))
	require.Nil(t, err)
	require.True(t, target.IsRoot())
	require.True(t, target.Record.IsDir())
}

func TestResolverWorkingPath(t *testing.T) {
	f, _, _ := newTestFS(t, "")
	path, err := f.paths.WorkingPath(f.table.Len())
	require.Nil(t, err)
	require.Equal(t, "/", path)

	require.Nil(t, f.Mkdir("a"))
	require.Nil(t, f.Mkdir("a/b"))
	require.Nil(t, f.Mkdir("/a/b/c"))
	f.paths.SetCwd(int(lookup(t, f, "/a/b/c").FirstBlock))

	path, err = f.paths.WorkingPath(f.table.Len())
	require.Nil(t, err)
	require.Equal(t, "/a/b/c", path)

	_, err = f.paths.WorkingPath(2)
	require.ErrorIs(t, err, ErrInvalid)
}

func mustParse(t *testing.T, path string) Path {
	p, err := ParsePath(path)
	require.Nil(t, err)
	return p
}
