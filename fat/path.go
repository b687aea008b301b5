package fat

import (
	"slices"
	"strings"

	"github.com/rstms/fatvfs"
)

// PathType is the structural class of a slash-separated path.
type PathType int

const (
	PathInvalid PathType = iota
	PathRoot
	PathRelative
	PathAbsolute
)

func (t PathType) String() string {
	switch t {
	case PathRoot:
		return "root"
	case PathRelative:
		return "relative"
	case PathAbsolute:
		return "absolute"
	}
	return "invalid"
}

// SplitPath breaks a path into its slash-separated segments. A trailing
// slash does not produce a trailing empty segment, so "/" is a single
// empty segment and "" has none.
func SplitPath(s string) []string {
	if s == "" {
		return nil
	}
	segs := strings.Split(s, "/")
	if len(segs) > 1 && segs[len(segs)-1] == "" {
		segs = segs[:len(segs)-1]
	}
	return segs
}

// Classify returns the structural class of a split path.
func Classify(segs []string) PathType {
	switch {
	case len(segs) == 0:
		return PathInvalid
	case len(segs) == 1 && segs[0] == "":
		return PathRoot
	}
	for _, seg := range segs[1:] {
		if seg == "" {
			return PathInvalid
		}
	}
	if segs[0] == "" {
		return PathAbsolute
	}
	return PathRelative
}

// HasSpecialCharacters reports whether name contains anything but ASCII
// letters and digits. The parent reference ".." never counts as special.
func HasSpecialCharacters(name string) bool {
	if name == ParentName {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return true
		}
	}
	return false
}

// ValidName reports whether name can be stored in a directory record.
func ValidName(name string) bool {
	return name != "" && len(name) <= NameSize && !HasSpecialCharacters(name)
}

// Path is a classified and validated path.
type Path struct {
	Raw      string
	Type     PathType
	Segments []string
}

// Base is the final segment.
func (p Path) Base() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// ParsePath classifies s and validates every segment. Only position 0 may
// hold a structural segment: the empty root segment of an absolute path or
// "." of a relative one.
func ParsePath(s string) (Path, error) {
	segs := SplitPath(s)
	p := Path{Raw: s, Type: Classify(segs), Segments: segs}
	if p.Type == PathInvalid {
		return p, newError(KindInvalid, s, "malformed path")
	}
	if p.Type == PathRoot {
		return p, nil
	}
	for i, seg := range segs {
		if len(seg) > NameSize {
			return p, newError(KindInvalid, s, "name %q longer than %d bytes", seg, NameSize)
		}
		if i == 0 && (p.Type == PathAbsolute && seg == "" || p.Type == PathRelative && seg == ".") {
			continue
		}
		if seg == "" || HasSpecialCharacters(seg) {
			return p, newError(KindInvalid, s, "invalid name %q", seg)
		}
	}
	return p, nil
}

// Target is the outcome of resolving a path to its final entry. Exists is
// false when the containing directory was found but holds no such name.
type Target struct {
	Path   Path
	Parent int
	Name   string
	Record Record
	Exists bool
}

// IsRoot reports whether the target is the root directory itself, which has
// no record of its own.
func (t Target) IsRoot() bool {
	return t.Path.Type == PathRoot
}

// Resolver walks paths through directory blocks and owns the working
// directory pointer.
type Resolver struct {
	dir *Directory
	cwd int
}

func (r *Resolver) Cwd() int {
	return r.cwd
}

func (r *Resolver) SetCwd(block int) {
	r.cwd = block
}

// DirBlock resolves segments to the block of the directory they name. No
// segments means the working directory.
func (r *Resolver) DirBlock(segs []string) (int, error) {
	if len(segs) == 0 {
		return r.cwd, nil
	}
	typ := Classify(segs)
	block := r.cwd
	switch typ {
	case PathInvalid:
		return 0, newError(KindInvalid, strings.Join(segs, "/"), "malformed path")
	case PathRoot:
		return RootBlock, nil
	case PathAbsolute:
		block = RootBlock
	}
	for i, seg := range segs {
		if i == 0 && (typ == PathRelative && seg == "." || typ == PathAbsolute && seg == "") {
			continue
		}
		rec, ok, err := r.dir.Find(block, seg)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, newError(KindNotFound, strings.Join(segs[:i+1], "/"), "")
		}
		if !rec.IsDir() {
			return 0, newError(KindNotDir, strings.Join(segs[:i+1], "/"), "")
		}
		block = int(rec.FirstBlock)
	}
	return block, nil
}

// Resolve finds the directory containing p's final segment and looks the
// segment up there. A missing final entry is not an error. The root path
// resolves to a synthetic directory record for the root block.
func (r *Resolver) Resolve(p Path) (Target, error) {
	if p.Type == PathRoot {
		return Target{
			Path:   p,
			Parent: RootBlock,
			Record: Record{Name: "/", FirstBlock: RootBlock, Type: fatvfs.TypeDirectory},
			Exists: true,
		}, nil
	}
	parent, err := r.DirBlock(p.Segments[:len(p.Segments)-1])
	if err != nil {
		return Target{}, err
	}
	t := Target{Path: p, Parent: parent, Name: p.Base()}
	t.Record, t.Exists, err = r.dir.Find(parent, t.Name)
	if err != nil {
		return Target{}, err
	}
	return t, nil
}

// WorkingPath rebuilds the absolute path of the working directory by
// following back-references up to the root and naming each step from the
// parent's side.
func (r *Resolver) WorkingPath(maxDepth int) (string, error) {
	var names []string
	block := r.cwd
	for block != RootBlock {
		if len(names) >= maxDepth {
			return "", newError(KindInvalid, "", "directory chain deeper than %d", maxDepth)
		}
		back, ok, err := r.dir.Find(block, ParentName)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", newError(KindNotFound, "", "directory block %d has no parent reference", block)
		}
		slots, err := r.dir.Load(int(back.FirstBlock))
		if err != nil {
			return "", err
		}
		name, ok := ParentRecordName(slots, uint16(block))
		if !ok {
			return "", newError(KindNotFound, "", "directory block %d is not named in block %d", block, back.FirstBlock)
		}
		names = append(names, name)
		block = int(back.FirstBlock)
	}
	slices.Reverse(names)
	return "/" + strings.Join(names, "/"), nil
}
