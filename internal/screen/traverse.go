package screen

import (
	"strconv"
	"strings"

	"github.com/sloked/sloked/internal/slkerr"
)

const selfSentinel = "self"

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// resolveDotDot collapses ".." segments against the segment before them,
// the way a filesystem path is cleaned: "x/.." vanishes entirely. A ".."
// with nothing before it to pop (already at root) is simply dropped,
// since there's no parent above root to ascend to.
func resolveDotDot(segs []string) []string {
	var out []string
	for _, seg := range segs {
		if seg == ".." {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, seg)
	}
	return out
}

// Traverse resolves path against root (spec.md §4.13 "Path addressing").
// Each numeric segment unwraps the current handle to its child container
// and selects that container's window at the given index, moving to that
// window's handle; "self" unwraps the current handle's child container
// and returns it directly, and must be the path's last segment; ".."
// pops back to the parent handle reached by the segment before it (so
// "/x/.." always resolves to root). Traverse fails with PathNotFound on
// a missing segment and TypeMismatch when a segment expects a variant
// the tree doesn't have there.
func Traverse(root Component, path string) (Component, error) {
	segs := resolveDotDot(splitPath(path))
	cur := root
	for i, seg := range segs {
		container, err := asContainer(cur)
		if err != nil {
			return nil, err
		}

		if seg == selfSentinel {
			if i != len(segs)-1 {
				return nil, slkerr.New(slkerr.TypeMismatch, "screen: %q must be the final path segment", selfSentinel)
			}
			return container, nil
		}

		idx, convErr := strconv.Atoi(seg)
		if convErr != nil {
			return nil, slkerr.New(slkerr.PathNotFound, "screen: invalid path segment %q", seg)
		}
		win, err := container.WindowAt(idx)
		if err != nil {
			return nil, err
		}
		cur = win.Handle()
	}
	return cur, nil
}
