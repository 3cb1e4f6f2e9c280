package thread

import "github.com/example/devtube/services/comments/internal/domain"

// arena indexes one video's comments by position so the forest can be
// walked without pointers between records.
type arena struct {
	ids      []string
	children [][]int
	index    map[string]int
	roots    []int
}

func newArena(comments []domain.Comment) *arena {
	a := &arena{
		ids:      make([]string, len(comments)),
		children: make([][]int, len(comments)),
		index:    make(map[string]int, len(comments)),
	}
	for i, c := range comments {
		a.ids[i] = c.ID
		a.index[c.ID] = i
	}
	for i, c := range comments {
		if c.ParentID == nil {
			a.roots = append(a.roots, i)
			continue
		}
		p, ok := a.index[*c.ParentID]
		if !ok {
			// Parent outside the loaded set; treat as a root so the node is
			// still reachable by a purge.
			a.roots = append(a.roots, i)
			continue
		}
		a.children[p] = append(a.children[p], i)
	}
	return a
}

// subtree walks breadth-first from start with an explicit queue. Each node
// is visited at most once, which also bounds the walk on corrupted input.
func (a *arena) subtree(start int) []string {
	seen := make([]bool, len(a.ids))
	queue := []int{start}
	seen[start] = true
	out := make([]string, 0, 8)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, a.ids[n])
		for _, c := range a.children[n] {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return out
}
