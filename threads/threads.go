// Package threads reconstructs conversation threads from a flat collection
// of mailing list messages using the Message-ID, In-Reply-To, and References
// headers. With those three headers we can sufficiently thread most mail.
package threads

import (
	"sort"

	"github.com/kteam-analyzer/backend/models"
)

// Build partitions messages into threads. A thread is a connected component
// of the undirected graph whose edges link each message to the message it
// replies to and to every resolvable entry in its References header.
// Dangling links (ids outside the input window) are ignored, duplicate
// message ids are last-writer-wins, and a lone message is a valid thread.
// Each thread is returned in chronological order; threads themselves are
// ordered by their earliest message.
func Build(messages []*models.Message) [][]*models.Message {
	// Mbox data is not associative, so first build our own id mapping.
	// Nodes live in a flat arena; the map holds indexes into it.
	index := make(map[string]int, len(messages))
	nodes := make([]*models.Message, 0, len(messages))
	for _, m := range messages {
		if m == nil || !m.Valid() {
			continue
		}
		if i, ok := index[m.MessageID]; ok {
			nodes[i] = m
			continue
		}
		index[m.MessageID] = len(nodes)
		nodes = append(nodes, m)
	}

	uf := newUnionFind(len(nodes))
	for i, m := range nodes {
		if m.InReplyTo != "" {
			if j, ok := index[m.InReplyTo]; ok {
				uf.union(i, j)
			}
		}
		for _, ref := range m.References {
			if j, ok := index[ref]; ok {
				uf.union(i, j)
			}
		}
	}

	components := make(map[int][]*models.Message)
	for i, m := range nodes {
		root := uf.find(i)
		components[root] = append(components[root], m)
	}

	threads := make([][]*models.Message, 0, len(components))
	for _, thread := range components {
		sort.SliceStable(thread, func(a, b int) bool {
			return thread[a].Timestamp.Before(thread[b].Timestamp)
		})
		threads = append(threads, thread)
	}
	sort.SliceStable(threads, func(a, b int) bool {
		return threads[a][0].Timestamp.Before(threads[b][0].Timestamp)
	})
	return threads
}

// unionFind is a disjoint-set forest with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
