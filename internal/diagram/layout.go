package diagram

// levels groups node ids by breadth-first depth from the start node.
// Nodes the search never reaches form a final level in declaration order.
func levels(p *Prepared) [][]string {
	out := make(map[string][]string, len(p.Nodes))
	for _, e := range p.Edges {
		out[e.From] = append(out[e.From], e.To)
	}

	depth := make(map[string]int, len(p.Nodes))
	var start string
	for _, n := range p.Nodes {
		if n.Kind == NodeKindStart {
			start = n.ID
			break
		}
	}

	depth[start] = 0
	queue := []string{start}
	maxDepth := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range out[id] {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = depth[id] + 1
			maxDepth = max(maxDepth, depth[next])
			queue = append(queue, next)
		}
	}

	result := make([][]string, maxDepth+1)
	var orphans []string
	for _, n := range p.Nodes {
		d, ok := depth[n.ID]
		if !ok {
			orphans = append(orphans, n.ID)
			continue
		}
		result[d] = append(result[d], n.ID)
	}
	if len(orphans) > 0 {
		result = append(result, orphans)
	}
	return result
}
