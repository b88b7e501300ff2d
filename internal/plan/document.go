package plan

// Document is the serializable shape of a plan tree: the node kind, its
// properties flattened to a map, the estimates, and the children in
// order. Node IDs and raw statistics stay out; a document describes the
// plan, not the planner's bookkeeping.
type Document struct {
	Kind          string         `json:"kind"`
	Properties    map[string]any `json:"properties,omitempty"`
	EstimatedCost float64        `json:"estimated_cost"`
	EstimatedRows int64          `json:"estimated_rows"`
	Children      []*Document    `json:"children,omitempty"`
}

// Document converts the tree rooted at n into its serializable form.
func (n *Node) Document() *Document {
	if n == nil {
		return nil
	}

	doc := &Document{
		Kind:          n.Kind.String(),
		Properties:    propsMap(n.Props),
		EstimatedCost: n.EstimatedCost,
		EstimatedRows: n.EstimatedRows,
	}
	for _, child := range n.Children {
		doc.Children = append(doc.Children, child.Document())
	}
	return doc
}

func propsMap(p Props) map[string]any {
	switch p := p.(type) {
	case ScanProps:
		m := map[string]any{"table": p.Table}
		if len(p.Columns) > 0 {
			m["columns"] = cloneStrings(p.Columns)
		}
		return m
	case FilterProps:
		return map[string]any{"condition": p.Condition}
	case ProjectProps:
		return map[string]any{"columns": cloneStrings(p.Columns)}
	case JoinProps:
		m := map[string]any{"join_type": p.Type, "condition": p.Condition}
		if p.Method != "" {
			m["join_method"] = p.Method
		}
		return m
	case AggregateProps:
		return map[string]any{"group_by": p.GroupBy}
	case SortProps:
		return map[string]any{"order_by": p.OrderBy}
	case LimitProps:
		return map[string]any{"limit": p.Limit}
	}
	return nil
}
