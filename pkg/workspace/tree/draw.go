package tree

import "strings"

// Draw renders b with box-drawing connectors, one node per line. label
// formats each node; nil prints names with a trailing "/" on folders.
func Draw(b *Branch, label func(*Branch) string) string {
	if b == nil {
		return ""
	}
	if label == nil {
		label = plainLabel
	}
	var sb strings.Builder
	sb.WriteString(label(b))
	sb.WriteByte('\n')
	drawChildren(&sb, b.Children, "", label)
	return sb.String()
}

func plainLabel(b *Branch) string {
	if b.Kind == KindFolder {
		return b.Name + "/"
	}
	return b.Name
}

func drawChildren(sb *strings.Builder, children []*Branch, indent string, label func(*Branch) string) {
	for i, c := range children {
		connector, next := "├── ", "│   "
		if i == len(children)-1 {
			connector, next = "└── ", "    "
		}
		sb.WriteString(indent)
		sb.WriteString(connector)
		sb.WriteString(label(c))
		sb.WriteByte('\n')
		drawChildren(sb, c.Children, indent+next, label)
	}
}
