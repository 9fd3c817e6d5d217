package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hgl-pong/baklavajs-sub000/pkg/document"
	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/hgl-pong/baklavajs-sub000/pkg/nodes"
)

// GraphOverlay contains run results to visualize on the graph.
type GraphOverlay struct {
	CalculatedNodes []string
	FailedNode      string
}

// OverlayFromResult marks every node present in result as calculated.
func OverlayFromResult(result domain.CalculationResult, err error) *GraphOverlay {
	overlay := &GraphOverlay{CalculatedNodes: result.NodeIDs()}
	var calcErr *domain.CalculationError
	if errors.As(err, &calcErr) {
		overlay.FailedNode = calcErr.NodeID
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart from a graph document.
// Node shapes follow the node type:
// - value: ((Circle))
// - display: [/Parallelogram/]
// - expr: [[Subroutine]]
// - Default: [Rectangle]
// Edges are labelled "output → input".
func GenerateMermaid(doc *document.Document, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, node := range doc.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case nodes.TypeValue:
			opener, closer = "((", "))"
		case nodes.TypeDisplay:
			opener, closer = "[/", "/]"
		case nodes.TypeExpr:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s<br/><i>%s</i>\"%s\n", safeID, opener, node.ID, node.Type, closer)
	}

	for _, c := range doc.Connections {
		fromNode, fromIface, ok := domain.ParseInterfaceID(c.From)
		if !ok {
			continue
		}
		toNode, toIface, ok := domain.ParseInterfaceID(c.To)
		if !ok {
			continue
		}
		label := strings.ReplaceAll(fromIface+" → "+toIface, "\"", "'")
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(fromNode), label, sanitizeMermaidID(toNode))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef calculated fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.CalculatedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s calculated;\n", safeID)
			}
		}
		if overlay.FailedNode != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.FailedNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", ":", "_", " ", "_").Replace(id)
}
