package ctl

import (
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

//nodeDescription returns the description of a split node for tree rendering.
func (tree Tree) nodeDescription(node TreeNode) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("#", node.NumExamples))
	sb.WriteString(fmt.Sprintln("id: ", node.NodeID))
	sb.WriteString(fmt.Sprintln("impurity: ", node.Impurity))
	name := fmt.Sprintf("f_%d", node.FeatureID)
	if node.FeatureID < len(tree.FeatureNames) {
		name = tree.FeatureNames[node.FeatureID]
	}
	sb.WriteString(fmt.Sprintf("%s < %6.5f", name, node.Threshold))
	return sb.String()
}

//leafDescription returns the description of a leaf for tree rendering.
func (tree Tree) leafDescription(leaf Leaf) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("id: ", leaf.LeafID))
	for i, val := range leaf.Distribution {
		name := fmt.Sprintf("class_%d", i)
		if i < len(tree.LabelNames) {
			name = tree.LabelNames[i]
		}
		sb.WriteString(fmt.Sprintf("  %s: %6.2f\n", name, val))
	}
	if leaf.MaxLabel < len(tree.LabelNames) {
		sb.WriteString(fmt.Sprintln("-> ", tree.LabelNames[leaf.MaxLabel]))
	}
	sb.WriteString(fmt.Sprintln("#", leaf.NumExamples))
	return sb.String()
}

func recurrentDraw(g *cgraph.Graph, tree Tree, nodeNumber int, parentNode *cgraph.Node) {
	currentNode, err := g.CreateNode(fmt.Sprint(tree.Nodes[nodeNumber].NodeID))
	HandleError(err)

	if parentNode != nil {
		g.CreateEdge("", parentNode, currentNode)
	}

	if tree.Nodes[nodeNumber].IsLeaf() {
		currentNode.Set("label", tree.leafDescription(tree.Leaves[tree.Nodes[nodeNumber].LeafIndex]))
		currentNode.Set("shape", "box")
	} else {
		currentNode.Set("label", tree.nodeDescription(tree.Nodes[nodeNumber]))
		recurrentDraw(g, tree, tree.Nodes[nodeNumber].LeftIndex, currentNode)
		recurrentDraw(g, tree, tree.Nodes[nodeNumber].RightIndex, currentNode)
	}
}

//DrawGraph builds a graphviz graph of the tree.
func (tree Tree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	HandleError(err)

	recurrentDraw(graph, tree, 0, nil)

	return graphViz, graph
}

//RenderTree writes the rendered tree into a figure file.
func (tree Tree) RenderTree(filename, figureType string) {
	graphvizType := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]

	graphViz, graph := tree.DrawGraph()
	HandleError(graphViz.RenderFilename(graph, graphvizType, filename))
}
