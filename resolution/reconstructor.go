package resolution

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SnippetReconstructor renders a best-effort textual stand-in for a source range when the literal source text
// is unavailable. Implementations are inherently heuristic; the resolution pipeline treats them as a pluggable
// strategy and never depends on their output for line numbers.
type SnippetReconstructor interface {
	// Reconstruct renders an approximation of the source range [start, start+length) within the file at the
	// given index. The boolean return indicates whether anything could be reconstructed.
	Reconstruct(fileIndex int, start int, length int) (string, bool)
}

// astReconstructor reconstructs snippets by locating the smallest AST node whose source range fully contains
// the requested range, then rendering a minimal textual form of it.
type astReconstructor struct {
	// asts maps a source file index to the raw decoded AST for that file.
	asts map[int]any
}

// NewASTReconstructor returns a SnippetReconstructor backed by the given per-file raw ASTs, as decoded from a
// compiler output document.
func NewASTReconstructor(asts map[int]any) SnippetReconstructor {
	return &astReconstructor{asts: asts}
}

// Reconstruct implements SnippetReconstructor.
func (r *astReconstructor) Reconstruct(fileIndex int, start int, length int) (string, bool) {
	ast, ok := r.asts[fileIndex]
	if !ok {
		return "", false
	}
	node := smallestContainingNode(ast, fileIndex, start, length)
	if node == nil {
		return "", false
	}
	rendered := renderNode(node)
	if rendered == "" {
		return "", false
	}
	return rendered, true
}

// smallestContainingNode walks the raw AST and returns the node whose "src" range fully contains
// [start, start+length) within the given file and is the smallest among all such matches, i.e. the most
// specific source construct covering the range. Returns nil if no node contains the range.
func smallestContainingNode(root any, fileIndex int, start int, length int) map[string]any {
	if length < 1 {
		length = 1
	}
	targetEnd := start + length

	var best map[string]any
	smallest := math.MaxInt

	var search func(value any)
	search = func(value any) {
		switch node := value.(type) {
		case map[string]any:
			if src, ok := node["src"].(string); ok {
				if nodeStart, nodeLength, nodeFile, ok := parseSrcRange(src); ok {
					if nodeFile == fileIndex && nodeStart <= start && nodeStart+nodeLength >= targetEnd && nodeLength < smallest {
						best = node
						smallest = nodeLength
					}
				}
			}
			// Always continue searching children; a smaller containing node may nest deeper. Children are walked
			// in sorted key order so equally-sized matches resolve to the same node on every run.
			keys := maps.Keys(node)
			slices.Sort(keys)
			for _, key := range keys {
				search(node[key])
			}
		case []any:
			for _, child := range node {
				search(child)
			}
		}
	}
	search(root)
	return best
}

// parseSrcRange parses an AST "src" attribute of the form "start:length:fileIndex".
func parseSrcRange(src string) (start int, length int, fileIndex int, ok bool) {
	parts := strings.Split(src, ":")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var err error
	if start, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, false
	}
	if length, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, false
	}
	if fileIndex, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, false
	}
	return start, length, fileIndex, true
}

// renderNode renders a minimal textual form of a raw AST node based on its recorded type, name, value, and
// operator fields. The reconstruction will not match original formatting, but identifies the construct.
func renderNode(node map[string]any) string {
	nodeType, _ := node["nodeType"].(string)
	switch nodeType {
	case "Identifier", "IdentifierPath", "ElementaryTypeName", "UserDefinedTypeName":
		return stringField(node, "name")
	case "Literal":
		if value := stringField(node, "value"); value != "" {
			return value
		}
		return stringField(node, "hexValue")
	case "MemberAccess":
		return renderChild(node, "expression") + "." + stringField(node, "memberName")
	case "IndexAccess":
		return renderChild(node, "baseExpression") + "[" + renderChild(node, "indexExpression") + "]"
	case "Assignment":
		return renderChild(node, "leftHandSide") + " " + stringField(node, "operator") + " " + renderChild(node, "rightHandSide")
	case "BinaryOperation":
		return renderChild(node, "leftExpression") + " " + stringField(node, "operator") + " " + renderChild(node, "rightExpression")
	case "UnaryOperation":
		operand := renderChild(node, "subExpression")
		if prefix, ok := node["prefix"].(bool); ok && !prefix {
			return operand + stringField(node, "operator")
		}
		return stringField(node, "operator") + operand
	case "FunctionCall":
		return renderChild(node, "expression") + "(" + strings.Join(renderChildList(node, "arguments"), ", ") + ")"
	case "TupleExpression":
		return "(" + strings.Join(renderChildList(node, "components"), ", ") + ")"
	case "ElementaryTypeNameExpression":
		return renderChild(node, "typeName")
	case "ExpressionStatement":
		return renderChild(node, "expression") + ";"
	case "EmitStatement":
		return "emit " + renderChild(node, "eventCall") + ";"
	case "RevertStatement":
		return "revert " + renderChild(node, "errorCall") + ";"
	case "Return":
		if expression := renderChild(node, "expression"); expression != "" {
			return "return " + expression + ";"
		}
		return "return;"
	case "Break":
		return "break;"
	case "Continue":
		return "continue;"
	case "PlaceholderStatement":
		return "_;"
	case "VariableDeclaration":
		typeName := renderChild(node, "typeName")
		name := stringField(node, "name")
		if typeName != "" && name != "" {
			return typeName + " " + name
		}
		return typeName + name
	case "VariableDeclarationStatement":
		rendered := strings.Join(renderChildList(node, "declarations"), ", ")
		if initialValue := renderChild(node, "initialValue"); initialValue != "" {
			rendered += " = " + initialValue
		}
		return rendered + ";"
	case "IfStatement":
		return "if (" + renderChild(node, "condition") + ")"
	case "FunctionDefinition":
		name := stringField(node, "name")
		if name == "" {
			// Constructors, fallback, and receive functions have no name; the kind identifies them.
			name = stringField(node, "kind")
		}
		return "function " + name + "(" + strings.Join(renderChildList(node, "parameters"), ", ") + ")"
	case "ParameterList":
		return strings.Join(renderChildList(node, "parameters"), ", ")
	case "":
		return ""
	default:
		if name := stringField(node, "name"); name != "" {
			return fmt.Sprintf("<%s %s>", nodeType, name)
		}
		return fmt.Sprintf("<%s>", nodeType)
	}
}

// stringField returns the string value of the given node attribute, or an empty string.
func stringField(node map[string]any, key string) string {
	value, _ := node[key].(string)
	return value
}

// renderChild renders the node held by the given attribute, or an empty string if the attribute is absent or
// not a node.
func renderChild(node map[string]any, key string) string {
	child, ok := node[key].(map[string]any)
	if !ok {
		return ""
	}
	return renderNode(child)
}

// renderChildList renders each node within the list held by the given attribute, skipping entries which render
// to nothing.
func renderChildList(node map[string]any, key string) []string {
	children, ok := node[key].([]any)
	if !ok {
		// FunctionDefinition wraps its parameters in a ParameterList node rather than a bare list.
		if child, ok := node[key].(map[string]any); ok {
			if nested, ok := child["parameters"].([]any); ok {
				children = nested
			} else {
				return nil
			}
		} else {
			return nil
		}
	}
	rendered := make([]string, 0, len(children))
	for _, child := range children {
		if childNode, ok := child.(map[string]any); ok {
			if text := renderNode(childNode); text != "" {
				rendered = append(rendered, text)
			}
		}
	}
	return rendered
}
