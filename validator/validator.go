package validator

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/gradebox/gradebox/rules"
)

// RuleSyntaxError identifies the violation reported when the source does not
// parse. RuleInternalError is reported when the validator itself faults; it
// rejects rather than crashing the caller.
const (
	RuleSyntaxError   = "syntax_error"
	RuleInternalError = "internal_error"
)

// Violation is one rule breach at a source position. Lines are 1-based,
// columns 0-based, matching Python traceback conventions.
type Violation struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
}

// Verdict is the outcome of static validation. It is created fresh per
// submission and never mutated after return.
type Verdict struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
}

// Validator checks submitted source against an immutable rule set.
type Validator struct {
	set rules.Set
}

// New creates a Validator bound to the given rule set.
func New(set rules.Set) *Validator {
	return &Validator{set: set}
}

// Validate parses source and returns a verdict listing every rule violation
// found. A syntax error is itself a rejection carrying the parser's position.
func (v *Validator) Validate(source string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{
				Allowed: false,
				Violations: []Violation{{
					Line:    1,
					RuleID:  RuleInternalError,
					Message: fmt.Sprintf("validator fault: %v", r),
				}},
			}
		}
	}()

	src := []byte(source)
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return Verdict{
			Allowed: false,
			Violations: []Violation{{
				Line:    1,
				RuleID:  RuleInternalError,
				Message: "source could not be parsed",
			}},
		}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstErrorPosition(root)
		return Verdict{
			Allowed: false,
			Violations: []Violation{{
				Line:    line,
				Column:  col,
				RuleID:  RuleSyntaxError,
				Message: "invalid syntax",
			}},
		}
	}

	var violations []Violation
	v.walk(root, src, &violations)
	return Verdict{Allowed: len(violations) == 0, Violations: violations}
}

// walk visits every node, collecting violations for imports, call targets,
// and attribute accesses. Matching is on resolved module names, never local
// aliases, so "import os as harmless" is still caught.
func (v *Validator) walk(n *sitter.Node, src []byte, out *[]Violation) {
	switch n.Type() {
	case "import_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				v.checkModule(child, src, out)
			case "aliased_import":
				if name := child.ChildByFieldName("name"); name != nil {
					v.checkModule(name, src, out)
				}
			}
		}
	case "import_from_statement":
		if mod := n.ChildByFieldName("module_name"); mod != nil {
			v.checkModule(mod, src, out)
		}
	case "call":
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
			if rule, banned := v.set.BannedBuiltin(fn.Content(src)); banned {
				*out = append(*out, violationAt(fn, rule,
					fmt.Sprintf("call to builtin %q is not allowed", rule)))
			}
		}
	case "attribute":
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			if rule, banned := v.set.BannedAttribute(attr.Content(src)); banned {
				*out = append(*out, violationAt(attr, rule,
					fmt.Sprintf("access to attribute %q is not allowed", rule)))
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		v.walk(n.NamedChild(i), src, out)
	}
}

func (v *Validator) checkModule(name *sitter.Node, src []byte, out *[]Violation) {
	// Relative imports carry leading dots; they resolve within the
	// submission itself, so only the named root matters.
	module := strings.TrimLeft(name.Content(src), ".")
	if module == "" {
		return
	}
	if rule, banned := v.set.BannedModule(module); banned {
		*out = append(*out, violationAt(name, rule,
			fmt.Sprintf("import of module %q is not allowed", rule)))
	}
}

func violationAt(n *sitter.Node, ruleID, message string) Violation {
	p := n.StartPoint()
	return Violation{
		Line:    int(p.Row) + 1,
		Column:  int(p.Column),
		RuleID:  ruleID,
		Message: message,
	}
}

// firstErrorPosition locates the first ERROR or missing node so the verdict
// can point at the offending line.
func firstErrorPosition(n *sitter.Node) (line, col int) {
	if n.Type() == "ERROR" || n.IsMissing() {
		p := n.StartPoint()
		return int(p.Row) + 1, int(p.Column)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		return firstErrorPosition(child)
	}
	p := n.StartPoint()
	return int(p.Row) + 1, int(p.Column)
}
