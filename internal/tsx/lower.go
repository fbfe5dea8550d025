package tsx

import (
	"sort"
	"strings"

	"github.com/mvp-joe/rendercheck/internal/syntax"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// lowerer converts a tree-sitter concrete syntax tree into a syntax.Tree.
//
// Lowering runs in two passes. The first pass walks the CST once, emitting
// definitions, props types, members, elements, attributes and value
// references, and records everything that needs a complete symbol table
// (props types, element names, references). The second pass resolves those
// against the unit's declarations.
type lowerer struct {
	path  string
	src   []byte
	types *typeClassifier
	tree  *syntax.Tree
	tags  map[syntax.NodeID][]syntax.Tag

	defs      map[string]syntax.NodeID
	imports   map[string]bool
	typeDecls map[string]*typeDecl
	bindings  map[syntax.NodeID]*binding
	props     []pendingProps
	elements  []syntax.NodeID
	refs      []syntax.NodeID

	resolved map[syntax.NodeID]syntax.NodeID
	members  map[syntax.NodeID][]syntax.NodeID
	children map[syntax.NodeID]syntax.NodeID
}

type typeDecl struct {
	id      syntax.NodeID
	members []syntax.NodeID
	extends []*sitter.Node
	alias   *sitter.Node
}

// binding records how a definition names its props.
type binding struct {
	locals  map[string]string // local identifier -> prop name
	whole   map[string]bool   // identifiers bound to the whole props object
	derived []derivedBinding
}

// derivedBinding is a destructuring inside the body, e.g. const { a } = props.
type derivedBinding struct {
	source string
	local  string
	prop   string
}

type pendingProps struct {
	def      syntax.NodeID
	typeNode *sitter.Node
}

func newLowerer(path string, src []byte, types *typeClassifier) *lowerer {
	return &lowerer{
		path:      path,
		src:       src,
		types:     types,
		tree:      syntax.NewTree(path),
		tags:      make(map[syntax.NodeID][]syntax.Tag),
		defs:      make(map[string]syntax.NodeID),
		imports:   make(map[string]bool),
		typeDecls: make(map[string]*typeDecl),
		bindings:  make(map[syntax.NodeID]*binding),
		resolved:  make(map[syntax.NodeID]syntax.NodeID),
		members:   make(map[syntax.NodeID][]syntax.NodeID),
		children:  make(map[syntax.NodeID]syntax.NodeID),
	}
}

// lowerProgram runs the first pass over the program node.
func (l *lowerer) lowerProgram(root *sitter.Node) {
	forNamedChildren(root, func(c *sitter.Node) {
		if c.Kind() == "import_statement" {
			l.collectImports(c)
		}
	})
	l.lowerChildren(root, l.tree.Root())
}

func (l *lowerer) lowerChildren(n *sitter.Node, parent syntax.NodeID) {
	forNamedChildren(n, func(c *sitter.Node) {
		l.lowerNode(c, parent)
	})
}

// lowerNode lowers a node in statement or declaration position.
func (l *lowerer) lowerNode(n *sitter.Node, parent syntax.NodeID) {
	switch n.Kind() {
	case "comment", "import_statement":
		return
	case "function_declaration", "generator_function_declaration":
		l.lowerFunction(n, n, n, parent, l.text(n.ChildByFieldName("name")), nil)
	case "class_declaration", "abstract_class_declaration":
		l.lowerClass(n, n, n, parent, l.text(n.ChildByFieldName("name")))
	case "lexical_declaration", "variable_declaration":
		l.lowerVariables(n, parent)
	case "interface_declaration":
		l.lowerInterface(n, parent)
	case "type_alias_declaration":
		l.lowerTypeAlias(n, parent)
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		l.lowerElement(n, parent)
	case "return_statement":
		if e := firstNamedChild(n); e != nil {
			l.lowerValue(e, parent)
		}
	case "method_definition", "public_field_definition":
		if tags := l.docTags(n); len(tags) > 0 {
			id := l.tree.Add(parent, syntax.Node{
				Kind: syntax.KindDecl,
				Name: l.text(n.ChildByFieldName("name")),
				Span: l.span(n),
			})
			l.tags[id] = tags
			parent = id
		}
		l.lowerChildren(n, parent)
	default:
		l.lowerChildren(n, parent)
	}
}

// lowerFunction emits a function definition. doc is the node whose leading
// comment documents it; spanNode locates it.
func (l *lowerer) lowerFunction(fn, doc, spanNode *sitter.Node, parent syntax.NodeID, name string, declType *sitter.Node) {
	id := l.addDefinition(parent, name, syntax.FlavorFunction, doc, spanNode)
	l.bindParams(id, fn, declType)

	body := fn.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Kind() == "statement_block" {
		l.lowerChildren(body, id)
		return
	}
	l.lowerValue(body, id)
}

func (l *lowerer) lowerClass(cls, doc, spanNode *sitter.Node, parent syntax.NodeID, name string) {
	id := l.addDefinition(parent, name, syntax.FlavorClass, doc, spanNode)
	b := l.binding(id)
	b.whole["this.props"] = true

	forNamedChildren(cls, func(c *sitter.Node) {
		if c.Kind() != "class_heritage" {
			return
		}
		forNamedChildren(c, func(clause *sitter.Node) {
			if clause.Kind() != "extends_clause" {
				return
			}
			if args := clause.ChildByFieldName("type_arguments"); args != nil {
				if t := firstNamedChild(args); t != nil {
					l.props = append(l.props, pendingProps{def: id, typeNode: t})
				}
			}
		})
	})

	if body := cls.ChildByFieldName("body"); body != nil {
		l.lowerChildren(body, id)
	}
}

func (l *lowerer) addDefinition(parent syntax.NodeID, name string, flavor syntax.Flavor, doc, spanNode *sitter.Node) syntax.NodeID {
	id := l.tree.Add(parent, syntax.Node{
		Kind:   syntax.KindDefinition,
		Name:   name,
		Span:   l.span(spanNode),
		Flavor: flavor,
	})
	if tags := l.docTags(doc); len(tags) > 0 {
		l.tags[id] = tags
	}
	if _, exists := l.defs[name]; name != "" && !exists {
		l.defs[name] = id
	}
	return id
}

func (l *lowerer) lowerVariables(n *sitter.Node, parent syntax.NodeID) {
	first := true
	forNamedChildren(n, func(d *sitter.Node) {
		if d.Kind() != "variable_declarator" {
			return
		}
		var doc *sitter.Node
		if first {
			doc = n
			first = false
		}

		nameNode := d.ChildByFieldName("name")
		value := d.ChildByFieldName("value")

		if nameNode != nil && nameNode.Kind() == "identifier" && value != nil {
			name := l.text(nameNode)
			if fn := definitionFunction(value); fn != nil {
				l.lowerFunction(fn, doc, d, parent, name, d.ChildByFieldName("type"))
				return
			}
			if value.Kind() == "class" {
				l.lowerClass(value, doc, d, parent, name)
				return
			}
		}

		if nameNode != nil && nameNode.Kind() == "object_pattern" && value != nil {
			l.recordDestructure(parent, nameNode, value)
		}

		target := parent
		if tags := l.docTags(doc); len(tags) > 0 {
			target = l.tree.Add(parent, syntax.Node{
				Kind: syntax.KindDecl,
				Name: l.text(nameNode),
				Span: l.span(d),
			})
			l.tags[target] = tags
		}
		if value != nil {
			l.lowerNode(value, target)
		}
	})
}

// definitionFunction returns the function that a variable initializer
// defines, looking through wrappers such as memo(...) and forwardRef(...).
func definitionFunction(value *sitter.Node) *sitter.Node {
	switch value.Kind() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return value
	case "call_expression":
		args := value.ChildByFieldName("arguments")
		if args == nil {
			return nil
		}
		var found *sitter.Node
		forNamedChildren(args, func(a *sitter.Node) {
			if found == nil {
				found = definitionFunction(a)
			}
		})
		return found
	case "parenthesized_expression", "as_expression", "satisfies_expression":
		if inner := firstNamedChild(value); inner != nil {
			return definitionFunction(inner)
		}
	}
	return nil
}

func (l *lowerer) lowerInterface(n *sitter.Node, parent syntax.NodeID) {
	name := l.text(n.ChildByFieldName("name"))
	id := l.tree.Add(parent, syntax.Node{Kind: syntax.KindTypeDecl, Name: name, Span: l.span(n)})
	if tags := l.docTags(n); len(tags) > 0 {
		l.tags[id] = tags
	}

	decl := &typeDecl{id: id}
	forNamedChildren(n, func(c *sitter.Node) {
		if c.Kind() == "extends_type_clause" {
			forNamedChildren(c, func(t *sitter.Node) {
				decl.extends = append(decl.extends, t)
			})
		}
	})
	if body := n.ChildByFieldName("body"); body != nil {
		decl.members = l.lowerMembers(body, id)
	}

	// Interfaces with the same name merge.
	if existing, ok := l.typeDecls[name]; ok {
		existing.members = append(existing.members, decl.members...)
		existing.extends = append(existing.extends, decl.extends...)
		return
	}
	l.typeDecls[name] = decl
}

func (l *lowerer) lowerTypeAlias(n *sitter.Node, parent syntax.NodeID) {
	name := l.text(n.ChildByFieldName("name"))
	id := l.tree.Add(parent, syntax.Node{Kind: syntax.KindTypeDecl, Name: name, Span: l.span(n)})
	if tags := l.docTags(n); len(tags) > 0 {
		l.tags[id] = tags
	}

	decl := &typeDecl{id: id}
	if value := n.ChildByFieldName("value"); value != nil {
		if value.Kind() == "object_type" {
			decl.members = l.lowerMembers(value, id)
		} else {
			decl.alias = value
		}
	}
	if _, ok := l.typeDecls[name]; !ok {
		l.typeDecls[name] = decl
	}
}

// lowerMembers lowers the property signatures of an object type body.
func (l *lowerer) lowerMembers(body *sitter.Node, parent syntax.NodeID) []syntax.NodeID {
	var ids []syntax.NodeID
	forNamedChildren(body, func(c *sitter.Node) {
		switch c.Kind() {
		case "property_signature":
			var typeText string
			if ann := c.ChildByFieldName("type"); ann != nil {
				typeText = strings.TrimSpace(l.text(firstNamedChild(ann)))
			}
			id := l.tree.Add(parent, syntax.Node{
				Kind:     syntax.KindMember,
				Name:     strings.Trim(l.text(c.ChildByFieldName("name")), `"'`),
				Span:     l.span(c),
				TypeText: typeText,
			})
			if tags := l.docTags(c); len(tags) > 0 {
				l.tags[id] = tags
			}
			ids = append(ids, id)
		case "comment":
		default:
			if tags := l.docTags(c); len(tags) > 0 {
				id := l.tree.Add(parent, syntax.Node{
					Kind: syntax.KindDecl,
					Name: l.text(c.ChildByFieldName("name")),
					Span: l.span(c),
				})
				l.tags[id] = tags
			}
		}
	})
	return ids
}

// lowerElement lowers a JSX element, self-closing element or fragment.
// Element children become the value of an implicit "children" attribute.
func (l *lowerer) lowerElement(n *sitter.Node, parent syntax.NodeID) {
	var open *sitter.Node
	switch n.Kind() {
	case "jsx_self_closing_element":
		open = n
	case "jsx_element":
		open = n.ChildByFieldName("open_tag")
	}

	var name string
	if open != nil {
		name = compactName(l.text(open.ChildByFieldName("name")))
	}

	id := l.tree.Add(parent, syntax.Node{Kind: syntax.KindElement, Name: name, Span: l.span(n)})
	l.markDefinitions(parent)
	if name != "" {
		l.elements = append(l.elements, id)
	}

	if open != nil {
		forNamedChildren(open, func(a *sitter.Node) {
			if a.Kind() == "jsx_attribute" {
				l.lowerAttribute(a, id)
			}
		})
	}

	if n.Kind() == "jsx_self_closing_element" {
		return
	}

	children := syntax.NoNode
	forNamedChildren(n, func(c *sitter.Node) {
		switch c.Kind() {
		case "jsx_opening_element", "jsx_closing_element", "jsx_text", "html_character_reference", "comment":
			return
		}
		if children == syntax.NoNode {
			children = l.tree.Add(id, syntax.Node{
				Kind:     syntax.KindAttribute,
				Name:     "children",
				Span:     l.span(c),
				Implicit: true,
			})
		}
		switch c.Kind() {
		case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
			l.lowerElement(c, children)
		case "jsx_expression":
			if e := firstNamedChild(c); e != nil {
				l.lowerValue(e, children)
			}
		default:
			l.lowerNode(c, children)
		}
	})
}

func (l *lowerer) lowerAttribute(a *sitter.Node, element syntax.NodeID) {
	if a.NamedChildCount() == 0 {
		return
	}
	id := l.tree.Add(element, syntax.Node{
		Kind: syntax.KindAttribute,
		Name: l.text(a.NamedChild(0)),
		Span: l.span(a),
	})
	if a.NamedChildCount() < 2 {
		return
	}
	v := a.NamedChild(1)
	switch v.Kind() {
	case "jsx_expression":
		if e := firstNamedChild(v); e != nil {
			l.lowerValue(e, id)
		}
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		l.lowerElement(v, id)
	}
}

// lowerValue lowers an expression whose value may end up rendered: markup,
// references to props, and the branches of conditionals that select them.
func (l *lowerer) lowerValue(n *sitter.Node, parent syntax.NodeID) {
	switch n.Kind() {
	case "identifier", "member_expression":
		id := l.tree.Add(parent, syntax.Node{
			Kind: syntax.KindReference,
			Name: compactName(l.text(n)),
			Span: l.span(n),
		})
		l.refs = append(l.refs, id)
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		l.lowerElement(n, parent)
	case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression", "jsx_expression":
		if e := firstNamedChild(n); e != nil {
			l.lowerValue(e, parent)
		}
	case "ternary_expression":
		if c := n.ChildByFieldName("consequence"); c != nil {
			l.lowerValue(c, parent)
		}
		if a := n.ChildByFieldName("alternative"); a != nil {
			l.lowerValue(a, parent)
		}
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		if op == nil {
			return
		}
		switch op.Kind() {
		case "&&":
			if r := n.ChildByFieldName("right"); r != nil {
				l.lowerValue(r, parent)
			}
		case "||", "??":
			if left := n.ChildByFieldName("left"); left != nil {
				l.lowerValue(left, parent)
			}
			if r := n.ChildByFieldName("right"); r != nil {
				l.lowerValue(r, parent)
			}
		}
	case "array":
		forNamedChildren(n, func(c *sitter.Node) {
			l.lowerValue(c, parent)
		})
	case "call_expression":
		if args := n.ChildByFieldName("arguments"); args != nil {
			forNamedChildren(args, func(c *sitter.Node) {
				l.lowerValue(c, parent)
			})
		}
	case "arrow_function", "function_expression", "function":
		body := n.ChildByFieldName("body")
		if body == nil {
			return
		}
		if body.Kind() == "statement_block" {
			l.lowerChildren(body, parent)
			return
		}
		l.lowerValue(body, parent)
	case "spread_element", "string", "template_string", "number", "true", "false", "null", "undefined", "comment":
		return
	default:
		l.lowerNode(n, parent)
	}
}

// markDefinitions flags every definition enclosing id as containing markup.
func (l *lowerer) markDefinitions(id syntax.NodeID) {
	for cur := id; cur != syntax.NoNode; {
		n := l.tree.Node(cur)
		if n.Kind == syntax.KindDefinition {
			n.HasMarkup = true
		}
		cur = n.Parent
	}
}

func (l *lowerer) collectImports(n *sitter.Node) {
	forNamedChildren(n, func(clause *sitter.Node) {
		if clause.Kind() != "import_clause" {
			return
		}
		forNamedChildren(clause, func(c *sitter.Node) {
			switch c.Kind() {
			case "identifier":
				l.imports[l.text(c)] = true
			case "namespace_import":
				if id := firstNamedChild(c); id != nil {
					l.imports[l.text(id)] = true
				}
			case "named_imports":
				forNamedChildren(c, func(spec *sitter.Node) {
					if spec.Kind() != "import_specifier" {
						return
					}
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = spec.ChildByFieldName("name")
					}
					l.imports[l.text(local)] = true
				})
			}
		})
	})
}

// docTags returns the tags of the JSDoc block directly preceding n. Exported
// declarations are documented on the export statement.
func (l *lowerer) docTags(n *sitter.Node) []syntax.Tag {
	if n == nil {
		return nil
	}
	target := n
	if p := n.Parent(); p != nil && p.Kind() == "export_statement" {
		target = p
	}
	prev := target.PrevNamedSibling()
	if prev == nil || prev.Kind() != "comment" {
		return nil
	}
	text := l.text(prev)
	if !isDocComment(text) {
		return nil
	}
	pos := prev.StartPosition()
	return parseDocTags(l.path, text, pos.Row, pos.Column)
}

// bindParams records how a function names its props parameter and queues
// the parameter's declared type for member resolution.
func (l *lowerer) bindParams(def syntax.NodeID, fn, declType *sitter.Node) {
	b := l.binding(def)

	var typeNode *sitter.Node
	if param := firstParam(fn); param != nil {
		pattern := param
		if param.Kind() == "required_parameter" || param.Kind() == "optional_parameter" {
			pattern = param.ChildByFieldName("pattern")
			if ann := param.ChildByFieldName("type"); ann != nil {
				typeNode = firstNamedChild(ann)
			}
		}
		l.bindPattern(b, pattern)
	}

	// const Card: FC<CardProps> = (...) => ...
	if typeNode == nil && declType != nil {
		if t := firstNamedChild(declType); t != nil && t.Kind() == "generic_type" {
			if args := t.ChildByFieldName("type_arguments"); args != nil {
				typeNode = firstNamedChild(args)
			}
		}
	}

	if typeNode != nil {
		l.props = append(l.props, pendingProps{def: def, typeNode: typeNode})
	}
}

func firstParam(fn *sitter.Node) *sitter.Node {
	if p := fn.ChildByFieldName("parameter"); p != nil {
		return p
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var first *sitter.Node
	forNamedChildren(params, func(c *sitter.Node) {
		if first == nil && c.Kind() != "comment" {
			first = c
		}
	})
	return first
}

func (l *lowerer) bindPattern(b *binding, pattern *sitter.Node) {
	if pattern == nil {
		return
	}
	switch pattern.Kind() {
	case "identifier":
		b.whole[l.text(pattern)] = true
	case "object_pattern":
		l.bindObjectPattern(b.locals, pattern)
	case "assignment_pattern":
		l.bindPattern(b, pattern.ChildByFieldName("left"))
	}
}

func (l *lowerer) bindObjectPattern(locals map[string]string, pattern *sitter.Node) {
	forNamedChildren(pattern, func(c *sitter.Node) {
		switch c.Kind() {
		case "shorthand_property_identifier_pattern":
			name := l.text(c)
			locals[name] = name
		case "object_assignment_pattern":
			if left := c.ChildByFieldName("left"); left != nil {
				name := l.text(left)
				locals[name] = name
			}
		case "pair_pattern":
			key := strings.Trim(l.text(c.ChildByFieldName("key")), `"'`)
			value := c.ChildByFieldName("value")
			if value != nil && value.Kind() == "assignment_pattern" {
				value = value.ChildByFieldName("left")
			}
			if value != nil && value.Kind() == "identifier" {
				locals[l.text(value)] = key
			}
		}
	})
}

func (l *lowerer) recordDestructure(parent syntax.NodeID, pattern, value *sitter.Node) {
	def := l.tree.Enclosing(parent, syntax.KindDefinition)
	if def == syntax.NoNode {
		return
	}
	locals := make(map[string]string)
	l.bindObjectPattern(locals, pattern)

	b := l.binding(def)
	source := compactName(l.text(value))
	for _, local := range sortedKeys(locals) {
		b.derived = append(b.derived, derivedBinding{source: source, local: local, prop: locals[local]})
	}
}

func (l *lowerer) binding(def syntax.NodeID) *binding {
	b, ok := l.bindings[def]
	if !ok {
		b = &binding{locals: make(map[string]string), whole: make(map[string]bool)}
		l.bindings[def] = b
	}
	return b
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(l.src[n.StartByte():n.EndByte()])
}

func (l *lowerer) span(n *sitter.Node) syntax.Span {
	if n == nil {
		return syntax.Span{File: l.path}
	}
	start, end := n.StartPosition(), n.EndPosition()
	return syntax.Span{
		File:      l.path,
		Line:      int(start.Row) + 1,
		Column:    int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column) + 1,
	}
}

// compactName removes whitespace and optional chaining from a dotted name.
func compactName(s string) string {
	s = strings.Join(strings.Fields(s), "")
	return strings.ReplaceAll(s, "?.", ".")
}

func forNamedChildren(n *sitter.Node, fn func(c *sitter.Node)) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(uint(i)); c != nil {
			fn(c)
		}
	}
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	var first *sitter.Node
	forNamedChildren(n, func(c *sitter.Node) {
		if first == nil && c.Kind() != "comment" {
			first = c
		}
	})
	return first
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
