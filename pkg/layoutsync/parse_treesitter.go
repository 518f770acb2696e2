//go:build cgo

package layoutsync

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsc "github.com/smacker/go-tree-sitter/c"
)

var (
	tagBodyRegexp    = regexp.MustCompile(`@kfly:id=(0x[0-9A-Fa-f]+)\s*,\s*cmd=([A-Za-z_][A-Za-z0-9_]*)`)
	packedWordRegexp = regexp.MustCompile(`\bpacked\b`)
	fieldNameRegexp  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type tagMatch struct {
	endByte uint32
	id      uint16
	cmdName string
}

type structDef struct {
	startByte uint32
	name      string
	packed    bool
	byteSize  int
	fields    []FieldDef
}

func parseTaggedFile(path string, scanRoot string) ([]TaggedStruct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	root := sitter.Parse(data, tsc.GetLanguage())
	tags, err := collectCommentTags(root, data, path)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}

	structs, err := collectTypeDefinitions(root, data, path)
	if err != nil {
		return nil, err
	}
	if len(structs) == 0 {
		return nil, fmt.Errorf("found @kfly tags in %s but no typedef struct definitions", path)
	}

	used := make(map[int]struct{})
	out := make([]TaggedStruct, 0, len(tags))
	for _, tag := range tags {
		idx := -1
		for i, st := range structs {
			if st.startByte >= tag.endByte {
				if _, ok := used[i]; ok {
					continue
				}
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("@kfly tag cmd=%s in %s has no following typedef struct", tag.cmdName, path)
		}
		used[idx] = struct{}{}
		st := structs[idx]

		source, relErr := filepath.Rel(scanRoot, path)
		if relErr != nil {
			source = path
		}
		out = append(out, TaggedStruct{
			Command:  tag.cmdName,
			Source:   filepath.ToSlash(source),
			ByteSize: st.byteSize,
			Fields:   st.fields,
		})
	}
	return out, nil
}

func collectCommentTags(root *sitter.Node, data []byte, path string) ([]tagMatch, error) {
	tags := make([]tagMatch, 0)
	err := walkNode(root, func(node *sitter.Node) error {
		if node.Type() != "comment" {
			return nil
		}
		comment := node.Content(data)
		matches := tagBodyRegexp.FindAllStringSubmatchIndex(comment, -1)
		if len(matches) == 0 {
			return nil
		}
		if len(matches) > 1 {
			line := node.StartPoint().Row + 1
			return fmt.Errorf("multiple @kfly tags in one comment block at %s:%d", path, line)
		}
		m := matches[0]
		idStr := comment[m[2]:m[3]]
		cmdName := comment[m[4]:m[5]]
		id64, err := strconv.ParseUint(idStr, 0, 16)
		if err != nil {
			line := node.StartPoint().Row + 1
			return fmt.Errorf("invalid packet id %q in %s:%d", idStr, path, line)
		}
		if id64 > 0xFF {
			line := node.StartPoint().Row + 1
			return fmt.Errorf("packet id out of range (%s) in %s:%d", idStr, path, line)
		}
		tagEnd := node.StartByte() + uint32(m[1])
		tags = append(tags, tagMatch{endByte: tagEnd, id: uint16(id64), cmdName: cmdName})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].endByte == tags[j].endByte {
			return tags[i].id < tags[j].id
		}
		return tags[i].endByte < tags[j].endByte
	})
	return tags, nil
}

func collectTypeDefinitions(root *sitter.Node, data []byte, path string) ([]structDef, error) {
	structs := make([]structDef, 0)
	err := walkNode(root, func(node *sitter.Node) error {
		if node.Type() != "type_definition" {
			return nil
		}
		st, ok, err := parseTypeDefinitionNode(node, data, path)
		if err != nil {
			return err
		}
		if ok {
			structs = append(structs, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(structs, func(i, j int) bool { return structs[i].startByte < structs[j].startByte })
	return structs, nil
}

func parseTypeDefinitionNode(node *sitter.Node, data []byte, path string) (structDef, bool, error) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil || typeNode.IsNull() {
		return structDef{}, false, nil
	}
	structNode := findFirstNodeByType(typeNode, "struct_specifier")
	if structNode == nil || structNode.IsNull() {
		return structDef{}, false, nil
	}
	bodyNode := structNode.ChildByFieldName("body")
	if bodyNode == nil || bodyNode.IsNull() {
		return structDef{}, false, nil
	}

	declNodes := childNodesByFieldName(node, "declarator")
	if len(declNodes) != 1 {
		line := node.StartPoint().Row + 1
		return structDef{}, false, fmt.Errorf("typedef struct in %s:%d must have exactly one declarator", path, line)
	}
	name, err := extractDeclaratorName(declNodes[0], data)
	if err != nil {
		line := node.StartPoint().Row + 1
		return structDef{}, false, fmt.Errorf("invalid typedef struct declarator in %s:%d: %w", path, line, err)
	}

	packed := packedWordRegexp.MatchString(strings.ToLower(node.Content(data)))
	fields, byteSize, err := parseStructFieldsFromAST(bodyNode, data, packed, path, name)
	if err != nil {
		return structDef{}, false, err
	}
	return structDef{startByte: node.StartByte(), name: name, packed: packed, byteSize: byteSize, fields: fields}, true, nil
}

func parseStructFieldsFromAST(body *sitter.Node, data []byte, packed bool, path, structName string) ([]FieldDef, int, error) {
	parsed := make([]structField, 0)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child == nil || child.IsNull() || child.Type() != "field_declaration" {
			continue
		}
		f, err := parseFieldDeclarationNode(child, data, path, structName)
		if err != nil {
			return nil, 0, err
		}
		parsed = append(parsed, f)
	}
	if len(parsed) == 0 {
		return nil, 0, fmt.Errorf("struct %s in %s has no supported fields", structName, path)
	}

	fields := make([]FieldDef, 0, len(parsed))
	offset := 0
	maxAlign := 1
	for _, f := range parsed {
		align := 1
		if !packed {
			align = f.size
			if align > maxAlign {
				maxAlign = align
			}
			offset = alignUp(offset, align)
		}
		fields = append(fields, FieldDef{Name: f.name, CType: f.ctype, Offset: offset, Size: f.size})
		offset += f.size
	}
	total := offset
	if !packed {
		total = alignUp(total, maxAlign)
	}
	return fields, total, nil
}

type structField struct {
	name, ctype string
	size        int
}

func parseFieldDeclarationNode(node *sitter.Node, data []byte, path, structName string) (structField, error) {
	if hasNodeType(node, "bitfield_clause") {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("unsupported bitfield in %s (%s) at line %d", path, structName, line)
	}
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil || typeNode.IsNull() {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("field declaration missing type in %s (%s) at line %d", path, structName, line)
	}
	if typeNode.Type() == "struct_specifier" || typeNode.Type() == "union_specifier" {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("unsupported nested declaration in %s (%s) at line %d", path, structName, line)
	}

	ctype := normalizeCType(typeNode.Content(data))
	size, ok := cTypeSize(ctype)
	if !ok {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("unsupported c type in %s (%s) at line %d: %q", path, structName, line, ctype)
	}

	decls := childNodesByFieldName(node, "declarator")
	if len(decls) != 1 {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("unsupported multi declarator in %s (%s) at line %d", path, structName, line)
	}
	decl := decls[0]
	if hasNodeType(decl, "pointer_declarator") || hasNodeType(decl, "array_declarator") || hasNodeType(decl, "function_declarator") {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("unsupported field syntax in %s (%s) at line %d", path, structName, line)
	}

	nameNode := findFirstNodeByType(decl, "field_identifier")
	if nameNode == nil || nameNode.IsNull() {
		nameNode = findFirstNodeByType(decl, "identifier")
	}
	if nameNode == nil || nameNode.IsNull() {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("invalid field declarator in %s (%s) at line %d", path, structName, line)
	}
	name := strings.TrimSpace(nameNode.Content(data))
	if !fieldNameRegexp.MatchString(name) {
		line := node.StartPoint().Row + 1
		return structField{}, fmt.Errorf("invalid field name in %s (%s) at line %d: %q", path, structName, line, name)
	}
	return structField{name: name, ctype: ctype, size: size}, nil
}

func extractDeclaratorName(node *sitter.Node, data []byte) (string, error) {
	if hasNodeType(node, "pointer_type_declarator") || hasNodeType(node, "array_declarator") || hasNodeType(node, "function_declarator") {
		return "", fmt.Errorf("unsupported typedef declarator %q", node.Type())
	}
	nameNode := findFirstNodeByType(node, "type_identifier")
	if nameNode == nil || nameNode.IsNull() {
		nameNode = findFirstNodeByType(node, "identifier")
	}
	if nameNode == nil || nameNode.IsNull() {
		return "", fmt.Errorf("missing type identifier")
	}
	name := strings.TrimSpace(nameNode.Content(data))
	if !fieldNameRegexp.MatchString(name) {
		return "", fmt.Errorf("invalid type identifier %q", name)
	}
	return name, nil
}

func findFirstNodeByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil || node.IsNull() {
		return nil
	}
	if node.Type() == nodeType {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := findFirstNodeByType(node.Child(i), nodeType); found != nil {
			return found
		}
	}
	return nil
}

func hasNodeType(node *sitter.Node, nodeType string) bool {
	return findFirstNodeByType(node, nodeType) != nil
}

func childNodesByFieldName(node *sitter.Node, field string) []*sitter.Node {
	out := make([]*sitter.Node, 0)
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) == field {
			out = append(out, node.Child(i))
		}
	}
	return out
}

func walkNode(node *sitter.Node, visit func(*sitter.Node) error) error {
	if node == nil || node.IsNull() {
		return nil
	}
	if err := visit(node); err != nil {
		return err
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if err := walkNode(node.Child(i), visit); err != nil {
			return err
		}
	}
	return nil
}

func normalizeCType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "\t", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	s = strings.TrimPrefix(s, "const ")
	s = strings.TrimPrefix(s, "volatile ")
	return strings.TrimSpace(s)
}

func cTypeSize(raw string) (int, bool) {
	switch normalizeCType(raw) {
	case "float":
		return 4, true
	case "double":
		return 8, true
	case "int8_t", "uint8_t", "bool", "_bool":
		return 1, true
	case "int16_t", "uint16_t":
		return 2, true
	case "int32_t", "uint32_t":
		return 4, true
	case "int64_t", "uint64_t":
		return 8, true
	default:
		return 0, false
	}
}

func alignUp(value, align int) int {
	if align <= 1 {
		return value
	}
	rem := value % align
	if rem == 0 {
		return value
	}
	return value + (align - rem)
}
