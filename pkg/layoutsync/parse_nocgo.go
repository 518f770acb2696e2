//go:build !cgo

package layoutsync

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	tagBodyRegexp    = regexp.MustCompile(`@kfly:id=(0x[0-9A-Fa-f]+)\s*,\s*cmd=([A-Za-z_][A-Za-z0-9_]*)`)
	commentRegexp    = regexp.MustCompile(`(?m)//[^\r\n]*|(?s:/\*.*?\*/)`)
	structRegexp     = regexp.MustCompile(`(?s)typedef\s+struct\s*((?:__attribute__\s*\(\(\s*packed\s*\)\)\s*)?)\{(.*?)\}\s*((?:__attribute__\s*\(\(\s*packed\s*\)\)\s*)?)([A-Za-z_][A-Za-z0-9_]*)\s*;`)
	identRegexp      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	blockCommentsRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentsRe   = regexp.MustCompile(`(?m)//.*$`)
	packedWordRegexp = regexp.MustCompile(`\bpacked\b`)
)

type structMatch struct {
	start      int
	body       string
	packedAttr string
	name       string
}

type tagMatch struct {
	endByte int
	id      uint16
	cmdName string
}

func parseTaggedFile(path string, scanRoot string) ([]TaggedStruct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)

	tags, err := extractTags(content, path)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}

	rawStructs := structRegexp.FindAllStringSubmatchIndex(content, -1)
	if len(rawStructs) == 0 {
		return nil, fmt.Errorf("found @kfly tags in %s but no typedef struct definitions", path)
	}
	structs := make([]structMatch, 0, len(rawStructs))
	for _, m := range rawStructs {
		structs = append(structs, structMatch{
			start:      m[0],
			body:       content[m[4]:m[5]],
			packedAttr: content[m[2]:m[3]] + content[m[6]:m[7]],
			name:       content[m[8]:m[9]],
		})
	}

	used := make(map[int]struct{})
	out := make([]TaggedStruct, 0, len(tags))
	for _, tag := range tags {
		idx := -1
		for i, st := range structs {
			if st.start >= tag.endByte {
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
		packed := packedWordRegexp.MatchString(strings.ToLower(st.packedAttr))
		fields, byteSize, err := parseStructFields(st.body, packed, path, st.name)
		if err != nil {
			return nil, err
		}

		source, relErr := filepath.Rel(scanRoot, path)
		if relErr != nil {
			source = path
		}
		out = append(out, TaggedStruct{
			Command:  tag.cmdName,
			Source:   filepath.ToSlash(source),
			ByteSize: byteSize,
			Fields:   fields,
		})
	}
	return out, nil
}

func extractTags(content, path string) ([]tagMatch, error) {
	comments := commentRegexp.FindAllStringIndex(content, -1)
	tags := make([]tagMatch, 0)
	for _, cm := range comments {
		comment := content[cm[0]:cm[1]]
		matches := tagBodyRegexp.FindAllStringSubmatchIndex(comment, -1)
		if len(matches) == 0 {
			continue
		}
		if len(matches) > 1 {
			return nil, fmt.Errorf("multiple @kfly tags in one comment block in %s", path)
		}
		m := matches[0]
		idStr := comment[m[2]:m[3]]
		cmdName := comment[m[4]:m[5]]
		id64, err := strconv.ParseUint(idStr, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid packet id %q in %s", idStr, path)
		}
		if id64 > 0xFF {
			return nil, fmt.Errorf("packet id out of range (%s) in %s", idStr, path)
		}
		tags = append(tags, tagMatch{endByte: cm[0] + m[1], id: uint16(id64), cmdName: cmdName})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].endByte == tags[j].endByte {
			return tags[i].id < tags[j].id
		}
		return tags[i].endByte < tags[j].endByte
	})
	return tags, nil
}

func parseStructFields(body string, packed bool, path, structName string) ([]FieldDef, int, error) {
	clean := stripComments(body)
	segments := strings.Split(clean, ";")

	type parsedField struct {
		name, ctype string
		size        int
	}
	parsed := make([]parsedField, 0)
	for _, seg := range segments {
		line := strings.TrimSpace(seg)
		if line == "" {
			continue
		}
		if strings.ContainsAny(line, "*[]:") {
			return nil, 0, fmt.Errorf("unsupported field syntax in %s (%s): %q", path, structName, line)
		}
		if strings.Contains(line, "union") || strings.Contains(line, "struct") {
			return nil, 0, fmt.Errorf("unsupported nested declaration in %s (%s): %q", path, structName, line)
		}

		tokens := strings.Fields(line)
		if len(tokens) < 2 {
			return nil, 0, fmt.Errorf("invalid field declaration in %s (%s): %q", path, structName, line)
		}
		name := tokens[len(tokens)-1]
		ctype := strings.Join(tokens[:len(tokens)-1], " ")
		if !identRegexp.MatchString(name) {
			return nil, 0, fmt.Errorf("invalid field name in %s (%s): %q", path, structName, name)
		}
		size, ok := cTypeSize(ctype)
		if !ok {
			return nil, 0, fmt.Errorf("unsupported c type in %s (%s): %q", path, structName, ctype)
		}
		parsed = append(parsed, parsedField{name: name, ctype: normalizeCType(ctype), size: size})
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

func stripComments(in string) string {
	out := blockCommentsRe.ReplaceAllString(in, "")
	out = lineCommentsRe.ReplaceAllString(out, "")
	return out
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
