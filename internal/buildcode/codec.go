// Package buildcode implements the opaque, shareable build-code wire
// format inherited from the game's ecosystem: Base64 (URL-safe)
// wrapping a raw-deflate stream whose expansion is an XML document
// with a fixed <PathOfBuilding> schema. This is glue code — it does
// not interpret the XML beyond the passive-allocation fragment the
// optimizer needs to read and rewrite.
//
// Encode never re-marshals the document: it splices only the
// attributes the optimizer actually changed (Build's level/className/
// ascendClassName, Tree's nodes) back into the original decoded XML
// bytes. Every other element and attribute — Items, Skills, Config,
// TreeView, and anything else the schema carries that this package
// doesn't model — is reproduced byte-for-byte, and an unchanged build
// returns the original build code untouched.
package buildcode

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
)

// pathOfBuildingDoc is used only to read values out of the decoded XML;
// Encode never marshals it back out.
type pathOfBuildingDoc struct {
	XMLName xml.Name    `xml:"PathOfBuilding"`
	Build   buildMeta   `xml:"Build"`
	Tree    passiveTree `xml:"Tree"`
}

type buildMeta struct {
	Level      int    `xml:"level,attr"`
	ClassName  string `xml:"className,attr"`
	Ascendancy string `xml:"ascendClassName,attr"`
}

type passiveTree struct {
	ActiveSpec int    `xml:"activeSpec,attr"`
	Nodes      string `xml:"nodes,attr"`
}

// minimalDocTemplate is the base document Encode splices into when
// called with a zero-value Envelope (no prior decode to anchor to) —
// e.g. when a caller is constructing a build code from scratch rather
// than round-tripping one.
const minimalDocTemplate = `<?xml version="1.0"?>` + "\n" +
	`<PathOfBuilding>` +
	`<Build level="1" className="" ascendClassName=""></Build>` +
	`<Tree activeSpec="0" nodes=""></Tree>` +
	`<Items></Items>` +
	`<Skills></Skills>` +
	`<Config></Config>` +
	`</PathOfBuilding>`

// Envelope carries the original decoded XML bytes and the metadata
// values read out of them, so Encode can tell exactly which
// attributes changed and splice only those back in.
type Envelope struct {
	raw        []byte
	origCode   string
	origLevel  int
	origClass  string
	origAscend string
	origNodes  map[int]bool
}

// Decode parses a Base64/deflate/XML build code into a build.Build. The
// original XML bytes and code string are retained on the side so
// Encode can reproduce everything it doesn't change, unchanged.
func Decode(code string) (build.Build, *Envelope, error) {
	trimmed := strings.TrimSpace(code)
	raw, err := decodeBase64(trimmed)
	if err != nil {
		return build.Build{}, nil, fmt.Errorf("buildcode: base64 decode: %w", err)
	}

	xmlBytes, err := inflate(raw)
	if err != nil {
		return build.Build{}, nil, fmt.Errorf("buildcode: inflate: %w", err)
	}

	var doc pathOfBuildingDoc
	if err := xml.Unmarshal(xmlBytes, &doc); err != nil {
		return build.Build{}, nil, fmt.Errorf("buildcode: xml parse: %w", err)
	}

	allocated, err := parseNodes(doc.Tree.Nodes)
	if err != nil {
		return build.Build{}, nil, err
	}

	b := build.Build{
		Class:      build.Class(doc.Build.ClassName),
		Level:      doc.Build.Level,
		Ascendancy: doc.Build.Ascendancy,
		Allocated:  allocated,
	}

	env := &Envelope{
		raw:        xmlBytes,
		origCode:   trimmed,
		origLevel:  doc.Build.Level,
		origClass:  doc.Build.ClassName,
		origAscend: doc.Build.Ascendancy,
		origNodes:  cloneNodes(allocated),
	}

	return b, env, nil
}

func parseNodes(nodes string) (map[int]bool, error) {
	allocated := make(map[int]bool)
	for _, field := range strings.Split(nodes, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("buildcode: invalid node id %q", field)
		}
		allocated[id] = true
	}
	return allocated, nil
}

func cloneNodes(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func nodesEqual(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// Encode re-serializes b into a build code. If b is identical to the
// build env was decoded from, the original build code is returned
// untouched — a byte-for-byte round trip. Otherwise only the changed
// Build/Tree attributes are spliced into the original XML bytes (or
// the minimal template, for a from-scratch Envelope); every other
// element is carried over unexamined.
func Encode(b build.Build, env *Envelope) (string, error) {
	if env == nil {
		env = &Envelope{}
	}

	if env.origCode != "" && unchanged(b, env) {
		return env.origCode, nil
	}

	xmlBytes := env.raw
	if len(xmlBytes) == 0 {
		xmlBytes = []byte(minimalDocTemplate)
	}

	newNodes := joinInts(b.SortedAllocated())
	xmlBytes = replaceAttr(xmlBytes, treeTagPattern, "nodes", newNodes)
	xmlBytes = replaceAttr(xmlBytes, buildTagPattern, "level", strconv.Itoa(b.Level))
	xmlBytes = replaceAttr(xmlBytes, buildTagPattern, "className", string(b.Class))
	xmlBytes = replaceAttr(xmlBytes, buildTagPattern, "ascendClassName", b.Ascendancy)

	deflated, err := deflateBytes(xmlBytes)
	if err != nil {
		return "", fmt.Errorf("buildcode: deflate: %w", err)
	}

	return base64.URLEncoding.EncodeToString(deflated), nil
}

func unchanged(b build.Build, env *Envelope) bool {
	return b.Level == env.origLevel &&
		string(b.Class) == env.origClass &&
		b.Ascendancy == env.origAscend &&
		unchangedNodes(b, env)
}

func unchangedNodes(b build.Build, env *Envelope) bool {
	return nodesEqual(b.Allocated, env.origNodes)
}

var (
	buildTagPattern = regexp.MustCompile(`(?s)<Build\b[^>]*>`)
	treeTagPattern  = regexp.MustCompile(`(?s)<Tree\b[^>]*>`)
)

// replaceAttr finds tagPattern's first match in xmlBytes and sets attr
// to newValue within that opening tag only, preserving the rest of the
// document byte-for-byte. If the tag already carries attr, its value
// is replaced in place; if not, attr="value" is appended just before
// the tag's closing '>' (or '/>').
func replaceAttr(xmlBytes []byte, tagPattern *regexp.Regexp, attr, newValue string) []byte {
	loc := tagPattern.FindIndex(xmlBytes)
	if loc == nil {
		return xmlBytes
	}
	tag := xmlBytes[loc[0]:loc[1]]
	newTag := setAttr(tag, attr, newValue)

	out := make([]byte, 0, len(xmlBytes)-len(tag)+len(newTag))
	out = append(out, xmlBytes[:loc[0]]...)
	out = append(out, newTag...)
	out = append(out, xmlBytes[loc[1]:]...)
	return out
}

func setAttr(tag []byte, attr, newValue string) []byte {
	escaped := escapeXMLAttr(newValue)
	attrPattern := regexp.MustCompile(regexp.QuoteMeta(attr) + `\s*=\s*(["'])[^"']*["']`)
	if attrPattern.Match(tag) {
		return attrPattern.ReplaceAll(tag, []byte(attr+`="`+escaped+`"`))
	}

	insertAt := bytes.LastIndexByte(tag, '>')
	if insertAt < 0 {
		return tag
	}
	if insertAt > 0 && tag[insertAt-1] == '/' {
		insertAt--
	}

	out := make([]byte, 0, len(tag)+len(attr)+len(escaped)+4)
	out = append(out, tag[:insertAt]...)
	out = append(out, ' ')
	out = append(out, attr...)
	out = append(out, '=', '"')
	out = append(out, escaped...)
	out = append(out, '"')
	out = append(out, tag[insertAt:]...)
	return out
}

func escapeXMLAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func decodeBase64(code string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(code); err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(code)
}

func inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	return io.ReadAll(r)
}

func deflateBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
