// Package format turns an agent's free-form answer into a markdown document.
//
// The answer is split into blocks: single-line JSON objects become fenced
// json blocks, blank lines and list or heading lines are kept as-is, and
// everything else is coalesced into prose. The rendered document is then
// annotated so filenames, SHA-256 digests, hex literals and underscore
// symbols show up as inline code.
package format

import (
	"regexp"
	"strings"
)

// Title heads every formatted document.
const Title = "## MCP Agent Response\n\n"

// NoResultDocument is returned in place of an empty answer.
const NoResultDocument = "## ❌ Error\n\nThe agent returned no result. There may have been an internal LLM error (likely a missing or malformed tool call). Check the logs for details."

// Kind classifies a Block.
type Kind int

const (
	// Prose is one or more adjacent plain lines.
	Prose Kind = iota
	// ListOrHeading is a blank line or a line starting with "* ", "# " or "- ".
	ListOrHeading
	// JSON is a line holding a single JSON object.
	JSON
)

func (k Kind) String() string {
	switch k {
	case Prose:
		return "prose"
	case ListOrHeading:
		return "list_or_heading"
	case JSON:
		return "json"
	}
	return "unknown"
}

// Block is one segment of a document.
type Block struct {
	Kind Kind
	Text string
}

// String renders the block as markdown.
func (b Block) String() string {
	if b.Kind == JSON {
		return "```json\n" + b.Text + "\n```"
	}
	return b.Text
}

var markerRe = regexp.MustCompile(`^[*#-] `)

// Segment splits raw into blocks in line order.
func Segment(raw string) []Block {
	var (
		blocks []Block
		prose  []string
	)

	flush := func() {
		if len(prose) > 0 {
			blocks = append(blocks, Block{Kind: Prose, Text: strings.Join(prose, "\n")})
			prose = prose[:0]
		}
	}

	for _, line := range splitLines(raw) {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"):
			flush()
			blocks = append(blocks, Block{Kind: JSON, Text: trimmed})
		case trimmed == "" || markerRe.MatchString(trimmed):
			flush()
			blocks = append(blocks, Block{Kind: ListOrHeading, Text: line})
		default:
			prose = append(prose, line)
		}
	}
	flush()

	return blocks
}

// splitLines splits on \n, \r\n and \r. A single trailing line break does
// not start another line.
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Render joins blocks under the document title.
func Render(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.String()
	}
	return Title + strings.Join(parts, "\n")
}

// Annotation passes, applied in this order. Tokens already inside code spans
// or fences are wrapped again.
var annotations = []*regexp.Regexp{
	regexp.MustCompile(`\b([A-Za-z0-9_]+\.(exe|dll|bin|so))\b`),
	regexp.MustCompile(`\b([a-fA-F0-9]{64})\b`),
	regexp.MustCompile(`\b(0x[0-9a-fA-F]+)\b`),
	regexp.MustCompile(`\b(_[a-zA-Z0-9_]+)\b`),
}

// Annotate wraps filenames, SHA-256 digests, hex literals and
// underscore-prefixed symbols in backticks.
func Annotate(text string) string {
	for _, re := range annotations {
		text = re.ReplaceAllString(text, "`${1}`")
	}
	return text
}

// Format formats raw with no backend hints.
func Format(raw string) string {
	return Formatter{}.Format(raw)
}

// Formatter formats answers from one backend.
type Formatter struct {
	// FormatHexKeys rewrites integer values of AddressKeys in JSON blocks as
	// hex strings.
	FormatHexKeys bool
	AddressKeys   []string
}

// Format returns the annotated markdown document for raw, or
// NoResultDocument when raw holds no text.
func (f Formatter) Format(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return NoResultDocument
	}

	blocks := Segment(raw)

	if f.FormatHexKeys && len(f.AddressKeys) > 0 {
		re := addressValueRe(f.AddressKeys)
		for i := range blocks {
			if blocks[i].Kind == JSON {
				blocks[i].Text = hexify(re, blocks[i].Text)
			}
		}
	}

	return Annotate(Render(blocks))
}
