// Package pdf extracts shown-text tokens from PDF bytes without a full PDF
// reader. It only understands what timetable extraction needs: flate-coded
// content streams, BT..ET text blocks and the Tj/TJ show operators.
//
// The extractor is deliberately forgiving: anything it cannot decode is
// skipped and it never returns an error. An empty token list means "could
// not extract text" and callers fall back to another import path.
package pdf

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"
	"strings"
	"unicode/utf16"
)

var (
	markStream    = []byte("stream")
	markEndstream = []byte("endstream")
	markFlate     = []byte("FlateDecode")
	markBT        = []byte("BT")
	markET        = []byte("ET")
)

// filterWindow is how far back from a "stream" keyword the dictionary is
// searched for a compression filter.
const filterWindow = 512

// ExtractTokens scans raw document bytes for content streams and returns the
// shown-text tokens in stream order.
func ExtractTokens(data []byte) []string {
	var tokens []string
	for _, region := range contentRegions(data) {
		for _, block := range textBlocks(region) {
			tokens = append(tokens, showText(block)...)
		}
	}
	return tokens
}

// contentRegions returns each stream body, decompressed where a flate filter
// is declared. Regions that fail to decompress are skipped.
func contentRegions(data []byte) [][]byte {
	var regions [][]byte
	pos := 0
	for {
		i := bytes.Index(data[pos:], markStream)
		if i < 0 {
			break
		}
		start := pos + i
		// Skip "endstream" matches on the "stream" suffix.
		if start >= 3 && bytes.HasPrefix(data[start-3:], []byte("end")) {
			pos = start + len(markStream)
			continue
		}
		body := start + len(markStream)
		// The stream keyword is followed by CRLF or LF before the data.
		if body < len(data) && data[body] == '\r' {
			body++
		}
		if body < len(data) && data[body] == '\n' {
			body++
		}
		j := bytes.Index(data[body:], markEndstream)
		if j < 0 {
			break
		}
		end := body + j
		raw := trimStreamEOL(data[body:end])

		winStart := start - filterWindow
		if winStart < 0 {
			winStart = 0
		}
		if bytes.Contains(data[winStart:start], markFlate) {
			if inflated, ok := inflate(raw); ok {
				regions = append(regions, inflated)
			}
			// Undecodable compressed region: skip, keep scanning.
		} else {
			regions = append(regions, raw)
		}

		pos = end + len(markEndstream)
	}
	return regions
}

// trimStreamEOL drops the EOL that precedes "endstream".
func trimStreamEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}

// inflate decompresses a FlateDecode stream body. PDF producers normally emit
// zlib-wrapped deflate; some emit raw deflate, so both are tried.
func inflate(b []byte) ([]byte, bool) {
	if zr, err := zlib.NewReader(bytes.NewReader(b)); err == nil {
		out, err := io.ReadAll(zr)
		_ = zr.Close()
		if err == nil {
			return out, true
		}
	}
	fr := flate.NewReader(bytes.NewReader(b))
	out, err := io.ReadAll(fr)
	_ = fr.Close()
	if err != nil {
		return nil, false
	}
	return out, true
}

// textBlocks returns the BT..ET page-content operator blocks of one region.
func textBlocks(region []byte) [][]byte {
	var blocks [][]byte
	pos := 0
	for {
		i := indexToken(region[pos:], markBT)
		if i < 0 {
			break
		}
		start := pos + i + len(markBT)
		j := indexToken(region[start:], markET)
		if j < 0 {
			// Unterminated block: take the rest.
			blocks = append(blocks, region[start:])
			break
		}
		blocks = append(blocks, region[start:start+j])
		pos = start + j + len(markET)
	}
	return blocks
}

// indexToken finds tok as a standalone operator (delimited, not a substring
// of a longer name).
func indexToken(b, tok []byte) int {
	pos := 0
	for {
		i := bytes.Index(b[pos:], tok)
		if i < 0 {
			return -1
		}
		at := pos + i
		beforeOK := at == 0 || isDelim(b[at-1])
		afterEnd := at + len(tok)
		afterOK := afterEnd >= len(b) || isDelim(b[afterEnd])
		if beforeOK && afterOK {
			return at
		}
		pos = at + 1
	}
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0, '(', ')', '<', '>', '[', ']', '/', '%':
		return true
	}
	return false
}

// showText walks one BT..ET block and returns one normalized token per
// show-operation (Tj or TJ). String pieces accumulated between operators are
// concatenated; a non-show operator discards them.
func showText(block []byte) []string {
	var out []string
	var pieces []string

	flush := func() {
		if len(pieces) == 0 {
			return
		}
		token := normalizeToken(strings.Join(pieces, ""))
		pieces = pieces[:0]
		if token != "" {
			out = append(out, token)
		}
	}

	i := 0
	for i < len(block) {
		c := block[i]
		switch {
		case c == '(':
			s, next := literalString(block, i)
			pieces = append(pieces, s)
			i = next
		case c == '<' && i+1 < len(block) && block[i+1] == '<':
			// Inline dictionary operand (marked content etc.), not text.
			i = skipDictionary(block, i)
		case c == '<':
			s, next := hexString(block, i)
			pieces = append(pieces, s)
			i = next
		case isOperatorChar(c):
			op, next := operator(block, i)
			switch op {
			case "Tj", "TJ", "'", "\"":
				flush()
			default:
				// Any other operator ends the current show-operation's
				// operand run without emitting.
				pieces = pieces[:0]
			}
			i = next
		default:
			i++
		}
	}
	flush()
	return out
}

func isOperatorChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '\'' || c == '"'
}

func operator(b []byte, i int) (string, int) {
	start := i
	for i < len(b) && isOperatorChar(b[i]) {
		i++
		if b[start] == '\'' || b[start] == '"' {
			break
		}
	}
	return string(b[start:i]), i
}

// literalString decodes a parenthesized PDF string starting at b[i]=='('.
// Handles balanced nested parens, the standard backslash escapes and up to
// 3-digit octal escapes. Returns the decoded text and the index just past
// the closing paren.
func literalString(b []byte, i int) (string, int) {
	var sb strings.Builder
	depth := 1
	i++ // past '('
	for i < len(b) {
		c := b[i]
		switch c {
		case '\\':
			i++
			if i >= len(b) {
				return sb.String(), i
			}
			e := b[i]
			switch e {
			case 'n':
				sb.WriteByte('\n')
				i++
			case 'r':
				sb.WriteByte('\r')
				i++
			case 't':
				sb.WriteByte('\t')
				i++
			case 'b':
				sb.WriteByte('\b')
				i++
			case 'f':
				sb.WriteByte('\f')
				i++
			case '\\', '(', ')':
				sb.WriteByte(e)
				i++
			case '\r':
				// Line continuation.
				i++
				if i < len(b) && b[i] == '\n' {
					i++
				}
			case '\n':
				i++
			default:
				if e >= '0' && e <= '7' {
					v := 0
					n := 0
					for n < 3 && i < len(b) && b[i] >= '0' && b[i] <= '7' {
						v = v*8 + int(b[i]-'0')
						i++
						n++
					}
					sb.WriteByte(byte(v))
				} else {
					// Unknown escape: keep the character itself.
					sb.WriteByte(e)
					i++
				}
			}
		case '(':
			depth++
			sb.WriteByte(c)
			i++
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), i
}

// skipDictionary advances past a balanced << ... >> dictionary starting at
// b[i]. Strings inside are skipped whole so their contents cannot unbalance
// the bracket count.
func skipDictionary(b []byte, i int) int {
	depth := 0
	for i < len(b) {
		switch {
		case b[i] == '<' && i+1 < len(b) && b[i+1] == '<':
			depth++
			i += 2
		case b[i] == '>' && i+1 < len(b) && b[i+1] == '>':
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		case b[i] == '(':
			_, i = literalString(b, i)
		case b[i] == '<':
			_, i = hexString(b, i)
		default:
			i++
		}
	}
	return i
}

// hexString decodes an angle-bracket hex string starting at b[i]=='<'. A
// UTF-16BE byte-order mark (FE FF) switches decoding of the remaining bytes
// to UTF-16BE; otherwise bytes are taken as Latin-1.
func hexString(b []byte, i int) (string, int) {
	i++ // past '<'
	var hexDigits []byte
	for i < len(b) && b[i] != '>' {
		c := b[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
			hexDigits = append(hexDigits, c)
		}
		i++
	}
	if i < len(b) {
		i++ // past '>'
	}
	if len(hexDigits)%2 == 1 {
		hexDigits = append(hexDigits, '0')
	}

	raw := make([]byte, 0, len(hexDigits)/2)
	for j := 0; j+1 < len(hexDigits); j += 2 {
		raw = append(raw, hexVal(hexDigits[j])<<4|hexVal(hexDigits[j+1]))
	}

	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return decodeUTF16BE(raw[2:]), i
	}
	var sb strings.Builder
	for _, c := range raw {
		sb.WriteRune(rune(c))
	}
	return sb.String(), i
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func decodeUTF16BE(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(u))
}

// normalizeToken replaces control characters with spaces, collapses
// whitespace runs and trims.
func normalizeToken(s string) string {
	var sb strings.Builder
	space := true // leading whitespace is dropped
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			r = ' '
		}
		if r == ' ' {
			if space {
				continue
			}
			space = true
			sb.WriteRune(r)
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return strings.TrimRight(sb.String(), " ")
}
