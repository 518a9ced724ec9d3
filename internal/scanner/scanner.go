/*
 * scanner.go
 *
 * Statement boundary scanner for PostgreSQL scripts.
 *
 * The scanner walks a script once, left to right, and reports where each
 * statement ends.  It does not produce tokens: the only things it needs to
 * know are whether the cursor is inside a string, a quoted identifier, a
 * dollar-quoted body or a comment, because a ';' in any of those places is
 * ordinary text.  The lexical rules follow src/backend/parser/scan.l closely
 * enough to agree with the server about where a statement stops:
 *
 *   '…'       xq state, '' is an embedded quote
 *   E'…'      xe state, backslash escapes the next byte
 *   "…"       xd state, "" is an embedded quote
 *   $tag$…$tag$  xdolq state, closed only by the identical delimiter
 *   -- …      comment to end of line
 *   /* … * /  xc state, nests
 *
 * A COPY … FROM STDIN statement changes the rule for the text after it: the
 * following lines are data, terminated by a line holding only "\.", exactly
 * as psql feeds them to the server.
 *
 * Usage:
 *
 *	s := scanner.New(src)
 *	for {
 *	    b, ok := s.Next()
 *	    if !ok { break }
 *	    stmt := src[b.Start:b.SQLEnd]
 *	}
 */
package scanner

import "strings"

// Mode is the lexical context the scanner is in at the cursor.
type Mode int

const (
	ModeNormal       Mode = iota
	ModeSingleQuote       // '…'
	ModeEscapeQuote       // E'…'
	ModeDoubleQuote       // "…"
	ModeDollarQuote       // $tag$…$tag$
	ModeLineComment       // -- …
	ModeBlockComment      // /* … */, nesting
	ModeCopyPayload       // data lines after COPY … FROM STDIN
)

// String returns a string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSingleQuote:
		return "single-quoted string"
	case ModeEscapeQuote:
		return "escape string"
	case ModeDoubleQuote:
		return "quoted identifier"
	case ModeDollarQuote:
		return "dollar-quoted string"
	case ModeLineComment:
		return "line comment"
	case ModeBlockComment:
		return "block comment"
	case ModeCopyPayload:
		return "copy data"
	default:
		return "unknown"
	}
}

// Boundary describes one statement found by the scanner.
// All offsets are byte offsets into the scanned buffer.
type Boundary struct {
	Start     int // first byte of the statement (leading whitespace and comments included)
	TextStart int // first byte that is neither whitespace nor comment
	SQLEnd    int // end of the statement text, terminator and trailing newline included
	End       int // end of everything the statement consumed, payload and "\." line included
	Tail      int // bytes of whitespace and comments at the end of input folded into End

	PayloadStart int
	PayloadEnd   int

	Terminated        bool // closed by ';' rather than by end of input
	Empty             bool // nothing but whitespace and comments before the terminator
	Copy              bool // COPY … FROM STDIN
	CSV               bool // COPY data declared as CSV
	HasPayload        bool
	PayloadTerminated bool // payload closed by a "\." line
	Unclosed          Mode // mode still open at end of input

	Words []string // leading unquoted words, at most five, as written
}

/*
 * Scanner finds statement boundaries in src.
 *
 * The only state carried between calls to Next is the cursor; every
 * statement starts in ModeNormal.  mode, depth and tag describe the
 * construct the cursor is currently inside and are meaningless once a
 * boundary has been returned.
 */
type Scanner struct {
	src   string
	pos   int
	mode  Mode
	depth int    // block comment nesting
	tag   string // dollar-quote tag, "" for $$
}

// New returns a Scanner over src. src is never modified or copied.
func New(src string) *Scanner { return &Scanner{src: src} }

// Pos returns the byte offset of the next byte to be read.
func (s *Scanner) Pos() int { return s.pos }

// Next returns the boundary of the next statement. It returns false once the
// rest of the input holds no statement: only whitespace and closed comments.
func (s *Scanner) Next() (Boundary, bool) {
	if s.pos >= len(s.src) {
		return Boundary{}, false
	}

	b := Boundary{Start: s.pos}
	s.mode, s.depth, s.tag = ModeNormal, 0, ""

	var (
		significant bool
		cs          copyDetector
	)
	b.TextStart = -1

scan:
	for s.pos < len(s.src) {
		switch s.mode {
		case ModeNormal:
			at := s.pos
			tok := s.normal(&cs)
			if tok != tokSpace && b.TextStart < 0 {
				b.TextStart = at
			}
			if tok == tokTerminator {
				b.Terminated = true
				break scan
			}
			if tok != tokSpace {
				significant = true
			}
		case ModeSingleQuote:
			s.quoted('\'')
		case ModeDoubleQuote:
			s.quoted('"')
		case ModeEscapeQuote:
			s.escapeQuoted()
		case ModeDollarQuote:
			s.dollarQuoted()
		case ModeLineComment:
			s.lineComment()
		case ModeBlockComment:
			s.blockComment()
		}
	}

	if !b.Terminated {
		switch s.mode {
		case ModeNormal, ModeLineComment:
			/* a line comment is closed by end of input */
		case ModeBlockComment:
			/* an unterminated comment is an error the grammar must see */
			significant = true
			b.Unclosed = s.mode
		default:
			b.Unclosed = s.mode
		}
		if !significant {
			s.pos = len(s.src)
			return Boundary{}, false
		}
	}
	s.mode = ModeNormal

	if b.Terminated {
		s.trailing()
	}
	b.SQLEnd = s.pos
	b.End = s.pos
	b.Empty = !significant
	b.Copy = cs.fromStdin()
	b.CSV = b.Copy && cs.csv
	b.Words = cs.lead

	if b.TextStart < 0 {
		/* only an unclosed block comment */
		b.TextStart = b.Start
	}

	if b.Copy && b.Terminated && s.pos < len(s.src) {
		s.payload(&b)
	}

	// Nothing but whitespace and comments left: it belongs to this statement
	if s.pos < len(s.src) && s.blankTail() {
		b.Tail = len(s.src) - s.pos
		s.pos = len(s.src)
		b.End = s.pos
	}
	return b, true
}

// blankTail reports whether the rest of the input holds only whitespace and
// closed comments.
func (s *Scanner) blankTail() bool {
	t := Scanner{src: s.src, pos: s.pos}
	var cs copyDetector
	for t.pos < len(t.src) {
		switch t.mode {
		case ModeNormal:
			if t.normal(&cs) != tokSpace {
				return false
			}
		case ModeLineComment:
			t.lineComment()
		case ModeBlockComment:
			t.blockComment()
		}
	}
	return t.mode != ModeBlockComment
}

// ---------------------------------------------------------------------------
// Normal mode
// ---------------------------------------------------------------------------

// tokKind is the coarse class of what normal() consumed.
type tokKind int

const (
	tokSpace      tokKind = iota // whitespace or a comment opener
	tokTerminator                // ';'
	tokWord                      // unquoted identifier or keyword
	tokOther                     // anything else that makes the statement non-empty
)

/*
 * normal consumes one lexical unit in ModeNormal and reports what it was.
 * Openers of quoted regions and comments only switch the mode; the body is
 * consumed by the mode's own handler on the next iteration.
 */
func (s *Scanner) normal(cs *copyDetector) tokKind {
	ch := s.src[s.pos]

	switch {
	case ch == ';':
		s.pos++
		return tokTerminator

	case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v':
		s.pos++
		return tokSpace

	case ch == '-' && s.peek(1) == '-':
		s.pos += 2
		s.mode = ModeLineComment
		return tokSpace

	case ch == '/' && s.peek(1) == '*':
		s.pos += 2
		s.mode = ModeBlockComment
		s.depth = 1
		return tokSpace

	case ch == '\'':
		s.pos++
		s.mode = ModeSingleQuote
		cs.other(ch)
		return tokOther

	case ch == '"':
		s.pos++
		s.mode = ModeDoubleQuote
		cs.other(ch)
		return tokOther

	case ch == '$':
		if tag, ok := dollarTag(s.src[s.pos+1:]); ok {
			s.pos += len(tag) + 2
			s.tag = tag
			s.mode = ModeDollarQuote
		} else {
			/* $1 parameter or a stray '$' */
			s.pos++
		}
		cs.other(ch)
		return tokOther

	case isIdentStart(ch):
		start := s.pos
		for s.pos < len(s.src) && isIdentCont(s.src[s.pos]) {
			s.pos++
		}
		word := s.src[start:s.pos]
		/* E'…': the prefix must be a word of its own, as in scan.l {xestart} */
		if (word == "E" || word == "e") && s.peek(0) == '\'' {
			s.pos++
			s.mode = ModeEscapeQuote
			cs.other('\'')
			return tokOther
		}
		cs.word(word)
		return tokWord

	default:
		s.pos++
		cs.other(ch)
		return tokOther
	}
}

// trailing consumes the whitespace after a terminator, up to and including
// the first newline.
func (s *Scanner) trailing() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\r', '\f', '\v':
			s.pos++
		case '\n':
			s.pos++
			return
		default:
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Quoted regions and comments
// ---------------------------------------------------------------------------

// quoted consumes the body of a '…' string or "…" identifier. A doubled
// quote character is part of the body.
func (s *Scanner) quoted(q byte) {
	for s.pos < len(s.src) {
		if s.src[s.pos] != q {
			s.pos++
			continue
		}
		s.pos++
		if s.peek(0) == q {
			s.pos++
			continue
		}
		s.mode = ModeNormal
		return
	}
}

// escapeQuoted consumes the body of an E'…' string, where a backslash
// escapes whatever byte follows it.
func (s *Scanner) escapeQuoted() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
		case '\'':
			s.pos++
			if s.peek(0) == '\'' {
				s.pos++
				continue
			}
			s.mode = ModeNormal
			return
		default:
			s.pos++
		}
	}
	if s.pos > len(s.src) {
		/* backslash was the last byte */
		s.pos = len(s.src)
	}
}

// dollarQuoted consumes a dollar-quoted body up to the delimiter that opened it.
func (s *Scanner) dollarQuoted() {
	closing := "$" + s.tag + "$"
	idx := strings.Index(s.src[s.pos:], closing)
	if idx < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += idx + len(closing)
	s.mode = ModeNormal
	s.tag = ""
}

// lineComment consumes up to, not including, the end of the line.
func (s *Scanner) lineComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' && s.src[s.pos] != '\r' {
		s.pos++
	}
	if s.pos < len(s.src) {
		s.mode = ModeNormal
	}
}

// blockComment consumes a block comment; each nested opener needs its own closer.
func (s *Scanner) blockComment() {
	for s.pos < len(s.src) {
		switch {
		case s.src[s.pos] == '/' && s.peek(1) == '*':
			s.depth++
			s.pos += 2
		case s.src[s.pos] == '*' && s.peek(1) == '/':
			s.depth--
			s.pos += 2
			if s.depth == 0 {
				s.mode = ModeNormal
				return
			}
		default:
			s.pos++
		}
	}
}

// ---------------------------------------------------------------------------
// COPY data
// ---------------------------------------------------------------------------

// payloadEnd is the line that ends COPY data.
const payloadEnd = `\.`

/*
 * payload consumes COPY data lines starting at the cursor.  The "\." line
 * is consumed with its newline but is not part of the payload.  Without such
 * a line the payload runs to end of input.
 */
func (s *Scanner) payload(b *Boundary) {
	s.mode = ModeCopyPayload
	b.HasPayload = true
	b.PayloadStart = s.pos

	for line := s.pos; line < len(s.src); {
		next := len(s.src)
		text := s.src[line:]
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			next = line + nl + 1
			text = text[:nl]
		}
		if strings.TrimSuffix(text, "\r") == payloadEnd {
			b.PayloadEnd = line
			b.PayloadTerminated = true
			s.pos = next
			b.End = next
			s.mode = ModeNormal
			return
		}
		line = next
	}

	b.PayloadEnd = len(s.src)
	s.pos = len(s.src)
	b.End = len(s.src)
	s.mode = ModeNormal
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// peek returns the byte at position s.pos+offset, or 0 if out of bounds.
func (s *Scanner) peek(offset int) byte {
	if i := s.pos + offset; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

/*
 * dollarTag reports whether src (the text after a '$') completes a
 * dollar-quote delimiter, and returns its tag.
 *
 * dolq_start [A-Za-z\200-\377_]     scan.l
 * dolq_cont  [A-Za-z\200-\377_0-9]
 */
func dollarTag(src string) (string, bool) {
	if src == "" {
		return "", false
	}
	if src[0] == '$' {
		return "", true
	}
	if !isDolqStart(src[0]) {
		return "", false
	}
	for i := 1; i < len(src); i++ {
		switch {
		case src[i] == '$':
			return src[:i], true
		case !isDolqCont(src[i]):
			return "", false
		}
	}
	return "", false
}

// isIdentStart reports whether ch can open an unquoted identifier.
// Bytes >= 0x80 belong to multi-byte UTF-8 letters.
func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

// isIdentCont reports whether ch can continue an identifier. '$' is allowed,
// which is why "a$b$" never opens a dollar quote.
func isIdentCont(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9') || ch == '$'
}

func isDolqStart(ch byte) bool { return isIdentStart(ch) }

func isDolqCont(ch byte) bool { return isDolqStart(ch) || (ch >= '0' && ch <= '9') }
