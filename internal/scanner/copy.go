package scanner

import "strings"

/*
 * copyDetector recognises COPY … FROM STDIN from the words the scanner sees
 * in normal mode.  Quoted text and comments never reach it.
 *
 * Only words at parenthesis depth 0 count, so the query inside
 * COPY (SELECT … FROM stdin_table) TO STDOUT is ignored, and FROM must be
 * immediately followed by STDIN.  The CSV keyword, either the legacy
 * "CSV" option or "FORMAT csv" inside the option list, may appear at any
 * depth after STDIN.
 */
type copyDetector struct {
	lead      []string // first leadWords words, for classification
	started   bool
	isCopy    bool
	parens    int
	afterFrom bool
	stdin     bool
	csv       bool
}

// leadWords is how many leading words a Boundary records.
const leadWords = 5

func (c *copyDetector) word(w string) {
	if len(c.lead) < leadWords {
		c.lead = append(c.lead, w)
	}
	if !c.started {
		c.started = true
		c.isCopy = strings.EqualFold(w, "copy")
		return
	}
	if !c.isCopy {
		return
	}
	if c.stdin && strings.EqualFold(w, "csv") {
		c.csv = true
	}
	if c.parens > 0 {
		c.afterFrom = false
		return
	}
	if c.afterFrom && strings.EqualFold(w, "stdin") {
		c.stdin = true
	}
	c.afterFrom = strings.EqualFold(w, "from")
}

func (c *copyDetector) other(ch byte) {
	c.started = true
	switch ch {
	case '(':
		c.parens++
	case ')':
		if c.parens > 0 {
			c.parens--
		}
	}
	c.afterFrom = false
}

func (c *copyDetector) fromStdin() bool { return c.isCopy && c.stdin }
