package parser

import "strings"

// classifyWords determines the statement type from its leading words.
// It recognises CREATE [OR REPLACE] FUNCTION/PROCEDURE/TRIGGER/VIEW patterns,
// DO blocks, COPY and transaction control.
func classifyWords(words []string) StatementType {
	if len(words) == 0 {
		return StmtUnknown
	}

	switch {
	case isWord(words[0], "DO"):
		return StmtDO
	case isWord(words[0], "COPY"):
		return StmtCopy
	case isWord(words[0], "BEGIN"), isWord(words[0], "START"), isWord(words[0], "COMMIT"),
		isWord(words[0], "END"), isWord(words[0], "ROLLBACK"), isWord(words[0], "ABORT"),
		isWord(words[0], "SAVEPOINT"), isWord(words[0], "RELEASE"):
		return StmtTransaction
	case !isWord(words[0], "CREATE"):
		return StmtOther
	}

	// Skip past CREATE [OR REPLACE]
	i := 1
	if i < len(words) && isWord(words[i], "OR") {
		i++
		if i < len(words) && isWord(words[i], "REPLACE") {
			i++
		}
	}
	// CREATE [CONSTRAINT] TRIGGER, CREATE [TEMP|MATERIALIZED|RECURSIVE] VIEW
	for i < len(words) && (isWord(words[i], "CONSTRAINT") || isWord(words[i], "TEMP") ||
		isWord(words[i], "TEMPORARY") || isWord(words[i], "RECURSIVE") ||
		isWord(words[i], "MATERIALIZED")) {
		i++
	}

	if i >= len(words) {
		return StmtOther
	}

	switch {
	case isWord(words[i], "FUNCTION"):
		return StmtFunction
	case isWord(words[i], "PROCEDURE"):
		return StmtProcedure
	case isWord(words[i], "TRIGGER"):
		return StmtTrigger
	case isWord(words[i], "VIEW"):
		return StmtView
	default:
		return StmtOther
	}
}

// isWord reports whether w is the given keyword (case-insensitive).
func isWord(w, keyword string) bool {
	return strings.EqualFold(w, keyword)
}
