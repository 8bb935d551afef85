package dialog

import (
	"strings"
	"unicode"
)

// Entity types produced by the NLU model.
const (
	EntityListing      = "listing"
	EntityAllResources = "all-resources"
	EntityOperation    = "operation"
	EntityTarget       = "action-target"
)

// Canonical operations after normalizing the user's verb.
const (
	opStart      = "start"
	opStop       = "stop"
	opCreate     = "create"
	opDeallocate = "deallocate"
)

// canonicalOperation maps the verb the user actually said, in any of the
// supported inflections, to a canonical operation. Returns "" for verbs
// the bot does not know.
func canonicalOperation(word string) string {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "start", "iniciar", "inicie", "ligar", "ligue":
		return opStart
	case "stop", "parar", "pare", "desligar", "desligue":
		return opStop
	case "create", "criar", "crie":
		return opCreate
	}
	return ""
}

// ExtractTargetName recovers the bare resource name from the raw
// action-target entity text. The NLU model often captures the operation
// verb glued to the name ("pareServidorX"), so the verb is removed first:
// by exact case-insensitive match, or failing that by stripping a leading
// inflected form of the verb. The remainder is trimmed to its first token
// and stripped of punctuation.
func ExtractTargetName(raw, operationWord string) string {
	cleaned := removeFold(raw, operationWord)
	if cleaned == raw {
		cleaned = stripInflectedPrefix(raw, operationWord)
	}

	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, fields[0])
}

// removeFold removes every case-insensitive occurrence of word from s.
func removeFold(s, word string) string {
	rw := []rune(strings.ToLower(word))
	if len(rw) == 0 {
		return s
	}
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		if foldMatchAt(rs, i, rw) {
			i += len(rw)
			continue
		}
		out = append(out, rs[i])
		i++
	}
	return string(out)
}

func foldMatchAt(rs []rune, i int, lowered []rune) bool {
	if i+len(lowered) > len(rs) {
		return false
	}
	for j, r := range lowered {
		if unicode.ToLower(rs[i+j]) != r {
			return false
		}
	}
	return true
}

// stripInflectedPrefix handles verbs conjugated differently in the target
// text than in the operation entity ("pare..." vs "parar"). When the text
// opens with at least three runes of the verb, that shared prefix plus the
// rest of the inflected word (the following lowercase letters) is dropped.
func stripInflectedPrefix(s, word string) string {
	rs := []rune(s)
	rw := []rune(word)

	n := 0
	for n < len(rs) && n < len(rw) && unicode.ToLower(rs[n]) == unicode.ToLower(rw[n]) {
		n++
	}
	if n < 3 {
		return s
	}
	for n < len(rs) && unicode.IsLower(rs[n]) {
		n++
	}
	return string(rs[n:])
}
