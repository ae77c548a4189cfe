package signal

import (
	"regexp"
	"strings"
)

// Ancillary data on UMA requests is free-form key/value text. Polymarket
// requests embed the CTF condition id, typically as
// "...,condition_id:0xabc123...". The match is case-insensitive and tolerant
// of separator punctuation between the key and the value.
var conditionIDPattern = regexp.MustCompile(`(?i)condition_id[^\w]*([a-fA-F0-9x]+)`)

// ExtractConditionID pulls a condition id out of decoded ancillary text.
// Returns the id normalized to lowercase with a 0x prefix, or "" when the
// text carries none.
func ExtractConditionID(ancillary string) string {
	m := conditionIDPattern.FindStringSubmatch(ancillary)
	if len(m) < 2 {
		return ""
	}
	id := strings.ToLower(m[1])
	if id == "" || id == "0x" {
		return ""
	}
	if !strings.HasPrefix(id, "0x") {
		id = "0x" + id
	}
	return id
}
