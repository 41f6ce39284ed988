package ai

import (
	"regexp"
	"strings"
)

// control tokens emitted by common VQA and chat tokenizers
var specialTokenPattern = regexp.MustCompile(
	`<\|[^|<>]*\|>` +
		`|\[(?:CLS|SEP|PAD|UNK|MASK|DEC|ENC)\]` +
		`|</?s>|<pad>|<unk>|<mask>|<image>` +
		`|</?(?:start|end)_of_turn>`,
)

// DecodeTokens turns raw generated text into a readable answer.
func DecodeTokens(raw string, skipSpecial bool) string {
	if skipSpecial {
		raw = specialTokenPattern.ReplaceAllString(raw, " ")
	}
	return strings.Join(strings.Fields(raw), " ")
}
