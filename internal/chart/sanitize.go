package chart

import "strings"

const fence = "```"

// Sanitize strips a Markdown code fence wrapped around model output.
//
// Blank input yields "{}". Input that is not a complete fenced block is
// returned trimmed. The closing fence is the last line holding nothing but
// the fence, or failing that a fence suffix on the last line, so backticks
// inside JSON string values never end the block and prose after the block
// is dropped, even when that prose ends in backticks. Nested fences are unwrapped until none remain, which makes
// Sanitize idempotent.
func Sanitize(content string) string {
	content = strings.TrimSpace(content)
	for {
		if content == "" {
			return "{}"
		}
		inner, ok := unfence(content)
		if !ok {
			return content
		}
		content = inner
	}
}

func unfence(content string) (string, bool) {
	if !strings.HasPrefix(content, fence) {
		return "", false
	}

	firstNewline := strings.IndexByte(content, '\n')
	if firstNewline == -1 {
		return "", false
	}

	body := content[firstNewline+1:]
	closing := closingFence(body)
	if closing == -1 {
		return "", false
	}

	return strings.TrimSpace(body[:closing]), true
}

// closingFence returns the offset of the closing fence in body, or -1.
// The last line holding only a fence wins; a fence suffix on the body is
// the fallback.
func closingFence(body string) int {
	end := len(body)
	for end > 0 {
		start := strings.LastIndexByte(body[:end], '\n') + 1
		if strings.TrimSpace(body[start:end]) == fence {
			return start
		}
		if start == 0 {
			break
		}
		end = start - 1
	}

	trimmed := strings.TrimRight(body, " \t\r\n")
	if strings.HasSuffix(trimmed, fence) {
		return len(trimmed) - len(fence)
	}
	return -1
}
