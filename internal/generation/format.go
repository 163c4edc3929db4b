package generation

import "strings"

// DefaultChannelLimit is the per-message character limit of the delivery
// channel (WhatsApp allows ~4096; leave headroom).
const DefaultChannelLimit = 4000

// FormatForChannel splits text into chunks of at most maxLen characters,
// preferring paragraph boundaries, then sentence boundaries. A single
// sentence longer than maxLen is hard-cut as a last resort.
func FormatForChannel(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChannelLimit
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		if current.Len()+len(para)+2 <= maxLen {
			current.WriteString(para)
			current.WriteString("\n\n")
			continue
		}
		flush()
		if len(para) <= maxLen {
			current.WriteString(para)
			current.WriteString("\n\n")
			continue
		}
		// Paragraph alone exceeds the limit; fall back to sentences.
		for _, piece := range splitLongParagraph(para, maxLen) {
			if current.Len()+len(piece)+1 > maxLen {
				flush()
			}
			current.WriteString(piece)
			current.WriteString(" ")
		}
		flush()
	}
	flush()

	return chunks
}

// splitLongParagraph breaks a paragraph into sentence-sized pieces, hard
// cutting any single sentence that still exceeds maxLen.
func splitLongParagraph(para string, maxLen int) []string {
	var pieces []string
	for _, sentence := range strings.SplitAfter(para, ". ") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		for len(sentence) > maxLen {
			pieces = append(pieces, sentence[:maxLen])
			sentence = sentence[maxLen:]
		}
		if sentence != "" {
			pieces = append(pieces, sentence)
		}
	}
	return pieces
}
