package core

import "strings"

// stopWords are dropped during keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true,
	"or": true, "but": true, "in": true, "on": true, "at": true,
	"by": true, "for": true, "with": true, "about": true, "as": true,
	"from": true, "i": true, "you": true, "me": true, "my": true,
	"your": true,
}

// maxKeywords caps how many keywords a message contributes to retrieval.
const maxKeywords = 5

// ExtractKeywords pulls the significant words out of a message for
// memory retrieval: lower-case, punctuation stripped, stop words and
// tokens of length <= 2 dropped, first 5 survivors kept in order.
func ExtractKeywords(message string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(message)) {
		token = strings.Trim(token, ".,!?;:'\"()[]")
		if len(token) <= 2 || stopWords[token] {
			continue
		}
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
