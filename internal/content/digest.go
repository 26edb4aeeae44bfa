package content

import (
	"fmt"
	"strings"
)

const digestTopicLimit = 3

// SummarizeTopics renders a compact bulleted digest of at most three topics.
// The output is kept short and plain so it reads well through text-to-speech
// and Libras avatars.
func SummarizeTopics(topics []Topic) string {
	var lines []string
	for i, t := range topics {
		if i >= digestTopicLimit {
			break
		}
		line := strings.TrimSpace(fmt.Sprintf("- %s: %s", t.Title, t.SimplifiedText))
		if t.Example != "" {
			line += fmt.Sprintf(" Ex.: %s", t.Example)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
