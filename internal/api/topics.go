package api

import "github.com/ashureev/commcoach/internal/domain"

// topicBank holds the random-topic choices per mode. Modes without an entry
// draw from the general list.
var topicBank = map[domain.Mode][]string{
	domain.ModeDebate: {
		"Social media does more harm than good",
		"AI will create more jobs than it replaces",
		"Universities should be free",
	},
	domain.ModeInterview: {
		"Tell me about a challenging project",
		"Why should we hire you?",
	},
	domain.ModePresentation: {
		"Pitch a product to reduce food waste",
	},
	domain.ModeGeneral: {
		"Is remote work better than office work?",
	},
}

// topicsFor returns the topic list used for random selection in mode m.
func topicsFor(m domain.Mode) []string {
	if topics, ok := topicBank[m]; ok {
		return topics
	}
	return topicBank[domain.ModeGeneral]
}

func (h *Handler) randomTopic(m domain.Mode) string {
	topics := topicsFor(m)
	return topics[h.intN(len(topics))]
}
