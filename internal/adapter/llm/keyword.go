package llm

import (
	"context"
	"strings"

	"supportbot/internal/domain"
)

// Topic is one entry of the static answer table.
type Topic struct {
	Name     string
	Keywords []string
	Answer   string
}

// DefaultTopics are checked in order; the first topic with a keyword
// contained in the lower-cased query wins.
var DefaultTopics = []Topic{
	{
		Name:     "services",
		Keywords: []string{"what does able do", "services", "what is able"},
		Answer:   "Able is a full-service digital product agency that partners with funded startups and established brands to build innovative, user-focused digital products. We provide end-to-end services from strategy and discovery through design, development, and growth.",
	},
	{
		Name:     "teams",
		Keywords: []string{"teams", "who works", "employees"},
		Answer:   "Able has multidisciplinary teams across several key areas: Product Management, Design, Engineering, and Strategy. Our teams collaborate closely with clients as true partners throughout the product development lifecycle.",
	},
	{
		Name:     "industries",
		Keywords: []string{"industries", "clients", "sectors"},
		Answer:   "Able works across various industries including fintech, healthcare, education, media, retail, and enterprise software. We've built payment platforms, telemedicine solutions, learning management systems, content delivery platforms, and more.",
	},
	{
		Name:     "mission",
		Keywords: []string{"mission", "values", "purpose"},
		Answer:   "Able's mission is to help organizations transform their ideas into exceptional digital products that create value for users and drive business growth. We believe in user-centered design, technical excellence, and true partnership with our clients.",
	},
	{
		Name:     "location",
		Keywords: []string{"located", "location", "where", "office"},
		Answer:   "Able is headquartered in New York City, with team members distributed across the United States and globally. Our global presence allows us to work with clients around the world and build diverse teams with varied perspectives.",
	},
	{
		Name:     "website",
		Keywords: []string{"website", "url", "site"},
		Answer:   "Able's official website is available at https://able.co. You can find more information about our services, case studies, and team there.",
	},
	{
		Name:     "contact",
		Keywords: []string{"contact", "email", "phone", "reach"},
		Answer:   "You can contact Able through their website at https://able.co/contact. They also have a presence on social media platforms such as LinkedIn, Twitter, and Instagram.",
	},
	{
		Name:     "process",
		Keywords: []string{"process", "methodology", "approach"},
		Answer:   "Able follows a collaborative, iterative approach to product development that typically includes discovery and strategy, design, engineering, testing, and deployment phases. We emphasize close client collaboration throughout the process.",
	},
	{
		Name:     "technology",
		Keywords: []string{"technology", "tech stack", "programming", "languages"},
		Answer:   "Able's engineering teams work with various technologies including React, React Native, Node.js, Python, and more. We select the appropriate technology stack based on each project's specific requirements and client needs.",
	},
}

// DefaultGreeting answers queries that match no topic.
const DefaultGreeting = "I'm the Able support chatbot. I can answer questions about Able's services, teams, industries, mission, technologies, locations, and more. How can I help you today?"

// KeywordResponder answers from a fixed keyword table without any network
// access. It is the fallback when no completion provider is available.
type KeywordResponder struct {
	topics   []Topic
	greeting string
}

func NewKeywordResponder() *KeywordResponder {
	return &KeywordResponder{topics: DefaultTopics, greeting: DefaultGreeting}
}

// Respond returns the canned answer for query.
func (k *KeywordResponder) Respond(query string) string {
	q := strings.ToLower(query)
	for _, t := range k.topics {
		for _, kw := range t.Keywords {
			if strings.Contains(q, kw) {
				return t.Answer
			}
		}
	}
	return k.greeting
}

// Complete answers the last user message in history.
func (k *KeywordResponder) Complete(_ context.Context, _ string, history []domain.Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return k.Respond(history[i].Content), nil
		}
	}
	return k.greeting, nil
}

func (k *KeywordResponder) ModelName() string {
	return "keyword"
}
