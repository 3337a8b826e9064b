package persona

import (
	"regexp"
	"strings"

	"github.com/jcooky/go-din"
)

type (
	// Intent is the result of classifying one user message.
	Intent struct {
		Switch  bool
		Persona string
	}

	Classifier struct {
		rules     []*regexp.Regexp
		stopWords map[string]struct{}
	}
)

// rules are tried in order; the first capture group of each is the persona token.
var switchRules = []string{
	`\bact like (?:my |an? |the )?(\w+)`,
	`\bbe (?:my |an? )(\w+)`,
	`\bswitch (?:back )?to (?:my |the )?(\w+)`,
	`\b(?:go back|back|return) to (?:my |the )?(\w+)`,
	`\b(?:resume|continue with) (?:my |the )?(\w+)`,
	`\b(\w+) persona\b`,
	`\b(\w+) thread\b`,
}

var stopWords = []string{"the", "a", "an", "my", "your", "this", "that", "our", "new", "another"}

func NewClassifier() *Classifier {
	c := &Classifier{
		rules:     make([]*regexp.Regexp, 0, len(switchRules)),
		stopWords: make(map[string]struct{}, len(stopWords)),
	}
	for _, rule := range switchRules {
		c.rules = append(c.rules, regexp.MustCompile(rule))
	}
	for _, w := range stopWords {
		c.stopWords[w] = struct{}{}
	}
	return c
}

// Classify reports whether message asks to switch persona and, if so, to which one.
func (c *Classifier) Classify(message string) Intent {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Intent{}
	}

	for _, rule := range c.rules {
		m := rule.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if _, stop := c.stopWords[m[1]]; stop {
			continue
		}
		name := Normalize(m[1])
		if name == "" {
			continue
		}
		return Intent{Switch: true, Persona: name}
	}

	return Intent{}
}

func init() {
	din.RegisterT(func(c *din.Container) (*Classifier, error) {
		return NewClassifier(), nil
	})
}
