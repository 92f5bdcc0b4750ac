// Package character loads the persona an agent speaks as.
package character

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed characters/*.yaml
var builtin embed.FS

const defaultFile = "characters/boris_boarman.yaml"

// speakerPattern matches the placeholder speakers used in message examples.
var speakerPattern = regexp.MustCompile(`^\{\{user(\d+)\}\}$`)

// ExampleTurn is one line of an illustrative dialogue.
type ExampleTurn struct {
	User   string `yaml:"user" json:"user"`
	Text   string `yaml:"text" json:"text"`
	Action string `yaml:"action,omitempty" json:"action,omitempty"`
}

// Style groups tone guidelines by context.
type Style struct {
	All  []string `yaml:"all" json:"all"`
	Chat []string `yaml:"chat" json:"chat"`
	Post []string `yaml:"post" json:"post"`
}

// Voice selects the speech model for voice clients.
type Voice struct {
	Model string `yaml:"model" json:"model"`
}

// Character is the persona descriptor. It is read once at startup and never
// mutated afterwards.
type Character struct {
	Name            string          `yaml:"name" json:"name"`
	Username        string          `yaml:"username" json:"username"`
	ModelProvider   string          `yaml:"model_provider" json:"model_provider"`
	Clients         []string        `yaml:"clients" json:"clients"`
	Plugins         []string        `yaml:"plugins" json:"plugins"`
	Voice           Voice           `yaml:"voice" json:"voice"`
	System          string          `yaml:"system" json:"system"`
	Bio             []string        `yaml:"bio" json:"bio"`
	Lore            []string        `yaml:"lore" json:"lore"`
	MessageExamples [][]ExampleTurn `yaml:"message_examples" json:"message_examples"`
	PostExamples    []string        `yaml:"post_examples" json:"post_examples"`
	Topics          []string        `yaml:"topics" json:"topics"`
	Style           Style           `yaml:"style" json:"style"`
	Adjectives      []string        `yaml:"adjectives" json:"adjectives"`
}

// Default returns the built-in Boris Boarman persona.
func Default() *Character {
	data, err := builtin.ReadFile(defaultFile)
	if err != nil {
		panic(fmt.Sprintf("character: embedded %s: %v", defaultFile, err))
	}
	c, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("character: embedded %s: %v", defaultFile, err))
	}
	return c
}

// Load reads a character from a YAML file.
func Load(path string) (*Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading character %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing character %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML character document.
func Parse(data []byte) (*Character, error) {
	var c Character
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the fields a runtime cannot start without.
func (c *Character) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("character name is required")
	}
	if len(c.Plugins) == 0 {
		return errors.New("character must enable at least one plugin")
	}
	return nil
}

// HasPlugin reports whether the named plugin is enabled.
func (c *Character) HasPlugin(name string) bool {
	for _, p := range c.Plugins {
		if p == name {
			return true
		}
	}
	return false
}

// SystemPrompt renders the persona into a chat system message.
func (c *Character) SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", c.Name)
	if c.Username != "" {
		fmt.Fprintf(&b, " (@%s)", c.Username)
	}
	b.WriteString(".\n")
	if c.System != "" {
		b.WriteString(strings.TrimSpace(c.System))
		b.WriteString("\n")
	}
	writeSection(&b, "About you", c.Bio)
	writeSection(&b, "Background", c.Lore)
	writeSection(&b, "Topics you know well", c.Topics)
	if len(c.Adjectives) > 0 {
		fmt.Fprintf(&b, "\nYou are %s.\n", strings.Join(c.Adjectives, ", "))
	}
	writeSection(&b, "Style", append(append([]string{}, c.Style.All...), c.Style.Chat...))
	if len(c.MessageExamples) > 0 {
		b.WriteString("\nExample conversations:\n")
		for _, convo := range c.MessageExamples {
			for _, turn := range convo {
				fmt.Fprintf(&b, "%s: %s\n", speaker(turn.User), turn.Text)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// PostPrompt renders guidance for writing a short standalone post.
func (c *Character) PostPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a post as %s.\n", c.Name)
	writeSection(&b, "Style", append(append([]string{}, c.Style.All...), c.Style.Post...))
	writeSection(&b, "Example posts", c.PostExamples)
	return strings.TrimRight(b.String(), "\n")
}

// speaker replaces a {{userN}} placeholder with a neutral label.
func speaker(user string) string {
	m := speakerPattern.FindStringSubmatch(strings.TrimSpace(user))
	if m == nil {
		return user
	}
	if m[1] == "1" {
		return "User"
	}
	return "User " + m[1]
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, l := range lines {
		fmt.Fprintf(b, "- %s\n", l)
	}
}
