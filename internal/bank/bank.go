package bank

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultBankYAML []byte

// Bank is an immutable question bank plus the role set its weights refer to.
type Bank struct {
	Version   string     `yaml:"version" json:"version"`
	Title     string     `yaml:"title,omitempty" json:"title,omitempty"`
	Roles     []Role     `yaml:"roles" json:"roles"`
	Questions []Question `yaml:"questions" json:"questions"`

	questionIdx map[string]int
	roleIdx     map[string]int
}

var defaultBank = sync.OnceValues(func() (*Bank, error) {
	return Parse(defaultBankYAML)
})

// Default returns the embedded question bank. The result is shared and must
// not be modified.
func Default() (*Bank, error) {
	return defaultBank()
}

// Load reads a bank from a YAML or JSON file and validates it.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("question bank %s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a bank document (YAML, or JSON as a YAML subset), checks it
// against the bank schema and validates references between questions and roles.
func Parse(data []byte) (*Bank, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	if err := checkSchema(doc); err != nil {
		return nil, err
	}

	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	if err := validateBank(&b); err != nil {
		return nil, err
	}
	b.index()
	return &b, nil
}

// New builds a bank from in-memory data, validating it the same way Parse does.
func New(version string, roles []Role, questions []Question) (*Bank, error) {
	b := &Bank{Version: version, Roles: roles, Questions: questions}
	if err := validateBank(b); err != nil {
		return nil, err
	}
	b.index()
	return b, nil
}

func (b *Bank) index() {
	b.questionIdx = make(map[string]int, len(b.Questions))
	for i, q := range b.Questions {
		b.questionIdx[q.ID] = i
	}
	b.roleIdx = make(map[string]int, len(b.Roles))
	for i, r := range b.Roles {
		b.roleIdx[r.Key] = i
	}
}

// Len returns the number of questions.
func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Questions)
}

// QuestionAt returns the question at position i.
func (b *Bank) QuestionAt(i int) (Question, bool) {
	if b == nil || i < 0 || i >= len(b.Questions) {
		return Question{}, false
	}
	return b.Questions[i], true
}

// Question looks up a question by ID.
func (b *Bank) Question(id string) (Question, bool) {
	i, ok := b.questionIdx[id]
	if !ok {
		return Question{}, false
	}
	return b.Questions[i], true
}

// IndexOf returns the position of the question with the given ID, or -1.
func (b *Bank) IndexOf(id string) int {
	if i, ok := b.questionIdx[id]; ok {
		return i
	}
	return -1
}

// Role looks up role metadata by key.
func (b *Bank) Role(key string) (Role, bool) {
	i, ok := b.roleIdx[key]
	if !ok {
		return Role{}, false
	}
	return b.Roles[i], true
}

// RoleIndex returns the canonical position of the role with the given key,
// or -1.
func (b *Bank) RoleIndex(key string) int {
	if i, ok := b.roleIdx[key]; ok {
		return i
	}
	return -1
}

// RoleKeys returns the role keys in canonical order.
func (b *Bank) RoleKeys() []string {
	keys := make([]string, len(b.Roles))
	for i, r := range b.Roles {
		keys[i] = r.Key
	}
	return keys
}
