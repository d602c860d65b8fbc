package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const DefaultTree = "default"

// Document is an ordered list of steps replayed against named trees.
// The replay starts on the empty tree named "default".
type Document struct {
	Name string `yaml:"name"`
	// Desc orders the keys from the largest to the smallest.
	Desc bool `yaml:"desc"`
	// RemoveBorrowSucc removes a node with two children by its
	// successor instead of its predecessor.
	RemoveBorrowSucc bool `yaml:"removeBorrowSucc"`
	// Validate checks all the tree rules after every step.
	Validate bool   `yaml:"validate"`
	Steps    []Step `yaml:"steps"`
}

// Step carries exactly one action.
type Step struct {
	Insert  []int64 `yaml:"insert,omitempty"`
	Remove  []int64 `yaml:"remove,omitempty"`
	Search  []int64 `yaml:"search,omitempty"`
	Print   string  `yaml:"print,omitempty"`
	Echo    string  `yaml:"echo,omitempty"`
	Clone   string  `yaml:"clone,omitempty"`
	Use     string  `yaml:"use,omitempty"`
	Assign  string  `yaml:"assign,omitempty"`
	Release string  `yaml:"release,omitempty"`
}

type Action string

const (
	ActionInsert  Action = "insert"
	ActionRemove  Action = "remove"
	ActionSearch  Action = "search"
	ActionPrint   Action = "print"
	ActionEcho    Action = "echo"
	ActionClone   Action = "clone"
	ActionUse     Action = "use"
	ActionAssign  Action = "assign"
	ActionRelease Action = "release"
)

var (
	ErrEmptyStep     = errors.New("scenario step without action")
	ErrMultiActions  = errors.New("scenario step with multiple actions")
	ErrEmptyDocument = errors.New("scenario without steps")
)

// Action returns the only action of the step.
func (s Step) Action() (Action, error) {
	actions := make([]Action, 0, 1)
	if len(s.Insert) > 0 {
		actions = append(actions, ActionInsert)
	}
	if len(s.Remove) > 0 {
		actions = append(actions, ActionRemove)
	}
	if len(s.Search) > 0 {
		actions = append(actions, ActionSearch)
	}
	for _, named := range []struct {
		action Action
		arg    string
	}{
		{ActionPrint, s.Print},
		{ActionEcho, s.Echo},
		{ActionClone, s.Clone},
		{ActionUse, s.Use},
		{ActionAssign, s.Assign},
		{ActionRelease, s.Release},
	} {
		if len(strings.TrimSpace(named.arg)) > 0 {
			actions = append(actions, named.action)
		}
	}
	switch len(actions) {
	case 0:
		return "", ErrEmptyStep
	case 1:
		return actions[0], nil
	default:
	}
	return "", fmt.Errorf("%w: %v", ErrMultiActions, actions)
}

// Check reports all the malformed steps at once.
func (doc *Document) Check() error {
	if len(doc.Steps) <= 0 {
		return ErrEmptyDocument
	}
	var err error
	for i, step := range doc.Steps {
		if _, stepErr := step.Action(); stepErr != nil {
			err = multierr.Append(err, fmt.Errorf("step %d: %w", i, stepErr))
		}
	}
	return err
}

// Decode reads one YAML document, the unknown fields are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := doc.Check(); err != nil {
		return nil, err
	}
	if len(doc.Name) <= 0 {
		doc.Name = DefaultTree
	}
	return doc, nil
}

func Parse(data []byte) (*Document, error) {
	return Decode(bytes.NewReader(data))
}

func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %q: %w", path, err)
	}
	return Parse(data)
}
