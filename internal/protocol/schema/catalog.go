package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound  = errors.New("schema: message not found")
	ErrDuplicate = errors.New("schema: duplicate message")
)

// NotFoundError reports a failed catalog lookup.
type NotFoundError struct {
	Kind   string
	Lookup string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("schema: unknown %s %q", e.Kind, e.Lookup)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Catalog indexes messages of one direction by key and by name.
type Catalog struct {
	kind   string
	byKey  map[Key]Message
	byName map[string]Message
}

// NewCatalog builds both indices. Keys and names must be unique.
func NewCatalog(kind string, msgs ...Message) (*Catalog, error) {
	c := &Catalog{
		kind:   kind,
		byKey:  make(map[Key]Message, len(msgs)),
		byName: make(map[string]Message, len(msgs)),
	}
	for _, m := range msgs {
		if _, exists := c.byKey[m.Key]; exists {
			return nil, fmt.Errorf("%w: %s key %s", ErrDuplicate, kind, m.Key)
		}
		if _, exists := c.byName[m.Name]; exists {
			return nil, fmt.Errorf("%w: %s name %q", ErrDuplicate, kind, m.Name)
		}
		c.byKey[m.Key] = m
		c.byName[m.Name] = m
	}
	log.Debug().Str("kind", kind).Int("messages", len(msgs)).Msg("schema catalog built")
	return c, nil
}

func MustCatalog(kind string, msgs ...Message) *Catalog {
	c, err := NewCatalog(kind, msgs...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Kind() string {
	return c.kind
}

// Get resolves a message by name, falling back to a hex key.
func (c *Catalog) Get(keyOrName string) (Message, error) {
	if m, ok := c.byName[keyOrName]; ok {
		return m, nil
	}
	if k, err := ParseKey(keyOrName); err == nil {
		if m, ok := c.byKey[k]; ok {
			return m, nil
		}
	}
	return Message{}, NotFoundError{Kind: c.kind, Lookup: keyOrName}
}

func (c *Catalog) GetByKey(k Key) (Message, error) {
	if m, ok := c.byKey[k]; ok {
		return m, nil
	}
	return Message{}, NotFoundError{Kind: c.kind, Lookup: k.String()}
}

// Names returns message names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Len() int {
	return len(c.byKey)
}
