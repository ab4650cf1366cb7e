package exhandler

import (
	"embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/language"
)

//go:embed messages/default.yaml
var bundled embed.FS

// MessageSource looks up locale-specific message templates.
type MessageSource interface {
	// Message returns the template for key in the given locale, or false
	// when the source has none.
	Message(key string, tag language.Tag) (string, bool)
}

// Catalog is a MessageSource backed by per-locale maps. Lookups fall back
// from a locale to its parents, e.g. `de-AT` to `de` to the root locale
// (`und`). A catalog must not be modified once it is in use.
type Catalog struct {
	messages map[language.Tag]map[string]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{messages: map[language.Tag]map[string]string{}}
}

// Set adds a message for the locale. Use language.Und for messages which
// apply to every locale.
func (c *Catalog) Set(tag language.Tag, key, message string) *Catalog {
	m := c.messages[tag]
	if m == nil {
		m = map[string]string{}
		c.messages[tag] = m
	}
	m[key] = message
	return c
}

// Message implements MessageSource.
func (c *Catalog) Message(key string, tag language.Tag) (string, bool) {
	for t := tag; ; t = t.Parent() {
		if msg, ok := c.messages[t][key]; ok {
			return msg, true
		}
		if t == language.Und {
			return "", false
		}
	}
}

// Languages returns the locales which have at least one message.
func (c *Catalog) Languages() []language.Tag {
	tags := make([]language.Tag, 0, len(c.messages))
	for t := range c.messages {
		tags = append(tags, t)
	}
	return tags
}

// LoadCatalog reads a catalog in YAML form, keyed by locale then message
// key:
//
//	und:
//	  default.title: "{status.text}"
//	  widgets.WidgetGone.detail: "Widget {ex.id} was deleted."
//	de:
//	  widgets.WidgetGone.detail: "Widget {ex.id} wurde gelöscht."
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	raw := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse message catalog: %w", err)
	}

	c := NewCatalog()
	for locale, messages := range raw {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q in message catalog: %w", locale, err)
		}
		for k, v := range messages {
			c.Set(tag, k, v)
		}
	}
	return c, nil
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

var (
	defaultMessages     *Catalog
	defaultMessagesOnce sync.Once
)

// DefaultMessages returns the bundled catalog with titles and details for
// the built-in classes.
func DefaultMessages() *Catalog {
	defaultMessagesOnce.Do(func() {
		f, err := bundled.Open("messages/default.yaml")
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if defaultMessages, err = LoadCatalog(f); err != nil {
			panic(err)
		}
	})
	return defaultMessages
}

// Chain is a MessageSource trying each source in order. Put overrides first
// and fallbacks last.
type Chain []MessageSource

// Message implements MessageSource.
func (c Chain) Message(key string, tag language.Tag) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if msg, ok := s.Message(key, tag); ok {
			return msg, true
		}
	}
	return "", false
}

// StaticMessages is a locale-independent MessageSource.
type StaticMessages map[string]string

// Message implements MessageSource.
func (m StaticMessages) Message(key string, _ language.Tag) (string, bool) {
	msg, ok := m[key]
	return msg, ok
}

// RequestLocale returns the client's preferred locale from the
// `Accept-Language` header, or English if there is none.
func RequestLocale(r *http.Request) language.Tag {
	if r == nil {
		return language.English
	}
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}
