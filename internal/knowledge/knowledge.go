// Package knowledge holds the practice's static site knowledge: office
// details, FAQ content, the page registry used for SEO, supplemental page
// content and the public content collections. A Base is built once at
// startup and is read-only afterwards, so it is safe for concurrent readers.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultSite []byte

// Address is the office's postal address.
type Address struct {
	Line1      string `yaml:"line1" json:"line1"`
	City       string `yaml:"city" json:"city"`
	Region     string `yaml:"region" json:"region"`
	PostalCode string `yaml:"postal_code" json:"postalCode"`
}

// Hours lists opening hours per weekday as display strings.
type Hours struct {
	Monday    string `yaml:"monday" json:"monday"`
	Tuesday   string `yaml:"tuesday" json:"tuesday"`
	Wednesday string `yaml:"wednesday" json:"wednesday"`
	Thursday  string `yaml:"thursday" json:"thursday"`
	Friday    string `yaml:"friday" json:"friday"`
	Saturday  string `yaml:"saturday" json:"saturday"`
	Sunday    string `yaml:"sunday" json:"sunday"`
}

// DayHours pairs a weekday name with its opening hours.
type DayHours struct {
	Day   string
	Hours string
}

// Week returns the hours Monday through Sunday, in that order.
func (h Hours) Week() []DayHours {
	return []DayHours{
		{"Monday", h.Monday},
		{"Tuesday", h.Tuesday},
		{"Wednesday", h.Wednesday},
		{"Thursday", h.Thursday},
		{"Friday", h.Friday},
		{"Saturday", h.Saturday},
		{"Sunday", h.Sunday},
	}
}

// Office is the single source of truth for contact details.
type Office struct {
	Name      string  `yaml:"name" json:"name"`
	Phone     string  `yaml:"phone" json:"phone"`
	PhoneE164 string  `yaml:"phone_e164" json:"phoneE164"`
	Email     string  `yaml:"email" json:"email"`
	Address   Address `yaml:"address" json:"address"`
	Hours     Hours   `yaml:"hours" json:"hours"`
	MapURL    string  `yaml:"map_url" json:"mapUrl"`
}

// FormattedAddress renders the address on one line.
func (o Office) FormattedAddress() string {
	a := o.Address
	return fmt.Sprintf("%s, %s, %s %s", a.Line1, a.City, a.Region, a.PostalCode)
}

// TelHref returns a tel: link for the office phone.
func (o Office) TelHref() string {
	return "tel:" + o.PhoneE164
}

// FAQ is one question/answer pair.
type FAQ struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Page is an entry of the SEO page registry.
type Page struct {
	Path          string `yaml:"path" json:"path"`
	Title         string `yaml:"title" json:"title"`
	Description   string `yaml:"description" json:"description"`
	Indexable     bool   `yaml:"indexable" json:"indexable"`
	CanonicalPath string `yaml:"canonical_path" json:"canonicalPath,omitempty"`
}

// ContentBlock is a section of supplemental page copy.
type ContentBlock struct {
	Heading    string   `yaml:"heading" json:"heading,omitempty"`
	Paragraphs []string `yaml:"paragraphs" json:"paragraphs"`
	Bullets    []string `yaml:"bullets" json:"bullets,omitempty"`
}

// Service is a treatment listed on the services page.
type Service struct {
	Slug    string `yaml:"slug" json:"slug"`
	Name    string `yaml:"name" json:"name"`
	Summary string `yaml:"summary" json:"summary"`
}

// BlogPost is a published article.
type BlogPost struct {
	Slug      string `yaml:"slug" json:"slug"`
	Title     string `yaml:"title" json:"title"`
	Summary   string `yaml:"summary" json:"summary"`
	Published string `yaml:"published" json:"published"`
	Body      string `yaml:"body" json:"body"`
}

// Testimonial is a patient review shown on the site.
type Testimonial struct {
	Author string `yaml:"author" json:"author"`
	Quote  string `yaml:"quote" json:"quote"`
	Rating int    `yaml:"rating" json:"rating"`
}

// PageEntry is a page-registry entry prepared for keyword retrieval.
type PageEntry struct {
	Path        string
	Title       string
	Description string
	Indexable   bool
	// Keywords is path, title and description joined and lowercased.
	Keywords string
}

// Base is the loaded, immutable knowledge base.
type Base struct {
	Office       Office                    `yaml:"office"`
	QuickPrompts []string                  `yaml:"quick_prompts"`
	Pages        []Page                    `yaml:"pages"`
	Content      map[string][]ContentBlock `yaml:"content"`
	FAQs         []FAQ                     `yaml:"faqs"`
	Services     []Service                 `yaml:"services"`
	Blog         []BlogPost                `yaml:"blog"`
	Testimonials []Testimonial             `yaml:"testimonials"`

	index  []PageEntry
	byPath map[string]int
}

// Default parses the embedded site knowledge.
func Default() (*Base, error) {
	return Parse(defaultSite)
}

// MustDefault is Default for tests and program start-up.
func MustDefault() *Base {
	b, err := Default()
	if err != nil {
		panic(err)
	}
	return b
}

// Load reads a knowledge file from path, or the embedded default when path is empty.
func Load(path string) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML knowledge document and builds the page index.
func Parse(data []byte) (*Base, error) {
	var b Base
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("knowledge: decode: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	b.buildIndex()
	return &b, nil
}

func (b *Base) validate() error {
	if strings.TrimSpace(b.Office.Name) == "" {
		return ErrMissingOffice
	}
	if strings.TrimSpace(b.Office.Phone) == "" || strings.TrimSpace(b.Office.PhoneE164) == "" {
		return ErrMissingPhone
	}
	seen := make(map[string]struct{}, len(b.Pages))
	for _, p := range b.Pages {
		if !strings.HasPrefix(p.Path, "/") || strings.HasPrefix(p.Path, "//") {
			return fmt.Errorf("%w: %q", ErrInvalidPagePath, p.Path)
		}
		if _, dup := seen[p.Path]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePage, p.Path)
		}
		seen[p.Path] = struct{}{}
	}
	for i, f := range b.FAQs {
		if strings.TrimSpace(f.Question) == "" || strings.TrimSpace(f.Answer) == "" {
			return fmt.Errorf("%w: entry %d", ErrEmptyFAQ, i)
		}
	}
	return nil
}

func (b *Base) buildIndex() {
	b.index = make([]PageEntry, 0, len(b.Pages))
	b.byPath = make(map[string]int, len(b.Pages))
	for _, p := range b.Pages {
		b.byPath[p.Path] = len(b.index)
		b.index = append(b.index, PageEntry{
			Path:        p.Path,
			Title:       p.Title,
			Description: p.Description,
			Indexable:   p.Indexable,
			Keywords:    strings.ToLower(strings.Join([]string{p.Path, p.Title, p.Description}, " ")),
		})
	}
}

// PageIndex returns the page-knowledge entries in registry order.
func (b *Base) PageIndex() []PageEntry {
	return b.index
}

// Page looks up a page-knowledge entry by path.
func (b *Base) Page(path string) (PageEntry, bool) {
	i, ok := b.byPath[path]
	if !ok {
		return PageEntry{}, false
	}
	return b.index[i], true
}

// FirstBlock returns the first supplemental content block for a path.
func (b *Base) FirstBlock(path string) (ContentBlock, bool) {
	blocks := b.Content[path]
	if len(blocks) == 0 {
		return ContentBlock{}, false
	}
	return blocks[0], true
}

// BlogPost finds a post by slug.
func (b *Base) BlogPost(slug string) (BlogPost, bool) {
	for _, p := range b.Blog {
		if p.Slug == slug {
			return p, true
		}
	}
	return BlogPost{}, false
}
