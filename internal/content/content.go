// Package content holds the page copy and the contact links built from it.
package content

import (
	_ "embed"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var siteYAML []byte

type Brand struct {
	Name    string `yaml:"name"`
	Tagline string `yaml:"tagline"`
	Base    string `yaml:"base"`
	Email   string `yaml:"email"`
	Legal   string `yaml:"legal"`
}

type HeroVariant struct {
	ID       string `yaml:"-"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

type Highlight struct {
	Lead string `yaml:"lead"`
	Text string `yaml:"text"`
}

type Hero struct {
	DefaultVariant string                 `yaml:"default_variant"`
	Variants       map[string]HeroVariant `yaml:"variants"`
	Highlights     []Highlight            `yaml:"highlights"`
	Zone           string                 `yaml:"zone"`
	Rating         string                 `yaml:"rating"`
	Proof          string                 `yaml:"proof"`
	Steps          []string               `yaml:"steps"`
}

type Service struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	Bullets []string `yaml:"bullets"`
	CTA     string   `yaml:"cta"`
}

type BookingService struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

type Coverage struct {
	Base  string   `yaml:"base"`
	Towns []string `yaml:"towns"`
}

type Testimonial struct {
	Quote  string `yaml:"quote"`
	Author string `yaml:"author"`
	Town   string `yaml:"town"`
	Stars  int    `yaml:"stars"`
}

type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type CTA struct {
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// Site is the full page copy.
type Site struct {
	Brand           Brand            `yaml:"brand"`
	Hero            Hero             `yaml:"hero"`
	Services        []Service        `yaml:"services"`
	BookingServices []BookingService `yaml:"booking_services"`
	Coverage        Coverage         `yaml:"coverage"`
	Testimonials    []Testimonial    `yaml:"testimonials"`
	FAQ             []FAQ            `yaml:"faq"`
	CTA             CTA              `yaml:"cta"`
}

// Load parses the embedded copy.
func Load() (*Site, error) {
	return Parse(siteYAML)
}

func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to parse site content: %w", err)
	}
	if _, ok := site.Hero.Variants[site.Hero.DefaultVariant]; !ok {
		return nil, fmt.Errorf("hero default variant %q is not defined", site.Hero.DefaultVariant)
	}
	if _, ok := site.Hero.Variants[heroVariantAlt]; !ok {
		return nil, fmt.Errorf("hero variant %q is not defined", heroVariantAlt)
	}
	for id, v := range site.Hero.Variants {
		v.ID = id
		site.Hero.Variants[id] = v
	}
	return &site, nil
}

const heroVariantAlt = "1"

// SelectHeroVariant picks the hero copy. An explicit ?v= value wins; with
// none, rnd decides between "1" and "2" evenly. Only "1" switches to the
// alternative copy, anything else shows the default.
func (s *Site) SelectHeroVariant(param string, rnd func() float64) HeroVariant {
	v := param
	if v == "" {
		if rnd() < 0.5 {
			v = "1"
		} else {
			v = "2"
		}
	}
	if v == heroVariantAlt {
		return s.Hero.Variants[heroVariantAlt]
	}
	return s.Hero.Variants[s.Hero.DefaultVariant]
}

var nonDigits = regexp.MustCompile(`\D`)

// WhatsAppURL opens a WhatsApp chat with phone and a prefilled text.
func WhatsAppURL(phone, text string) string {
	u := "https://wa.me/" + nonDigits.ReplaceAllString(phone, "")
	if text == "" {
		return u
	}
	return u + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

func PhoneURL(phone string) string {
	return "tel:" + phone
}
