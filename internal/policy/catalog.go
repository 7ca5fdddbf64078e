package policy

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/xela07ax/brief-governance/internal/domain"
	"gopkg.in/yaml.v3"
)

// FormatSpec формат (канал) и минимальный тир клуба, которому он доступен.
type FormatSpec struct {
	Code    string          `yaml:"code" json:"code"`
	MinTier domain.ClubTier `yaml:"min_tier" json:"min_tier"`
}

// Catalog справочник форматов и схем шаблон-специфичных полей (по коду шаблона).
type Catalog struct {
	Formats []FormatSpec                  `yaml:"formats" json:"formats"`
	Schemas map[string]domain.FieldSchema `yaml:"schemas" json:"schemas"`

	index map[string]FormatSpec
}

// Format ищет формат по коду.
func (c *Catalog) Format(code string) (FormatSpec, bool) {
	f, ok := c.index[code]
	return f, ok
}

// Schema схема полей шаблона. Для неизвестного шаблона пустая схема: доп. поля запрещены.
func (c *Catalog) Schema(templateCode string) domain.FieldSchema {
	if s, ok := c.Schemas[templateCode]; ok {
		return s
	}
	return domain.FieldSchema{}
}

// Validate проверяет, что справочник пригоден к работе.
func (c *Catalog) Validate() error {
	if len(c.Formats) == 0 {
		return fmt.Errorf("catalog.formats must not be empty")
	}
	seen := make(map[string]bool, len(c.Formats))
	for i, f := range c.Formats {
		if f.Code == "" {
			return fmt.Errorf("catalog.formats[%d].code is required", i)
		}
		if seen[f.Code] {
			return fmt.Errorf("catalog.formats: duplicate code %q", f.Code)
		}
		seen[f.Code] = true
		if f.MinTier != "" && tierRank(f.MinTier) < 0 {
			return fmt.Errorf("catalog.formats[%s].min_tier %q is unknown", f.Code, f.MinTier)
		}
	}
	for tpl, schema := range c.Schemas {
		for field, spec := range schema {
			switch spec.Type {
			case domain.FieldString, domain.FieldNumber, domain.FieldBool, domain.FieldList:
			default:
				return fmt.Errorf("catalog.schemas[%s].%s: unknown type %q", tpl, field, spec.Type)
			}
		}
	}
	return nil
}

func (c *Catalog) buildIndex() {
	c.index = make(map[string]FormatSpec, len(c.Formats))
	for _, f := range c.Formats {
		if f.MinTier == "" {
			f.MinTier = domain.TierStandard
		}
		c.index[f.Code] = f
	}
}

// FromYAML разбирает и валидирует справочник.
func FromYAML(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.buildIndex()
	return &c, nil
}

// LoadCatalog читает справочник из файла. Пустой путь означает встроенный справочник.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return FromYAML(data)
}

// DefaultCatalog встроенный справочник.
func DefaultCatalog() *Catalog {
	var c Catalog
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultCatalog)).Decode(&c)
	c.buildIndex()
	return &c
}

// tierRank порядок тиров без учета регистра. Пустой тир трактуется как STANDARD, неизвестный как -1.
func tierRank(t domain.ClubTier) int {
	switch domain.ClubTier(strings.ToUpper(strings.TrimSpace(string(t)))) {
	case domain.TierStandard, "":
		return 0
	case domain.TierPremium:
		return 1
	case domain.TierFlagship:
		return 2
	}
	return -1
}

const defaultCatalog = `formats:
  - code: instagram_post
  - code: instagram_story
  - code: facebook_post
  - code: email
  - code: poster_a3
  - code: flyer
  - code: in_club_screen
  - code: video_short
    min_tier: PREMIUM
  - code: landing_page
    min_tier: PREMIUM
  - code: video_long
    min_tier: FLAGSHIP
  - code: billboard
    min_tier: FLAGSHIP
  - code: radio_spot
    min_tier: FLAGSHIP

schemas:
  EVENT_PROMO:
    event_date:
      type: string
      required: true
    venue:
      type: string
    capacity:
      type: number
  MEMBERSHIP_OFFER:
    discount_percent:
      type: number
      required: true
    promo_code:
      type: string
    new_members_only:
      type: bool
  SOCIAL_CAMPAIGN:
    hashtags:
      type: list
    handles:
      type: list
`
