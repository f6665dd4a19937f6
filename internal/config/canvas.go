package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrNoCanvasTypes is returned when the canvas file declares no types.
var ErrNoCanvasTypes = errors.New("no canvas types configured")

// CanvasType describes one partner file layout: the partner the rows belong
// to and how the partner's column headers map to canonical field names.
type CanvasType struct {
	Key         string            `validate:"required"`
	PartnerName string            `validate:"required"`
	PartnerType string            `validate:"required"`
	Mapping     map[string]string `validate:"required,min=1,dive,keys,required,endkeys,required"` // canonical field -> source column

	// Fields lists the Mapping keys in declaration order. When two fields
	// name the same source column, the later one takes it.
	Fields []string
}

// canvasTypeDoc is the on-disk shape of a canvas type. The French keys of
// the historical canvas_types.json are accepted alongside the English ones.
type canvasTypeDoc struct {
	PartnerName    string            `yaml:"partner_name"`
	PartnerNom     string            `yaml:"partner_nom"`
	PartenaireNom  string            `yaml:"partenaire_nom"`
	PartnerType    string            `yaml:"partner_type"`
	PartenaireType string            `yaml:"partenaire_type"`
	Mapping        map[string]string `yaml:"mapping"`
}

// CanvasTypes is the ordered set of configured canvas types.
// Order is the order of declaration in the file; classification relies on it.
type CanvasTypes struct {
	order []string
	byKey map[string]CanvasType
}

var validate = validator.New()

// NewCanvasTypes validates and indexes the given types, keeping their order.
// Keys are compared case-insensitively, so "acme" and "ACME" collide.
func NewCanvasTypes(types ...CanvasType) (*CanvasTypes, error) {
	if len(types) == 0 {
		return nil, ErrNoCanvasTypes
	}

	ct := &CanvasTypes{byKey: make(map[string]CanvasType, len(types))}
	seen := make(map[string]string, len(types))

	for _, t := range types {
		t.Key = strings.TrimSpace(t.Key)
		t.PartnerName = strings.TrimSpace(t.PartnerName)
		t.PartnerType = strings.TrimSpace(t.PartnerType)

		if err := validate.Struct(t); err != nil {
			return nil, fmt.Errorf("canvas type %q: %w", t.Key, describeValidation(err))
		}

		upper := strings.ToUpper(t.Key)
		if prev, ok := seen[upper]; ok {
			return nil, fmt.Errorf("canvas type %q duplicates %q", t.Key, prev)
		}
		seen[upper] = t.Key

		ct.order = append(ct.order, t.Key)
		ct.byKey[t.Key] = t
	}

	return ct, nil
}

// LoadCanvasTypes reads the canvas type file at path. YAML and JSON are both
// accepted; the top-level document must contain a canvas_types mapping.
func LoadCanvasTypes(path string) (*CanvasTypes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read canvas config: %w", err)
	}

	ct, err := ParseCanvasTypes(data)
	if err != nil {
		return nil, fmt.Errorf("parse canvas config %s: %w", path, err)
	}
	return ct, nil
}

// ParseCanvasTypes decodes a canvas type document.
// The document is walked as a yaml.Node so declaration order survives.
func ParseCanvasTypes(data []byte) (*CanvasTypes, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrNoCanvasTypes
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top-level document must be a mapping")
	}

	var typesNode *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "canvas_types" {
			typesNode = doc.Content[i+1]
			break
		}
	}
	if typesNode == nil {
		return nil, fmt.Errorf("missing canvas_types section")
	}
	if typesNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("canvas_types must be a mapping")
	}

	types := make([]CanvasType, 0, len(typesNode.Content)/2)
	for i := 0; i+1 < len(typesNode.Content); i += 2 {
		key := typesNode.Content[i].Value

		var d canvasTypeDoc
		if err := typesNode.Content[i+1].Decode(&d); err != nil {
			return nil, fmt.Errorf("canvas type %q: %w", key, err)
		}

		types = append(types, CanvasType{
			Key:         key,
			PartnerName: firstNonEmpty(d.PartnerName, d.PartnerNom, d.PartenaireNom),
			PartnerType: firstNonEmpty(d.PartnerType, d.PartenaireType),
			Mapping:     d.Mapping,
			Fields:      mappingKeys(typesNode.Content[i+1]),
		})
	}

	return NewCanvasTypes(types...)
}

// Keys returns the canvas type keys in declaration order.
func (c *CanvasTypes) Keys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Get returns the canvas type registered under key.
func (c *CanvasTypes) Get(key string) (CanvasType, bool) {
	t, ok := c.byKey[key]
	return t, ok
}

// All returns every canvas type in declaration order.
func (c *CanvasTypes) All() []CanvasType {
	all := make([]CanvasType, 0, len(c.order))
	for _, k := range c.order {
		all = append(all, c.byKey[k])
	}
	return all
}

// Len returns the number of configured canvas types.
func (c *CanvasTypes) Len() int {
	return len(c.order)
}

// mappingKeys returns the keys of a canvas type's mapping section in
// document order.
func mappingKeys(typeNode *yaml.Node) []string {
	if typeNode.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(typeNode.Content); i += 2 {
		if typeNode.Content[i].Value != "mapping" {
			continue
		}
		m := typeNode.Content[i+1]
		if m.Kind != yaml.MappingNode {
			return nil
		}
		keys := make([]string, 0, len(m.Content)/2)
		for j := 0; j+1 < len(m.Content); j += 2 {
			keys = append(keys, m.Content[j].Value)
		}
		return keys
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// describeValidation flattens validator errors into one readable error.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
