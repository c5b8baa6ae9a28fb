package membership

import (
	_ "embed"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/staffgate/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Stickers names the stickers sent with the final verdict.
type Stickers struct {
	Congratulation string `yaml:"congratulation"`
	Regret         string `yaml:"regret"`
}

// Catalog holds every user-facing string of the workflows.
type Catalog struct {
	Texts    map[string]string      `yaml:"texts"`
	Buttons  map[string]string      `yaml:"buttons"`
	Access   map[domain.Role]string `yaml:"access"`
	Badges   map[string]string      `yaml:"badges"`
	Stickers Stickers               `yaml:"stickers"`
}

var requiredTexts = []string{
	"greeting", "role_selection", "confirm_role", "send_contact", "wait",
	"already_waiting", "already_registered", "consideration", "no_free_files",
	"file_selection", "confirm_file", "confirm_accept_employee", "confirm_accept_admin",
	"confirm_reject", "alias_prompt", "confirm_alias", "added_to_members",
	"added_to_blacklist", "access_allowed", "access_denied", "superuser_help",
	"staff_header", "staff_row", "no_file", "no_staff", "pre_invite", "invite",
}

var requiredButtons = []string{
	"confirm", "back", "role_employee", "role_admin", "contact", "accept",
	"accept_without_file", "reject", "file", "invite",
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultMessages, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded message catalog: %v", err))
	}
	return c
}

// LoadCatalog reads the embedded catalog and overlays the file at path.
// Keys missing from the override keep their default text.
func LoadCatalog(path string) (*Catalog, error) {
	base := DefaultCatalog()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message catalog: %w", err)
	}
	return parseCatalog(raw, base)
}

func parseCatalog(raw []byte, base *Catalog) (*Catalog, error) {
	c := base
	if c == nil {
		c = &Catalog{}
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	var missing []string
	for _, key := range requiredTexts {
		if _, ok := c.Texts[key]; !ok {
			missing = append(missing, "texts."+key)
		}
	}
	for _, key := range requiredButtons {
		if _, ok := c.Buttons[key]; !ok {
			missing = append(missing, "buttons."+key)
		}
	}
	for _, role := range domain.ApplicableRoles {
		if _, ok := c.Access[role]; !ok {
			missing = append(missing, "access."+string(role))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("message catalog is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Text renders a text template. kv alternates placeholder names and
// values. Texts are sent as HTML, so values are escaped.
func (c *Catalog) Text(key string, kv ...string) string {
	return render(c.Texts[key], kv, html.EscapeString)
}

// Button renders a button caption. Captions are plain text.
func (c *Catalog) Button(key string, kv ...string) string {
	return render(c.Buttons[key], kv, nil)
}

// Badge returns the badge of a role.
func (c *Catalog) Badge(role domain.Role) string {
	return c.Badges[string(role)]
}

func render(tpl string, kv []string, escape func(string) string) string {
	if len(kv) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		value := kv[i+1]
		if escape != nil {
			value = escape(value)
		}
		pairs = append(pairs, "{"+kv[i]+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
