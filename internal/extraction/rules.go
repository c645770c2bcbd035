// Package extraction pulls named fields out of recognized contract text using
// declarative, per-document-type rule sets.
package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Lllllllleong/contractextraction/internal/models"
)

// Rule produces one or more named fields from text.
type Rule interface {
	// Fields lists the names this rule populates, in output order.
	Fields() []string
	// Apply evaluates the rule. Every name from Fields is present in the
	// result; fallback fills those that could not be extracted.
	Apply(text, fallback string) []models.Field
	validate() error
}

// FieldRule extracts a single field from one capture group.
type FieldRule struct {
	Name    string
	Pattern *regexp.Regexp
	Group   int
	// Fallback overrides the rule set fallback when non-empty.
	Fallback string
}

func (r FieldRule) Fields() []string { return []string{r.Name} }

func (r FieldRule) Apply(text, fallback string) []models.Field {
	if r.Fallback != "" {
		fallback = r.Fallback
	}
	m := r.Pattern.FindStringSubmatchIndex(text)
	return []models.Field{{Name: r.Name, Value: groupValue(text, m, r.Group, fallback)}}
}

func (r FieldRule) validate() error {
	if r.Name == "" {
		return fmt.Errorf("field rule has no name")
	}
	return checkGroups(r.Name, r.Pattern, r.Group)
}

// PairRule extracts two fields from a single match, one per capture group.
// Either both values come from the same match or both fall back.
type PairRule struct {
	Names    [2]string
	Pattern  *regexp.Regexp
	Groups   [2]int
	Fallback string
}

func (r PairRule) Fields() []string { return r.Names[:] }

func (r PairRule) Apply(text, fallback string) []models.Field {
	if r.Fallback != "" {
		fallback = r.Fallback
	}
	m := r.Pattern.FindStringSubmatchIndex(text)
	if m == nil {
		return []models.Field{{Name: r.Names[0], Value: fallback}, {Name: r.Names[1], Value: fallback}}
	}
	return []models.Field{
		{Name: r.Names[0], Value: groupValue(text, m, r.Groups[0], fallback)},
		{Name: r.Names[1], Value: groupValue(text, m, r.Groups[1], fallback)},
	}
}

func (r PairRule) validate() error {
	if r.Names[0] == "" || r.Names[1] == "" || r.Names[0] == r.Names[1] {
		return fmt.Errorf("pair rule needs two distinct names, got %q and %q", r.Names[0], r.Names[1])
	}
	if err := checkGroups(r.Names[0], r.Pattern, r.Groups[0]); err != nil {
		return err
	}
	return checkGroups(r.Names[1], r.Pattern, r.Groups[1])
}

func checkGroups(name string, pattern *regexp.Regexp, group int) error {
	if pattern == nil {
		return fmt.Errorf("rule %q has no pattern", name)
	}
	if group < 0 || group > pattern.NumSubexp() {
		return fmt.Errorf("rule %q: capture group %d out of range (pattern has %d)", name, group, pattern.NumSubexp())
	}
	return nil
}

// groupValue returns the trimmed text of group in match m, or fallback when
// there is no match, the group did not participate, or it is blank.
func groupValue(text string, m []int, group int, fallback string) string {
	if m == nil || 2*group+1 >= len(m) || m[2*group] < 0 {
		return fallback
	}
	v := strings.TrimSpace(text[m[2*group]:m[2*group+1]])
	if v == "" {
		return fallback
	}
	return v
}
