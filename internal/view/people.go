package view

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/semanticallynull/spinroom/profile"
)

// LowCredit is the balance at or below which a card is flagged.
const LowCredit = 2

type PersonCard struct {
	ID       string       `json:"id"`
	FullName string       `json:"fullName"`
	Initials string       `json:"initials"`
	Phone    string       `json:"phone,omitempty"`
	Notes    string       `json:"notes,omitempty"`
	Role     profile.Role `json:"role"`
	Credits  int          `json:"credits"`
	Active   bool         `json:"active"`
	Low      bool         `json:"low"`
	// CanDeduct is false when there is no credit to take away.
	CanDeduct bool `json:"canDeduct"`
}

func card(p profile.Profile) PersonCard {
	name := p.FullName
	if name == "" {
		name = "Sin Nombre"
	}
	return PersonCard{
		ID:        p.ID,
		FullName:  name,
		Initials:  initials(name),
		Phone:     p.Phone.String,
		Notes:     p.Notes.String,
		Role:      p.Role,
		Credits:   p.CreditsRemaining,
		Active:    p.IsActive,
		Low:       p.CreditsRemaining <= LowCredit,
		CanDeduct: p.CreditsRemaining > 0,
	}
}

func initials(name string) string {
	var out []rune
	for _, w := range strings.Fields(name) {
		out = append(out, unicode.ToUpper([]rune(w)[0]))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

type ClientGrid struct {
	Cards  []PersonCard `json:"cards"`
	Total  int          `json:"total"`
	Active int          `json:"active"`
	Low    int          `json:"low"`
}

// Clients lists client profiles matching query by name or phone, ordered by
// name. Matching ignores case and accents.
func Clients(ps []profile.Profile, query string) ClientGrid {
	q := fold(strings.TrimSpace(query))
	var g ClientGrid
	for _, p := range sortedByName(ps) {
		if p.Role != profile.RoleClient {
			continue
		}
		if q != "" && !strings.Contains(fold(p.FullName), q) && !strings.Contains(p.Phone.String, query) {
			continue
		}
		c := card(p)
		g.Cards = append(g.Cards, c)
		g.Total++
		if c.Active {
			g.Active++
		}
		if c.Low {
			g.Low++
		}
	}
	return g
}

type UserGrid struct {
	Cards       []PersonCard `json:"cards"`
	Total       int          `json:"total"`
	Active      int          `json:"active"`
	Admins      int          `json:"admins"`
	Instructors int          `json:"instructors"`
}

// Users lists staff profiles, admins first, each group ordered by name.
func Users(ps []profile.Profile) UserGrid {
	var g UserGrid
	staff := slices.DeleteFunc(sortedByName(ps), func(p profile.Profile) bool { return !p.IsStaff() })
	for _, role := range []profile.Role{profile.RoleAdmin, profile.RoleInstructor} {
		for _, p := range staff {
			if p.Role != role {
				continue
			}
			c := card(p)
			g.Cards = append(g.Cards, c)
			g.Total++
			if c.Active {
				g.Active++
			}
			if role == profile.RoleAdmin {
				g.Admins++
			} else {
				g.Instructors++
			}
		}
	}
	return g
}

func sortedByName(ps []profile.Profile) []profile.Profile {
	out := slices.Clone(ps)
	col := collate.New(language.Spanish, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b profile.Profile) int {
		return col.CompareString(a.FullName, b.FullName)
	})
	return out
}

// fold lowercases s and drops accents.
func fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
