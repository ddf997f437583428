package datasheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pefman/w40k-companion/internal/models"
	"github.com/pefman/w40k-companion/internal/roster"
)

// ========================= Tolerant Parsing =========================
// Upstream datasheet fields are loosely formatted strings ("3+", "-1",
// "D6", "4D6+2"); everything here degrades to a sane default instead of
// failing a whole unit load.

func mustAtoi(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	// Strip trailing '+' or '-' and non-digits except first minus
	s2 := strings.TrimSuffix(s, "+")
	// Some fields could be like "-1" for AP
	if n, err := strconv.Atoi(s2); err == nil {
		return n
	}
	// Try parse first integer in string
	num := ""
	for i, r := range s {
		if (r == '-' && i == 0) || (r >= '0' && r <= '9') {
			num += string(r)
		} else if num != "" {
			break
		}
	}
	if n, err := strconv.Atoi(num); err == nil {
		return n
	}
	return def
}

func clamp(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseSave(s string) int { // e.g., "3+" -> 3
	return clamp(2, 6, mustAtoi(s, 4))
}

func parseAP(s string) int { // e.g., "-1" -> 1 added to the save roll
	if s == "" {
		return 0
	}
	ap := mustAtoi(s, 0)
	if ap < 0 {
		return -ap
	}
	return ap
}

func parseAttacks(s string) int {
	// Handle numeric or dice like D6 by picking a reasonable default
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 2
	}
	if s == "D6" {
		return 4
	}
	if s == "D3" {
		return 2
	}
	return mustAtoi(s, 2)
}

func toSlug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "--", "-")
	return s
}

// deriveWeaponRules parses weapon rules from upstream data.
func deriveWeaponRules(w apiWeapon) models.Weapon {
	base := models.Weapon{
		Name:        w.Name,
		Range:       w.Range,
		Attacks:     parseAttacks(w.Attacks),
		AttacksExpr: strings.TrimSpace(w.Attacks),
		Skill:       parseSave(w.BSOrWS),
		S:           mustAtoi(w.Strength, 4),
		AP:          parseAP(w.AP),
		D:           mustAtoi(w.Damage, 1),
		DamageExpr:  strings.TrimSpace(w.Damage),
	}
	blob := strings.ToLower(w.Type + " " + w.Desc)
	tags := []string{}
	if strings.Contains(blob, "lethal hits") {
		base.LethalHits = true
		tags = append(tags, "Lethal Hits")
	}
	if strings.Contains(blob, "twin-linked") {
		base.TwinLinked = true
		tags = append(tags, "Twin-linked")
	}
	if strings.Contains(blob, "torrent") {
		base.Torrent = true
		tags = append(tags, "Torrent")
	}
	if strings.Contains(blob, "devastating wounds") {
		base.DevastatingWounds = true
		tags = append(tags, "Devastating Wounds")
	}
	// Sustained Hits X
	if idx := strings.Index(blob, "sustained hits"); idx >= 0 {
		sub := strings.TrimSpace(blob[idx+len("sustained hits"):])
		n := mustAtoi(sub, 0)
		if n <= 0 { // try format like "sustained hits 1"
			for _, r := range sub {
				if r >= '0' && r <= '9' {
					n = int(r - '0')
					break
				}
			}
		}
		if n > 0 {
			base.SustainedHits = n
			tags = append(tags, fmt.Sprintf("Sustained Hits %d", n))
		}
	}
	// Anti-[X] (n+)
	if idx := strings.Index(blob, "anti-"); idx >= 0 {
		sub := blob[idx+len("anti-"):]
		tag := strings.TrimSpace(sub)
		if p := strings.IndexAny(tag, " (\n\t,"); p >= 0 {
			tag = strings.TrimSpace(tag[:p])
		}
		n := 0
		if p := strings.Index(sub, "("); p >= 0 {
			n = mustAtoi(sub[p+1:], 0)
		} else {
			n = mustAtoi(sub, 0)
		}
		if tag != "" && n >= 2 && n <= 6 {
			base.AntiTag = strings.ToLower(tag)
			base.AntiValue = n
			tags = append(tags, fmt.Sprintf("Anti-%s (%d+)", tag, n))
		}
	}
	base.Tags = tags
	return base
}

func parseFNPAndDR(abs []apiAbility) (fnp int, dr int) {
	fnp, dr = 0, 0
	for _, a := range abs {
		text := strings.ToLower(a.Description + " " + a.Name)
		// FNP
		if strings.Contains(text, "feel no pain") || strings.Contains(text, "fnp") {
			// find number before '+'
			n := 0
			for i := 0; i < len(text); i++ {
				if text[i] >= '2' && text[i] <= '6' {
					if i+1 < len(text) && text[i+1] == '+' {
						n = int(text[i] - '0')
						break
					}
				}
			}
			if n >= 2 && n <= 6 {
				if fnp == 0 || n < fnp {
					fnp = n
				}
			}
		}
		// Damage Reduction patterns
		if strings.Contains(text, "reduce damage by") || strings.Contains(text, "damage reduction") || strings.Contains(text, "-1 damage") {
			n := 1
			if idx := strings.Index(text, "reduce damage by"); idx >= 0 {
				n = mustAtoi(text[idx+len("reduce damage by"):], 1)
			} else if idx := strings.Index(text, "damage reduction"); idx >= 0 {
				n = mustAtoi(text[idx+len("damage reduction"):], 1)
			} else if strings.Contains(text, "-1 damage") {
				n = 1
			}
			if n < 0 {
				n = -n
			}
			if n > dr {
				dr = n
			}
		}
	}
	if dr < 0 {
		dr = 0
	}
	return
}

// roleForModelName tags a model profile by its name.
func roleForModelName(name string) roster.Role {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "sergeant"), strings.Contains(n, "leader"),
		strings.Contains(n, "boss"), strings.Contains(n, "champion"),
		strings.Contains(n, "superior"), strings.Contains(n, "prince"):
		return roster.RoleLeader
	case strings.Contains(n, "heavy"):
		return roster.RoleHeavyWeapon
	case strings.Contains(n, "special"), strings.Contains(n, "gunner"):
		return roster.RoleSpecialWeapon
	default:
		return roster.RoleRegular
	}
}

// buildComposition derives the template makeup from the model profile rows
// and the squad size parsed from the cost line. Named leader/weapon
// profiles take one slot each; regulars fill the rest.
func buildComposition(rows []apiModel, squad int) []roster.RoleComposition {
	if squad < 1 {
		squad = 1
	}
	if len(rows) == 0 {
		return nil
	}
	var special []roster.RoleComposition
	regularWounds := 0
	for _, row := range rows {
		w := mustAtoi(row.W, 1)
		if w < 1 {
			w = 1
		}
		role := roleForModelName(row.Name)
		if role == roster.RoleRegular {
			if regularWounds == 0 {
				regularWounds = w
			}
			continue
		}
		special = append(special, roster.RoleComposition{Role: role, Count: 1, WoundsPerModel: w})
	}
	if regularWounds == 0 {
		regularWounds = mustAtoi(rows[0].W, 1)
	}
	rest := squad - len(special)
	out := special
	if rest > 0 {
		out = append(out, roster.RoleComposition{Role: roster.RoleRegular, Count: rest, WoundsPerModel: regularWounds})
	}
	return out
}
