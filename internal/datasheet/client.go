package datasheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pefman/w40k-companion/internal/cache"
	"github.com/pefman/w40k-companion/internal/models"
)

// ========================= Datasheet API Client =========================
// The upstream datasheet service is consumed as a black box: loosely typed
// JSON rows that get mapped into gameplay-ready shapes. Responses are
// cached per key with an explicit TTL; Invalidate forces a refetch.

type Faction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Upstream row types.
type apiUnit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

type apiWeapon struct {
	Name     string `json:"name"`
	Range    string `json:"range"`
	Type     string `json:"type"`
	Desc     string `json:"description"`
	Attacks  string `json:"attacks"`
	BSOrWS   string `json:"bs_ws"`
	Strength string `json:"strength"`
	AP       string `json:"ap"`
	Damage   string `json:"damage"`
}

type apiModel struct {
	Name string `json:"name"`
	T    string `json:"T"`
	Sv   string `json:"Sv"`
	Inv  string `json:"inv_sv"`
	InvD string `json:"inv_sv_descr"`
	W    string `json:"W"`
}

type apiKeyword struct {
	Keyword string `json:"keyword"`
	Model   string `json:"model"`
}

type apiAbility struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type apiCost struct {
	Line        int    `json:"line"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
}

type Client struct {
	baseURL string
	http    *http.Client

	factions *cache.TTL[[]Faction]
	sheets   *cache.TTL[[]models.Datasheet]
}

func NewClient(baseURL string, ttl time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 8 * time.Second},
		factions: cache.New[[]Faction](ttl),
		sheets:   cache.New[[]models.Datasheet](ttl),
	}
}

func (c *Client) apiGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Factions lists upstream factions, cached.
func (c *Client) Factions(ctx context.Context) ([]Faction, error) {
	return c.factions.GetOrFetch("factions", func() ([]Faction, error) {
		var res []Faction
		if err := c.apiGet(ctx, "/api/factions", &res); err != nil {
			return nil, fmt.Errorf("fetch factions: %w", err)
		}
		sort.Slice(res, func(i, j int) bool { return strings.ToLower(res[i].Name) < strings.ToLower(res[j].Name) })
		return res, nil
	})
}

// Datasheets builds gameplay-ready datasheets for a faction name, cached
// per faction slug.
func (c *Client) Datasheets(ctx context.Context, factionName string) ([]models.Datasheet, error) {
	slug := toSlug(factionName)
	return c.sheets.GetOrFetch(slug, func() ([]models.Datasheet, error) {
		return c.fetchDatasheets(ctx, factionName, slug)
	})
}

func (c *Client) fetchDatasheets(ctx context.Context, factionName, slug string) ([]models.Datasheet, error) {
	var list []apiUnit
	if err := c.apiGet(ctx, "/api/"+slug+"/units", &list); err != nil {
		return nil, fmt.Errorf("fetch units for %s: %w", factionName, err)
	}
	out := make([]models.Datasheet, 0, len(list))
	for _, u := range list {
		var rows []apiModel
		if err := c.apiGet(ctx, "/api/"+slug+"/"+u.ID+"/models", &rows); err != nil {
			// Skip units that fail to load
			continue
		}
		// First model row carries the unit-level stats
		W, T, Sv := 1, 4, 4
		inv := 0
		if len(rows) > 0 {
			W = mustAtoi(rows[0].W, 1)
			T = mustAtoi(rows[0].T, 4)
			Sv = parseSave(rows[0].Sv)
			inv = parseSave(rows[0].Inv)
			if strings.TrimSpace(rows[0].Inv) == "" {
				inv = 0
			}
		}
		var apiW []apiWeapon
		if err := c.apiGet(ctx, "/api/"+slug+"/"+u.ID+"/weapons", &apiW); err != nil {
			apiW = nil
		}
		var apiK []apiKeyword
		_ = c.apiGet(ctx, "/api/"+slug+"/"+u.ID+"/keywords", &apiK)
		var apiA []apiAbility
		_ = c.apiGet(ctx, "/api/"+slug+"/"+u.ID+"/abilities", &apiA)
		var costs []apiCost
		_ = c.apiGet(ctx, "/api/"+slug+"/"+u.ID+"/costs", &costs)

		pts, squad := 0, 1
		for _, cost := range costs {
			if n := mustAtoi(cost.Cost, 0); n > 0 && pts == 0 {
				pts = n
			}
			if n := mustAtoi(cost.Description, 0); n > squad {
				squad = n
			}
		}
		keywords := make([]string, 0, len(apiK))
		for _, k := range apiK {
			if s := strings.TrimSpace(k.Keyword); s != "" {
				keywords = append(keywords, s)
			}
		}
		fnp, dr := parseFNPAndDR(apiA)
		weps := make([]models.Weapon, 0, len(apiW))
		for _, w := range apiW {
			weps = append(weps, deriveWeaponRules(w))
		}
		if len(weps) == 0 {
			weps = []models.Weapon{{Name: "Generic", Range: "24", Attacks: 2, Skill: 4, S: T, AP: 0, D: 1}}
		}
		out = append(out, models.Datasheet{
			Faction:     factionName,
			Name:        u.Name,
			Role:        u.Role,
			W:           W,
			T:           T,
			Sv:          Sv,
			InvSv:       inv,
			Keywords:    keywords,
			FNP:         fnp,
			DamageRed:   dr,
			Weapons:     weps,
			Points:      pts,
			Composition: buildComposition(rows, squad),
		})
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	if len(out) == 0 {
		return nil, errors.New("no datasheets found for faction")
	}
	return out, nil
}

// Datasheet returns a single sheet by name (case-insensitive).
func (c *Client) Datasheet(ctx context.Context, factionName, unitName string) (models.Datasheet, error) {
	sheets, err := c.Datasheets(ctx, factionName)
	if err != nil {
		return models.Datasheet{}, err
	}
	for _, ds := range sheets {
		if strings.EqualFold(ds.Name, unitName) {
			return ds, nil
		}
	}
	return models.Datasheet{}, fmt.Errorf("datasheet %q not found in %s", unitName, factionName)
}

// Invalidate drops the cached sheets for one faction and the faction list.
func (c *Client) Invalidate(factionName string) {
	c.sheets.Invalidate(toSlug(factionName))
	c.factions.Invalidate("factions")
}
