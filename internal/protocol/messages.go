package protocol

import (
	"time"

	"baseparts.ai/internal/sim/baseparts"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// Subscribe asks for RELOADED pushes after every catalog rebuild.
	Subscribe bool `json:"subscribe,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Catalog         CatalogSummary `json:"catalog"`
}

type CatalogSummary struct {
	Digest    string          `json:"digest"`
	LoadedAt  string          `json:"loaded_at,omitempty"`
	Stats     baseparts.Stats `json:"stats"`
	Resources []string        `json:"resources"`
}

// QUERY (client -> server). Class is "core", "independent" or "required";
// "required" needs Resource ("item:copper", "liquid:water").
type QueryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Class           string `json:"class"`
	Resource        string `json:"resource,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

// PARTS (server -> client): answer to a QUERY, cheapest first.
type PartsMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ID              string     `json:"id"`
	Digest          string     `json:"digest"`
	Parts           []PartView `json:"parts"`
}

type PartView struct {
	Name     string  `json:"name"`
	Class    string  `json:"class"`
	Required string  `json:"required,omitempty"`
	Core     string  `json:"core,omitempty"`
	Tier     float64 `json:"tier"`
	CenterX  int     `json:"center_x"`
	CenterY  int     `json:"center_y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Tiles    int     `json:"tiles"`
}

// RELOADED (server -> client): a new catalog was published.
type ReloadedMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Catalog         CatalogSummary `json:"catalog"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func Summary(reg *baseparts.Registry) CatalogSummary {
	s := CatalogSummary{Resources: []string{}}
	if reg == nil {
		return s
	}
	s.Digest = reg.Digest
	if !reg.LoadedAt.IsZero() {
		s.LoadedAt = reg.LoadedAt.Format(time.RFC3339)
	}
	s.Stats = reg.Stats()
	for _, r := range reg.Resources() {
		s.Resources = append(s.Resources, r.String())
	}
	return s
}

func ViewOf(p *baseparts.Part) PartView {
	v := PartView{
		Name:    p.Name,
		Class:   p.Class().String(),
		Core:    p.Core,
		Tier:    p.Tier,
		CenterX: p.CenterX,
		CenterY: p.CenterY,
	}
	if !p.Required.IsZero() {
		v.Required = p.Required.String()
	}
	if p.Schematic != nil {
		v.Width = p.Schematic.Width
		v.Height = p.Schematic.Height
		v.Tiles = len(p.Schematic.Tiles)
	}
	return v
}

func Views(ps []*baseparts.Part, limit int) []PartView {
	if limit > 0 && len(ps) > limit {
		ps = ps[:limit]
	}
	out := make([]PartView, 0, len(ps))
	for _, p := range ps {
		out = append(out, ViewOf(p))
	}
	return out
}
