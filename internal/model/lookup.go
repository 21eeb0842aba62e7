package model

import "strconv"

// Lookup is the common shape of the simple reference tables. Handyman rows
// carry their label in type_name and taxes in tax_name.
type Lookup struct {
	ID          int    `json:"id"`
	Name        string `json:"name,omitempty"`
	TypeName    string `json:"type_name,omitempty"`
	TaxName     string `json:"tax_name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (l Lookup) Label() string {
	switch {
	case l.Name != "":
		return l.Name
	case l.TypeName != "":
		return l.TypeName
	default:
		return l.TaxName
	}
}

func (l Lookup) Option() Option {
	return Option{Value: strconv.Itoa(l.ID), Label: l.Label()}
}

// LookupOptions converts rows into select options, keeping order.
func LookupOptions(rows []Lookup) []Option {
	out := make([]Option, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Option())
	}
	return out
}

// Item belongs to exactly one Room.
type Item struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Room        int    `json:"room"`
}
