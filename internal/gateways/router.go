package gateways

import (
	"fmt"
	"strings"
)

const (
	NamePaystack  = "paystack"
	NameTrueLayer = "truelayer"
	NameNium      = "nium"
)

// Router selects a gateway by currency. The selection is deterministic and
// is computed once per payment attempt; the chosen name is stored on the
// transaction and never re-derived when a webhook arrives.
type Router struct {
	clients map[string]Client
}

func NewRouter(clients ...Client) *Router {
	r := &Router{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		if c == nil {
			continue
		}
		r.clients[c.Name()] = c
	}
	return r
}

// RouteByCurrency maps a currency to the gateway handling it. NGN charges
// run on the card/mobile-money rail, GBP on open banking, everything else
// on the global processor.
func (r *Router) RouteByCurrency(currency string) string {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "NGN":
		return NamePaystack
	case "GBP":
		return NameTrueLayer
	default:
		return NameNium
	}
}

// ByName returns the named client, for webhook dispatch and explicit
// overrides.
func (r *Router) ByName(name string) (Client, error) {
	c, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("gateways: unknown gateway %q", name)
	}
	return c, nil
}

// ForCurrency resolves the routed client directly.
func (r *Router) ForCurrency(currency string) (Client, error) {
	return r.ByName(r.RouteByCurrency(currency))
}
