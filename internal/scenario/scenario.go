// Package scenario holds the fixed catalog of role-play scenarios.
package scenario

import "errors"

// FreeID selects free-conversation mode. An empty id is treated the same way.
const FreeID = "free"

// ErrUnknown is returned when a scenario id is not in the catalog.
var ErrUnknown = errors.New("unknown scenario")

// Definition describes one role-play scenario. Definitions are immutable and
// shared read-only across all sessions.
type Definition struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Role        string   `json:"role,omitempty"` // empty for free conversation
	Description string   `json:"description"`
	Goal        string   `json:"goal"`
	Steps       []string `json:"steps"`
}

// IsFree reports whether this definition is the free-conversation pseudo-scenario.
func (d *Definition) IsFree() bool {
	return d.Role == ""
}

// Catalog is a read-only lookup of scenario definitions.
type Catalog struct {
	byID  map[string]*Definition
	order []*Definition
}

// NewCatalog builds the default catalog. Called once at startup.
func NewCatalog() *Catalog {
	defs := []*Definition{
		{
			ID:          FreeID,
			Title:       "Free Conversation",
			Description: "Open conversation on any topic",
			Goal:        "Natural conversation practice",
			Steps:       []string{},
		},
		{
			ID:          "restaurant",
			Title:       "Ordering Food at a Restaurant",
			Role:        "a waiter/waitress at a restaurant",
			Description: "The learner is a customer who wants to order food",
			Goal:        "Help the customer order food, drinks, and complete the order",
			Steps:       []string{"Greet customer", "Present menu/specials", "Take order", "Confirm order", "Thank customer"},
		},
		{
			ID:          "shopping",
			Title:       "Shopping at a Clothing Store",
			Role:        "a sales assistant at a clothing store",
			Description: "The learner wants to buy clothes",
			Goal:        "Help the customer find and purchase clothing items",
			Steps:       []string{"Greet customer", "Ask what they're looking for", "Show options", "Discuss size/color", "Complete purchase"},
		},
		{
			ID:          "hotel",
			Title:       "Hotel Check-in",
			Role:        "a hotel receptionist",
			Description: "The learner is checking into a hotel",
			Goal:        "Complete the check-in process",
			Steps:       []string{"Greet guest", "Verify reservation", "Collect information", "Explain facilities", "Give room key"},
		},
		{
			ID:          "job_interview",
			Title:       "Job Interview",
			Role:        "an interviewer for a company",
			Description: "The learner is applying for a job position",
			Goal:        "Conduct a complete job interview",
			Steps:       []string{"Introduce yourself", "Ask about background", "Discuss experience", "Ask about strengths/weaknesses", "Close interview"},
		},
	}

	byID := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return &Catalog{byID: byID, order: defs}
}

// Get returns the definition for id. For the empty id and FreeID it returns
// the free-conversation definition. Unknown ids return ErrUnknown; callers
// must reject these before starting a session.
func (c *Catalog) Get(id string) (*Definition, error) {
	if id == "" {
		id = FreeID
	}
	d, ok := c.byID[id]
	if !ok {
		return nil, ErrUnknown
	}
	return d, nil
}

// List returns all definitions in catalog order.
func (c *Catalog) List() []*Definition {
	return c.order
}
