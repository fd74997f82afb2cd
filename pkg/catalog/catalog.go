package catalog

// Service describes one entry in the static service catalog. The catalog is
// process-wide immutable state: loaded once, read-only thereafter.
type Service struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var services = []Service{
	{
		Key:         "plumbing",
		Name:        "Plumbing",
		Description: "Leaks, clogs, fixtures, and general plumbing repairs.",
	},
	{
		Key:         "electrical",
		Name:        "Electrical",
		Description: "Switches, outlets, lighting, and basic electrical work.",
	},
	{
		Key:         "ac_technician",
		Name:        "AC Technician",
		Description: "AC servicing, installation checks, gas refills, and basic troubleshooting.",
	},
	{
		Key:         "mechanic",
		Name:        "Mechanic",
		Description: "Vehicle diagnostics, minor repairs, maintenance, and emergency assistance.",
	},
	{
		Key:         "cleaning",
		Name:        "Home Cleaning",
		Description: "Standard cleaning, deep cleaning, move-in/out.",
	},
	{
		Key:         "handyman",
		Name:        "Handyman (Repairs & Errands)",
		Description: "Small repairs, mounting, assembly, pickups/drop-offs, and general errands.",
	},
	{
		Key:         "hair_stylist",
		Name:        "Hair Stylist",
		Description: "Haircuts, styling, braids, and hair care services.",
	},
	{
		Key:         "makeup_artist",
		Name:        "Make-up Artist",
		Description: "Event make-up, bridal make-up, and glam sessions.",
	},
	{
		Key:         "nail_technician",
		Name:        "Nail Technician",
		Description: "Manicure, pedicure, nail art, and gel/acrylic services.",
	},
	{
		Key:         "barber",
		Name:        "Barber",
		Description: "Haircuts, fades, lineups, and beard grooming.",
	},
	{
		Key:         "tailor",
		Name:        "Tailor",
		Description: "Alterations, fittings, repairs, and custom tailoring.",
	},
}

var serviceKeys = buildKeyIndex()

func buildKeyIndex() map[string]struct{} {
	index := make(map[string]struct{}, len(services))
	for _, svc := range services {
		index[svc.Key] = struct{}{}
	}
	return index
}

// List returns the full catalog in display order.
func List() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

// IsValidKey reports whether the service key exists in the catalog.
func IsValidKey(key string) bool {
	_, ok := serviceKeys[key]
	return ok
}
