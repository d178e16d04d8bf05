package placement

// ResourceProvider is a source of inventory, such as a compute host or a
// network device.
type ResourceProvider struct {
	UUID               string `json:"uuid"`
	Name               string `json:"name"`
	Generation         int    `json:"generation,omitempty"`
	ParentProviderUUID string `json:"parent_provider_uuid,omitempty"`
	RootProviderUUID   string `json:"root_provider_uuid,omitempty"`
}

// ProviderFilter narrows ListResourceProviders. Empty fields are ignored.
type ProviderFilter struct {
	Name   string
	UUID   string
	InTree string
	// MemberOf is sent as "in:a,b" when it holds more than one aggregate.
	MemberOf []string
	// Resources maps resource classes to the amount a provider must have free.
	Resources map[string]int
	Required  []string
}

// Inventory is the amount of one resource class a provider offers.
type Inventory struct {
	Total           int     `json:"total"`
	Reserved        int     `json:"reserved"`
	MinUnit         int     `json:"min_unit,omitempty"`
	MaxUnit         int     `json:"max_unit,omitempty"`
	StepSize        int     `json:"step_size,omitempty"`
	AllocationRatio float64 `json:"allocation_ratio,omitempty"`
}

// Inventories are the inventories of a provider keyed by resource class,
// along with the generation they were read at.
type Inventories struct {
	Generation  int                  `json:"resource_provider_generation"`
	Inventories map[string]Inventory `json:"inventories"`
}

// Aggregates are the aggregate UUIDs a provider belongs to.
type Aggregates struct {
	Generation int      `json:"resource_provider_generation"`
	Aggregates []string `json:"aggregates"`
}

// Traits are the traits of a provider.
type Traits struct {
	Generation int      `json:"resource_provider_generation"`
	Traits     []string `json:"traits"`
}

// Usages is the consumed amount per resource class of a provider.
type Usages struct {
	Generation int            `json:"resource_provider_generation"`
	Usages     map[string]int `json:"usages"`
}

// ResourceClass is a kind of countable resource.
type ResourceClass struct {
	Name string `json:"name"`
}
