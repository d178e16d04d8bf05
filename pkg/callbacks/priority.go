package callbacks

// Lower priorities run first. Third parties position themselves relative to
// PriorityDefault rather than relying on its exact value.
const (
	PriorityDefault = 55550000

	PriorityVeryEarly = PriorityDefault - 200
	PriorityEarly     = PriorityDefault - 100
	PriorityLate      = PriorityDefault + 100
	PriorityVeryLate  = PriorityDefault + 200

	PriorityRouterExtendedAttribute = PriorityDefault - 100
	PriorityRouterController        = PriorityDefault - 200
	PriorityRouterDriver            = PriorityDefault
)
