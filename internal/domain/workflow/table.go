package workflow

// Table is the static set of legal status changes
type Table interface {
	// Lookup returns the edge for an exact (from, to) pair
	Lookup(from, to Status) (Edge, bool)

	// Authorize returns a *TransitionError if the role may not take the edge
	Authorize(from, to Status, role Role) error

	// PermittedTargets returns the statuses the role may move a request to
	PermittedTargets(from Status, role Role) []Status

	// Edges returns every edge in the table
	Edges() []Edge
}
