package workflow

import (
	"fmt"
	"sort"
)

// TableBuilder builds an immutable transition table
type TableBuilder interface {
	// Configure returns the edge configuration for the given source status
	Configure(from Status) EdgeConfiguration

	// Build creates the table; later builder changes do not affect it
	Build() Table
}

// EdgeConfiguration configures outgoing edges for a single status
type EdgeConfiguration interface {
	// Permit allows the listed roles to move the request to the target status
	Permit(to Status, roles ...Role) EdgeConfiguration
}

// Edge is a legal (from, to) pair and the roles allowed to take it
type Edge struct {
	From         Status
	To           Status
	AllowedRoles []Role
}

// Allows returns true if the role may take the edge
func (e Edge) Allows(role Role) bool {
	for _, r := range e.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

type edgeConfig struct {
	from  Status
	edges map[Status]map[Role]bool
}

type tableBuilder struct {
	configurations map[Status]*edgeConfig
}

type transitionTable struct {
	edges map[Status]map[Status]map[Role]bool
}

// NewBuilder creates a new transition table builder
func NewBuilder() TableBuilder {
	return &tableBuilder{
		configurations: make(map[Status]*edgeConfig),
	}
}

// Configure returns the edge configuration for the given source status
func (b *tableBuilder) Configure(from Status) EdgeConfiguration {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", from))
	}

	config, exists := b.configurations[from]
	if !exists {
		config = &edgeConfig{
			from:  from,
			edges: make(map[Status]map[Role]bool),
		}
		b.configurations[from] = config
	}

	return config
}

// Build creates the table from a deep copy of the configured edges
func (b *tableBuilder) Build() Table {
	edges := make(map[Status]map[Status]map[Role]bool, len(b.configurations))
	for from, config := range b.configurations {
		targets := make(map[Status]map[Role]bool, len(config.edges))
		for to, roles := range config.edges {
			rolesCopy := make(map[Role]bool, len(roles))
			for r := range roles {
				rolesCopy[r] = true
			}
			targets[to] = rolesCopy
		}
		edges[from] = targets
	}

	return &transitionTable{edges: edges}
}

// Permit allows the listed roles to move the request to the target status
func (c *edgeConfig) Permit(to Status, roles ...Role) EdgeConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	if c.from.IsTerminal() {
		panic(fmt.Sprintf("terminal status %s cannot have outgoing edges", c.from))
	}

	allowed, exists := c.edges[to]
	if !exists {
		allowed = make(map[Role]bool)
		c.edges[to] = allowed
	}
	for _, r := range roles {
		if !r.IsValid() {
			panic(fmt.Sprintf("invalid role: %s", r))
		}
		allowed[r] = true
	}

	return c
}

// Lookup returns the edge for an exact (from, to) pair
func (t *transitionTable) Lookup(from, to Status) (Edge, bool) {
	roles, exists := t.edges[from][to]
	if !exists {
		return Edge{}, false
	}
	return Edge{From: from, To: to, AllowedRoles: sortedRoles(roles)}, true
}

// Authorize checks the pair and the role, returning a descriptive error
func (t *transitionTable) Authorize(from, to Status, role Role) error {
	if from.IsTerminal() {
		return &TransitionError{
			From:   from,
			To:     to,
			Role:   role,
			Reason: fmt.Sprintf("request is %s and cannot change status", from),
		}
	}

	edge, exists := t.Lookup(from, to)
	if !exists {
		return &TransitionError{
			From:   from,
			To:     to,
			Role:   role,
			Reason: fmt.Sprintf("no transition from %s to %s", from, to),
		}
	}

	if !edge.Allows(role) {
		return &TransitionError{
			From:   from,
			To:     to,
			Role:   role,
			Reason: fmt.Sprintf("role %s may not move a request from %s to %s", role, from, to),
		}
	}

	return nil
}

// PermittedTargets returns the statuses the role may move a request to
func (t *transitionTable) PermittedTargets(from Status, role Role) []Status {
	targets := make([]Status, 0)
	for to, roles := range t.edges[from] {
		if roles[role] {
			targets = append(targets, to)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// Edges returns every edge in a stable order
func (t *transitionTable) Edges() []Edge {
	edges := make([]Edge, 0)
	for from, targets := range t.edges {
		for to, roles := range targets {
			edges = append(edges, Edge{From: from, To: to, AllowedRoles: sortedRoles(roles)})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

func sortedRoles(roles map[Role]bool) []Role {
	out := make([]Role, 0, len(roles))
	for r := range roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
