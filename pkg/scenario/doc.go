// Package scenario defines the automation model persisted in project files:
// a Project holds Scenarios, each a graph of States joined by next_states ids.
// States carry guard Statements and the Actions run when they become current.
//
// Model values are plain structs registered with a schema.Registry, so the generic
// XML codec can read and write them:
//
//	p, err := scenario.DecodeProject(f)
//	if err := p.Validate(); err != nil { ... }
//
// Editor applies the edits an authoring tool needs and notifies subscribers of each
// committed change.
package scenario
