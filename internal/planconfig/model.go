// Package planconfig loads a declarative HCL plan file into a slice of
// task.Task values, resolving each task block's operation name against
// an operation registry.
package planconfig

import "github.com/hashicorp/hcl/v2"

// planSchema describes the only block type a plan file may contain:
// zero or more labeled `task` blocks.
var planSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "task", LabelNames: []string{"name"}},
	},
}

// taskAttrs is the HCL schema for the body of one `task "name" { ... }`
// block, decoded with gohcl.DecodeBody once the block itself has been
// picked out via planSchema.
type taskAttrs struct {
	Operation string   `hcl:"operation"`
	Reads     []string `hcl:"reads,optional"`
	Writes    []string `hcl:"writes,optional"`

	// Priority is kept as a raw expression rather than a decoded int so
	// a plan can compute it (e.g. "priority = 2 + 1") instead of only
	// naming a literal; evalPriority resolves it once during resolution.
	Priority hcl.Expression `hcl:"priority,optional"`
}

// parsedTask is one decoded task block together with the source
// range of its header (the task keyword and its "name" label), used to
// report unknown-operation
// errors with an HCL range the way the teacher's config stack does.
type parsedTask struct {
	Name  string
	Attrs taskAttrs
	Range hcl.Range
}
