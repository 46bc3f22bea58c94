package app

import (
	"github.com/vk/dataflow/internal/registry"
	"github.com/vk/dataflow/modules/counter"
)

// coreModules is the definitive list of operation modules compiled into
// the dataflow binary by default.
var coreModules = []registry.Module{
	counter.Module{},
}
