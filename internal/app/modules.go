package app

import (
	"github.com/specialistvlad/gridci/internal/registry"
	"github.com/specialistvlad/gridci/modules/env_vars"
	"github.com/specialistvlad/gridci/modules/print"
	"github.com/specialistvlad/gridci/modules/shell"
)

// coreModules are the action providers registered by default. Tests and
// embedders pass their own module list to NewApp to replace them.
var coreModules = []registry.Module{
	&shell.Module{},
	&print.Module{},
	&env_vars.Module{},
}
