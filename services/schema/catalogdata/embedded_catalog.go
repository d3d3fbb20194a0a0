// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime schema catalog. It uses the
Go embed package to bake schema_catalog.yaml directly into the compiled binary,
so the catalog that every verification decision depends on is immutable at
runtime and travels with the executable.
*/

package catalogdata

import (
	_ "embed"
)

// SchemaCatalog holds the raw byte content of 'schema_catalog.yaml'.
//
// Populated at compile time via the Go 'embed' directive. Baking the YAML
// into the binary guarantees the schema the verifier trusts cannot be
// swapped out on the host filesystem without recompiling.
//
// Usage:
//
//	err := yaml.Unmarshal(catalogdata.SchemaCatalog, &targetStruct)
//
//go:embed schema_catalog.yaml
var SchemaCatalog []byte
