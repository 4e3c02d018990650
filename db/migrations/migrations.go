// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package migrations

import "embed"

// FS holds the ordered schema migrations.
//
//go:embed *.sql
var FS embed.FS
