//go:build tools

package restfire

import (
	_ "github.com/mgechev/revive"
)
