//go:build tools

package tools

// Build with `orchestrion go build ./...` to inject DataDog tracing at
// compile time.
import (
	_ "github.com/DataDog/dd-trace-go/orchestrion/all/v2"
	_ "github.com/DataDog/orchestrion"
)
