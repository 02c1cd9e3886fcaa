// Command httpvenue-execution builds the reference Execution Engine
// plugin as a Go shared object. See cmd/plugins/httpvenue-ingestor for the
// ABI symbol-naming note.
package main

import (
	"numeri/internal/pluginapi"
	"numeri/plugins/httpvenue/execution"
)

// CreatePlugin is resolved by internal/pluginapi.Loader via plugin.Lookup.
func CreatePlugin() pluginapi.PluginHandle {
	return execution.New()
}

// DestroyPlugin is resolved by internal/pluginapi.Loader via plugin.Lookup.
func DestroyPlugin(pluginapi.PluginHandle) {}

func main() {}
