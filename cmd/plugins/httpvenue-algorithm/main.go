// Command httpvenue-algorithm builds the reference Algorithm plugin as a
// Go shared object. See cmd/plugins/httpvenue-ingestor for the ABI
// symbol-naming note.
package main

import (
	"numeri/internal/pluginapi"
	"numeri/plugins/httpvenue/algorithm"
)

// CreatePlugin is resolved by internal/pluginapi.Loader via plugin.Lookup.
func CreatePlugin() pluginapi.PluginHandle {
	return algorithm.New()
}

// DestroyPlugin is resolved by internal/pluginapi.Loader via plugin.Lookup.
func DestroyPlugin(pluginapi.PluginHandle) {}

func main() {}
