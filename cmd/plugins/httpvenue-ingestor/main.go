// Command httpvenue-ingestor builds the reference Ingestor plugin as a Go
// shared object (`go build -buildmode=plugin`), exporting the two ABI
// symbols spec §4.4 names: CreatePlugin and DestroyPlugin. Go's plugin
// package resolves Go identifiers, not arbitrary C symbol names, so these
// capitalized names stand in for the spec's create_plugin/destroy_plugin
// at the loader boundary — see internal/pluginapi's package doc.
package main

import (
	"numeri/internal/pluginapi"
	"numeri/plugins/httpvenue/ingestor"
)

// CreatePlugin is resolved by internal/pluginapi.Loader via plugin.Lookup.
func CreatePlugin() pluginapi.PluginHandle {
	return ingestor.New()
}

// DestroyPlugin is resolved by internal/pluginapi.Loader via plugin.Lookup.
// The Go garbage collector reclaims the handle itself; this exists so the
// ABI stays symmetric with the factory, in case a future venue plugin
// holds non-Go resources that need an explicit release.
func DestroyPlugin(pluginapi.PluginHandle) {}

func main() {}
