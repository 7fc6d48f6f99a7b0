package ir

import (
	"fmt"
	"strings"
)

// Capabilities is the set of optional features a validation run permits.
// It is always passed explicitly; the Validator reads no global state.
type Capabilities uint32

const (
	CapabilityFloat16 Capabilities = 1 << iota
	CapabilityFloat64
	CapabilityInt64
	CapabilityImages
	CapabilityStorageImages
	CapabilityMultisampledImages
	CapabilityAtomics
	CapabilityInt64Atomics
	CapabilityBindingArrays
	CapabilityPushConstants
	CapabilityCubeArrayTextures

	// CapabilitiesNone permits only the core scalar/vector/matrix feature set.
	CapabilitiesNone Capabilities = 0

	// CapabilitiesDefault matches what every WebGPU-class target supports.
	CapabilitiesDefault = CapabilityImages | CapabilityStorageImages |
		CapabilityMultisampledImages | CapabilityAtomics | CapabilityCubeArrayTextures

	// CapabilitiesAll permits everything.
	CapabilitiesAll = CapabilityCubeArrayTextures<<1 - 1
)

var capabilityNames = []struct {
	name string
	cap  Capabilities
}{
	{"float16", CapabilityFloat16},
	{"float64", CapabilityFloat64},
	{"int64", CapabilityInt64},
	{"images", CapabilityImages},
	{"storage_images", CapabilityStorageImages},
	{"multisampled_images", CapabilityMultisampledImages},
	{"atomics", CapabilityAtomics},
	{"int64_atomics", CapabilityInt64Atomics},
	{"binding_arrays", CapabilityBindingArrays},
	{"push_constants", CapabilityPushConstants},
	{"cube_array_textures", CapabilityCubeArrayTextures},
}

// Contains reports whether every capability in other is enabled.
func (c Capabilities) Contains(other Capabilities) bool {
	return c&other == other
}

// String lists the enabled capabilities by name.
func (c Capabilities) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for _, n := range capabilityNames {
		if c.Contains(n.cap) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// CapabilityNames returns the names accepted by ParseCapabilities, in bit order.
func CapabilityNames() []string {
	names := make([]string, len(capabilityNames))
	for i, n := range capabilityNames {
		names[i] = n.name
	}
	return names
}

// ParseCapabilities converts capability names into a set.
// The special names "all", "default" and "none" are accepted as well.
func ParseCapabilities(names ...string) (Capabilities, error) {
	var caps Capabilities
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "all":
			caps |= CapabilitiesAll
			continue
		case "default":
			caps |= CapabilitiesDefault
			continue
		case "none":
			continue
		}
		found := false
		for _, n := range capabilityNames {
			if n.name == name {
				caps |= n.cap
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown capability %q", raw)
		}
	}
	return caps, nil
}
