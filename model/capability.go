// Package model provides capability-based model selection for coaching tasks.
// Instead of hardcoding model names, callers specify capabilities (generation,
// chat, fast) and the registry resolves them to available models with
// fallback chains.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityGeneration is for structured task generation from a goal.
	CapabilityGeneration Capability = "generation"

	// CapabilityChat is for the conversational coach.
	CapabilityChat Capability = "chat"

	// CapabilityFast is for quick responses, simple lookups.
	CapabilityFast Capability = "fast"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityGeneration, CapabilityChat, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	cap := Capability(s)
	if cap.IsValid() {
		return cap
	}
	return ""
}
