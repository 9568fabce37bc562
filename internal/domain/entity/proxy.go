package entity

// DetectionMethod names the rule that identified a proxy.
type DetectionMethod string

const (
	DetectionEIP1967Slot     DetectionMethod = "eip1967Slot"
	DetectionEIP1167Bytecode DetectionMethod = "eip1167Bytecode"
	DetectionOZLegacySlot    DetectionMethod = "ozLegacySlot"
	DetectionNone            DetectionMethod = "none"
)

// ProxyRecord is the outcome of proxy detection for one address.
type ProxyRecord struct {
	ProxyAddress          string          `json:"proxyAddress"`
	ImplementationAddress string          `json:"implementationAddress,omitempty"`
	DetectionMethod       DetectionMethod `json:"detectionMethod"`
	// Degraded is set when every chain read failed, so "no proxy" could not actually be established.
	Degraded bool `json:"degraded,omitempty"`
}

// IsProxy reports whether an implementation address was found.
func (p ProxyRecord) IsProxy() bool {
	return p.ImplementationAddress != "" && p.DetectionMethod != DetectionNone
}

// EffectiveAddress is the address whose ABI should be fetched.
func (p ProxyRecord) EffectiveAddress() string {
	if p.IsProxy() {
		return p.ImplementationAddress
	}
	return p.ProxyAddress
}
