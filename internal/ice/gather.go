package ice

import "net"

// GatherHostCandidatesFromInterfaces enumerates local interface addresses
// (a pure query of OS-reported state, not a socket operation) and returns
// one host candidate per eligible address, for the host to feed to
// AddLocalCandidate (spec §4.3 "Gathering"). Interfaces that are down or
// loopback, and loopback or non-IP addresses, are skipped; link-local
// addresses are not filtered out. allowed restricts
// which network types are emitted (SettingEngine.SetNetworkTypes, spec §3
// "ICE candidate"); an empty allowed list permits every type this function
// can produce.
func GatherHostCandidatesFromInterfaces(component int, allowed []NetworkType) ([]*Candidate, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []*Candidate
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			network := NetworkTypeUDP4
			if ipNet.IP.To4() == nil {
				network = NetworkTypeUDP6
			}
			if !networkTypeAllowed(network, allowed) {
				continue
			}
			out = append(out, NewHostCandidate(network, ipNet.IP.String(), 0, component))
		}
	}
	return out, nil
}

func networkTypeAllowed(n NetworkType, allowed []NetworkType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == n {
			return true
		}
	}
	return false
}
