package netutil

import (
	"fmt"
	"net"
	"strings"
)

// ExpandTargets takes a CIDR range or single IP and a comma-separated
// port list, and returns the base URLs (scheme://host[:port]) a scan
// should enumerate, skipping the network/broadcast addresses of any
// block wider than a /31 (/127 for IPv6).
func ExpandTargets(cidr string, portsStr string, scheme string) ([]string, error) {
	network, err := parseNetwork(cidr)
	if err != nil {
		return nil, err
	}
	ports := resolvePorts(portsStr, scheme)

	var urls []string
	for ip := network.IP.Mask(network.Mask); network.Contains(ip); inc(ip) {
		if isNetworkOrBroadcast(network, ip) {
			continue
		}
		for _, port := range ports {
			urls = append(urls, hostURL(scheme, ip.String(), port))
		}
	}
	return urls, nil
}

// parseNetwork accepts either a CIDR block or a bare IP, normalizing a
// bare IP to a single-address /32 (or /128 for IPv6) network.
func parseNetwork(cidr string) (*net.IPNet, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err == nil {
		return ipnet, nil
	}
	ip = net.ParseIP(cidr)
	if ip == nil {
		return nil, fmt.Errorf("invalid CIDR or IP: %q", cidr)
	}
	mask := net.CIDRMask(32, 32)
	if ip.To4() == nil {
		mask = net.CIDRMask(128, 128)
	}
	return &net.IPNet{IP: ip, Mask: mask}, nil
}

// isNetworkOrBroadcast reports whether ip is the network or broadcast
// address of n; single-address and point-to-point blocks have neither.
func isNetworkOrBroadcast(n *net.IPNet, ip net.IP) bool {
	ones, bits := n.Mask.Size()
	if bits-ones <= 1 {
		return false
	}
	return ip.Equal(n.IP) || ip.Equal(broadcastAddr(n))
}

func resolvePorts(portsStr, scheme string) []string {
	if ports := parsePorts(portsStr); len(ports) > 0 {
		return ports
	}
	if scheme == "https" {
		return []string{"443"}
	}
	return []string{"80"}
}

func hostURL(scheme, host, port string) string {
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%s", scheme, host, port)
}

func parsePorts(s string) []string {
	if s == "" {
		return nil
	}
	var ports []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			ports = append(ports, p)
		}
	}
	return ports
}

func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}

func broadcastAddr(n *net.IPNet) net.IP {
	ip := make(net.IP, len(n.IP))
	for i := range ip {
		ip[i] = n.IP[i] | ^n.Mask[i]
	}
	return ip
}
