// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package udp

import (
	"fmt"
	"net"
	"regexp"
	"strconv"

	"github.com/hashicorp/go-sockaddr"
)

// JoinHostPort formats a UDP address
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ResolveBindAddress returns the IP a socket should bind to.
// The value is either an IP literal, the wildcard included, or the name of a
// network interface, in which case the interface's forwardable address is used.
func ResolveBindAddress(value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("empty bind address")
	}

	if ip := net.ParseIP(value); ip != nil {
		return ip.String(), nil
	}

	ipStr, err := sockaddr.GetInterfaceIP("^" + regexp.QuoteMeta(value) + "$")
	if err != nil {
		return "", fmt.Errorf("failed to read the addresses of interface %q: %w", value, err)
	}

	if ipStr == "" {
		return "", fmt.Errorf("invalid bind address %q: neither an IP nor an interface with an address", value)
	}
	return ipStr, nil
}

// AdvertisedIP returns the address peers should use to reach a socket bound to host.
// A wildcard host is replaced by a private interface address, or a public one when
// the machine has no private address.
func AdvertisedIP(host string) (string, error) {
	ip := net.ParseIP(host)
	if host != "" && ip == nil {
		return "", fmt.Errorf("invalid bind address %q", host)
	}

	if ip != nil && !ip.IsUnspecified() {
		return ip.String(), nil
	}

	ipStr, err := sockaddr.GetPrivateIP()
	if err != nil {
		return "", fmt.Errorf("failed to get private interface addresses: %w", err)
	}

	if ipStr == "" {
		if ipStr, err = sockaddr.GetPublicIP(); err != nil {
			return "", fmt.Errorf("failed to get public interface addresses: %w", err)
		}
	}

	if ipStr == "" {
		return "", fmt.Errorf("no private IP address found, and explicit IP not provided")
	}

	parsed := net.ParseIP(ipStr)
	if parsed == nil {
		return "", fmt.Errorf("failed to parse interface address: %q", ipStr)
	}
	return parsed.String(), nil
}
