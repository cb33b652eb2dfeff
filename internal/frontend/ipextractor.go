package frontend

import (
	"net"

	"github.com/labstack/echo/v4"
)

// IPExtractor resolves the client IP used for per-IP feedback limits.
// Without trusted proxies the direct peer address is used and forwarding
// headers are ignored. Otherwise X-Forwarded-For is honoured only for hops
// inside the given ranges.
func IPExtractor(trustedProxies []*net.IPNet) echo.IPExtractor {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}
	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, ipNet := range trustedProxies {
		options = append(options, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}
