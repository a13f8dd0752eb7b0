package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SwaggerConfig protects the API documentation endpoint. The layers
// stack: a disabled endpoint 404s, an IP allowlist (CIDR or single
// addresses) rejects outsiders, and RequireAuth additionally demands a
// valid JWT.
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string
}

// ipAllowList answers membership for a mix of single IPs and CIDRs.
type ipAllowList struct {
	ips  []net.IP
	nets []*net.IPNet
}

func parseAllowList(entries []string) ipAllowList {
	var list ipAllowList
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				list.nets = append(list.nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			list.ips = append(list.ips, ip)
		}
	}
	return list
}

func (l ipAllowList) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range l.ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range l.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SwaggerProtection guards the swagger UI per the config. The JWT
// middleware is injected so the guard reuses the same skip lists and
// blacklist checks as the API itself.
func SwaggerProtection(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) gin.HandlerFunc {
	allowList := parseAllowList(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			// Hide the endpoint entirely rather than admitting it exists.
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "API documentation is not available",
			})
			return
		}

		if len(cfg.AllowedIPs) > 0 && !allowList.contains(getClientIP(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Access to API documentation is restricted",
			})
			return
		}

		if cfg.RequireAuth && jwtMiddleware != nil {
			jwtMiddleware(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

// getClientIP resolves the caller's address, via gin's trusted-proxy
// handling first and the raw remote address as fallback.
func getClientIP(c *gin.Context) net.IP {
	if clientIP := c.ClientIP(); clientIP != "" {
		if ip := net.ParseIP(clientIP); ip != nil {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}
