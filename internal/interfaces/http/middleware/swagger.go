package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/housing/backend/internal/interfaces/http/dto"
)

// SwaggerConfig holds configuration for Swagger endpoint protection
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // single IPs or CIDRs, empty allows all
}

// SwaggerProtection hides the docs when disabled and restricts them to
// AllowedIPs when a whitelist is set.
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	var (
		ips  []net.IP
		nets []*net.IPNet
	)
	for _, raw := range cfg.AllowedIPs {
		if strings.Contains(raw, "/") {
			if _, network, err := net.ParseCIDR(raw); err == nil {
				nets = append(nets, network)
			}
			continue
		}
		if ip := net.ParseIP(raw); ip != nil {
			ips = append(ips, ip)
		}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(
				dto.ErrCodeNotFound, "API documentation is not available"))
			return
		}
		if len(cfg.AllowedIPs) > 0 && !isIPAllowed(net.ParseIP(c.ClientIP()), ips, nets) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				dto.ErrCodeForbidden, "Access to API documentation is restricted"))
			return
		}
		c.Next()
	}
}

func isIPAllowed(ip net.IP, ips []net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
