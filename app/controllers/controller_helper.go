package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/ImmoFox/internal/pkg/usercontext"
)

const (
	AUTH_KEY      string = "authenticated"
	USER_ID       string = "user_id"
	USER_NAME     string = "username"
	USER_IS_ADMIN string = "isAdmin"
)

func isLoggedIn(c *fiber.Ctx) bool {
	return usercontext.IsLoggedIn(c)
}

// ExtractUsername gets the username from Locals (set by middleware)
func ExtractUsername(c *fiber.Ctx) string {
	return usercontext.GetUsername(c)
}

// renderData builds the base template data every page shares
func renderData(c *fiber.Ctx, title string) fiber.Map {
	uc := usercontext.GetUserContext(c)
	data := fiber.Map{
		"Title":      title,
		"IsLoggedIn": uc.IsLoggedIn,
		"IsAdmin":    uc.IsAdmin,
		"Username":   uc.Username,
		"Plan":       uc.Plan,
		"Flash":      flash.Get(c),
	}
	if token, ok := c.Locals("csrf").(string); ok {
		data["CSRFToken"] = token
	}
	return data
}

// GetClientIP determines the actual client IP address considering proxies and dual stack
// Returns both IPv4 and IPv6 addresses if available
func GetClientIP(c *fiber.Ctx) (string, string) {
	ipv4 := ""
	ipv6 := ""

	// Cloudflare passes the original client IP in its own header
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		if strings.Contains(cfIP, ":") {
			ipv6 = cfIP
		} else {
			ipv4 = cfIP
		}
		for _, ip := range strings.Split(c.Get("X-Forwarded-For"), ",") {
			ip = strings.TrimSpace(ip)
			if ip == "" {
				continue
			}
			if strings.Contains(ip, ":") && ipv6 == "" {
				ipv6 = ip
			} else if !strings.Contains(ip, ":") && ipv4 == "" {
				ipv4 = ip
			}
		}
		return ipv4, ipv6
	}

	// X-Forwarded-For: first entry is the original client
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if ip == "" {
				continue
			}
			if strings.Contains(ip, ":") {
				if ipv6 == "" {
					ipv6 = ip
				}
			} else if ipv4 == "" {
				ipv4 = ip
			}
		}
		if ipv4 != "" || ipv6 != "" {
			return ipv4, ipv6
		}
	}

	ipAddr := c.IP()
	if strings.HasPrefix(ipAddr, "::ffff:") {
		// IPv4-mapped IPv6 address
		ipv4 = strings.TrimPrefix(ipAddr, "::ffff:")
	} else if strings.Contains(ipAddr, ":") {
		ipv6 = ipAddr
		if realIPv4 := c.Get("X-Real-IP"); realIPv4 != "" && !strings.Contains(realIPv4, ":") {
			ipv4 = realIPv4
		}
	} else {
		ipv4 = ipAddr
		if realIPv6 := c.Get("X-Real-IP"); realIPv6 != "" && strings.Contains(realIPv6, ":") {
			ipv6 = realIPv6
		}
	}

	return ipv4, ipv6
}
