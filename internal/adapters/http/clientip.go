package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/MarcMroz/open-voice-chat/internal/adapters/signal"
	"github.com/gin-gonic/gin"
)

const unknownIP = "0.0.0.0"

// ClientIP returns the caller's address: the first configured header that
// carries one, else the connection's remote address.
func ClientIP(r *http.Request, headers []string) string {
	ip := ""
	for _, h := range headers {
		if v := r.Header.Get(h); v != "" {
			ip = v
			break
		}
	}
	if ip == "" {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
	}
	if first, _, found := strings.Cut(ip, ","); found {
		ip = first
	}
	ip = strings.TrimSpace(ip)

	if ip == "::1" {
		return "127.0.0.1"
	}
	ip = strings.TrimPrefix(ip, "::ffff:")
	if ip == "" {
		return unknownIP
	}
	return ip
}

func ClientIPMiddleware(headers []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(signal.ClientIPKey, ClientIP(c.Request, headers))
		c.Next()
	}
}
