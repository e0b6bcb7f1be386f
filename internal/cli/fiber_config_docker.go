//go:build docker

package cli

import "github.com/gofiber/fiber/v3"

// In the container image the reverse proxy terminates TLS in front of
// us, so the forwarded header is only honored from the pod network.
func createFiberConfig(appName string) fiber.Config {
	return fiber.Config{
		AppName:     appName,
		ProxyHeader: "X-Forwarded-For",
		TrustProxy:  true,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Private: true,
		},
	}
}
