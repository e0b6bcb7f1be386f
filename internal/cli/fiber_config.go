//go:build !docker

package cli

import "github.com/gofiber/fiber/v3"

func createFiberConfig(appName string) fiber.Config {
	return fiber.Config{
		AppName:     appName,
		ProxyHeader: "X-Forwarded-For",
	}
}
