package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/gootp/internal/app"
)

// @title           gootp API
// @version         1.0
// @description     One-time codes, TOTP two-factor authentication and token sessions.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	application := app.New()
	<-application.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx)
}
