package cli

import "os"

// dsn reads DATABASE_URL the same way app.Config does, without pulling in
// the app package's Redis/WebAuthn setup that the CLI has no use for.
func dsn() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	return "sqlite://./data/bot.db"
}
