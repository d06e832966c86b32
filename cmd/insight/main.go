// Command insight prints the site analytics reports from the command line.
//
//	insight summary
//	insight events --event click_buy-now_hero
//	insight pageviews --page /
//	insight conversion --event click_buy-now_hero --page /
//	insight events-detailed --event click_buy-now_hero
//	insight events-like --pattern 'click_buy-now_%'
//	insight recent --limit 50
//
// The database defaults to APP_DATABASE_URL or RF_SITE_DB; --db overrides both.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
