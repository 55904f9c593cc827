package main

import (
	"os"

	"github.com/scopeguard/scopeguard/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
