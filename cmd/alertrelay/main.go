package main

import (
	"scan-alert-relay/internal/cli"
)

func main() {
	cli.Execute()
}
