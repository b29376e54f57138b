package main

import (
	"github.com/wemcdonald/sqlsafety/internal/cli"
)

func main() {
	cli.Execute()
}
