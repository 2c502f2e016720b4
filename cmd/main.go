package main

import "github.com/kcaldas/blockfit/cmd/cli"

func main() {
	cli.Execute()
}
