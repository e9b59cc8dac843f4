package main

import "merchant-verdict/internal/cli"

func main() {
	cli.Execute()
}
