package main

import "github.com/mcoot/wishlist/internal/cli"

func main() {
	cli.Execute()
}
