package main

import "github.com/cryptopanel/market-api/cmd"

func main() {
	cmd.Execute()
}
